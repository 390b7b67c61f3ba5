package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "forwarded chain uses first hop",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"},
			remoteAddr: "10.0.0.2:5000",
			want:       "203.0.113.7",
		},
		{
			name:       "real ip header",
			headers:    map[string]string{"X-Real-IP": "198.51.100.4"},
			remoteAddr: "10.0.0.2:5000",
			want:       "198.51.100.4",
		},
		{
			name:       "forwarded single hop with spaces",
			headers:    map[string]string{"X-Forwarded-For": " 203.0.113.8 "},
			remoteAddr: "10.0.0.2:5000",
			want:       "203.0.113.8",
		},
		{
			name:       "ipv6 remote addr",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.0.2.9:41234",
			want:       "192.0.2.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/health", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}

func TestAuthMiddleware_StoresOperator(t *testing.T) {
	ts := setupTestServer(t)

	var gotOperator string
	var gotOK bool
	handler := authMiddleware(ts.tokens)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		claims, ok := operatorFromContext(r.Context())
		gotOK = ok
		if ok {
			gotOperator = claims.Operator
		}
	}))

	r := httptest.NewRequest(http.MethodPost, "/api/v1/facts", nil)
	r.Header.Set("Authorization", "Bearer "+ts.token)
	handler.ServeHTTP(httptest.NewRecorder(), r)
	assert.True(t, gotOK)
	assert.Equal(t, "test-operator", gotOperator)

	r = httptest.NewRequest(http.MethodPost, "/api/v1/facts", nil)
	r.Header.Set("Authorization", "Basic abc")
	handler.ServeHTTP(httptest.NewRecorder(), r)
	assert.False(t, gotOK)
}
