package api

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasteapp/taste-index/internal/http/response"
)

func TestEnvelopeTransformer_AlwaysIncludesVersion(t *testing.T) {
	tests := []struct {
		name   string
		status string
		input  any
	}{
		{name: "success response", status: "200", input: map[string]string{"key": "value"}},
		{name: "accepted response", status: "202", input: map[string]string{"status": "processing"}},
		{name: "no content response", status: "204", input: nil},
		{name: "plain error", status: "400", input: errors.New("invalid input")},
		{
			name:   "api error with details",
			status: "400",
			input: &APIError{
				Code:    "INVALID_LIKE",
				Message: "address cannot like its own post",
				Details: map[string]string{"post_id": "1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EnvelopeTransformer(nil, tt.status, tt.input)
			require.NoError(t, err)

			jsonBytes, err := json.Marshal(result)
			require.NoError(t, err)

			var envelope map[string]any
			require.NoError(t, json.Unmarshal(jsonBytes, &envelope))

			require.Contains(t, envelope, "v", "Envelope must contain version field 'v'")
			assert.Equal(t, float64(response.Version), envelope["v"])
			assert.Contains(t, envelope, "success")
		})
	}
}

func TestEnvelopeTransformer_SuccessResponse(t *testing.T) {
	data := map[string]string{"post_id": "1"}

	result, err := EnvelopeTransformer(nil, "200", data)
	require.NoError(t, err)

	envelope, ok := result.(response.Envelope)
	require.True(t, ok, "Expected response.Envelope type")

	assert.Equal(t, response.Version, envelope.V)
	assert.True(t, envelope.Success)
	assert.Equal(t, data, envelope.Data)
}

func TestEnvelopeTransformer_NullData(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "204", nil)
	require.NoError(t, err)

	jsonBytes, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1,"success":true,"data":null}`, string(jsonBytes))
}

func TestEnvelopeTransformer_PlainError(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "404", errors.New("resource not found"))
	require.NoError(t, err)

	envelope, ok := result.(response.ErrorEnvelope)
	require.True(t, ok, "Expected response.ErrorEnvelope type")

	assert.False(t, envelope.Success)
	assert.Equal(t, "NOT_FOUND", envelope.Code)
	assert.Equal(t, "resource not found", envelope.Message)
}

func TestEnvelopeTransformer_ErrorWithDetails(t *testing.T) {
	apiErr := &APIError{
		Code:    "VALIDATION",
		Message: "caption too long",
		Details: map[string]string{"caption": "exceeds 500 characters"},
	}

	result, err := EnvelopeTransformer(nil, "400", apiErr)
	require.NoError(t, err)

	envelope, ok := result.(response.ErrorEnvelope)
	require.True(t, ok, "Expected response.ErrorEnvelope type")

	assert.Equal(t, response.Version, envelope.V)
	assert.Equal(t, "VALIDATION", envelope.Code)
	assert.Equal(t, "caption too long", envelope.Message)
	assert.Equal(t, map[string]string{"caption": "exceeds 500 characters"}, envelope.Details)
}

func TestEnvelopeTransformer_AlreadyWrapped(t *testing.T) {
	wrapped := response.Success("x")

	result, err := EnvelopeTransformer(nil, "200", wrapped)
	require.NoError(t, err)
	assert.Equal(t, wrapped, result)
}
