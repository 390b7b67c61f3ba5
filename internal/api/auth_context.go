package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/tasteapp/taste-index/internal/auth"
	domainerrors "github.com/tasteapp/taste-index/internal/errors"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// operatorKey is the context key for verified operator claims.
const operatorKey ctxKey = "operator"

// operatorFromContext returns the verified operator claims, if any.
func operatorFromContext(ctx context.Context) (*auth.OperatorClaims, bool) {
	claims, ok := ctx.Value(operatorKey).(*auth.OperatorClaims)
	return claims, ok && claims != nil
}

// authMiddleware returns a middleware that verifies Bearer operator tokens
// and stores the claims in context. Requests without a valid token continue
// anonymously; operator handlers reject them through RequireOperator.
func authMiddleware(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if tokens == nil || authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Verify(authHeader[7:])
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), operatorKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireOperator returns the operator name of an authenticated request.
func (s *Server) RequireOperator(ctx context.Context) (string, error) {
	claims, ok := operatorFromContext(ctx)
	if !ok {
		return "", domainerrors.Unauthorized("Operator token required")
	}
	return claims.Operator, nil
}
