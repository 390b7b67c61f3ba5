package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tasteapp/taste-index/internal/http/response"
)

// EnvelopeTransformer wraps every huma response body in the versioned
// envelope. Errors produced by RegisterErrorHandler become error envelopes.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch body := v.(type) {
	case *APIError:
		return response.Failure(body.Code, body.Message, body.Details), nil
	case response.Envelope, response.ErrorEnvelope:
		return v, nil
	case error:
		code, _ := strconv.Atoi(status)
		return response.Failure(statusToCode(code), body.Error(), nil), nil
	default:
		return response.Success(v), nil
	}
}
