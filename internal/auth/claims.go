package auth

import "time"

// OperatorClaims are the decrypted claims of an operator token. Issuer and
// audience are enforced by parser rules and not carried here.
type OperatorClaims struct {
	Operator  string    `json:"operator"`
	Subject   string    `json:"sub"`
	TokenID   string    `json:"jti"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}
