package curagenesis

import "errors"

var (
	ErrMissingAPIKey         = errors.New("curagenesis: API key is required")
	ErrMissingIdempotencyKey = errors.New("curagenesis: idempotency key is required")

	// ErrTimeout marks a call that hit the configured deadline before a response arrived.
	ErrTimeout = errors.New("curagenesis: request timed out")

	ErrSignatureMissing  = errors.New("curagenesis: missing signature header")
	ErrSignatureMismatch = errors.New("curagenesis: signature mismatch")
	ErrSignatureSkew     = errors.New("curagenesis: signature timestamp outside allowed skew")
	ErrWebhookSecret     = errors.New("curagenesis: webhook secret not configured")
)
