// Package handlers defines HTTP-layer error codes used across all API
// endpoints. The codes give clients a stable, machine-readable taxonomy that
// supplements human-readable messages; generic codes mirror common HTTP
// status semantics, domain codes cover business failures that a status alone
// cannot convey. Every error response carries both a status and a code.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeEmailTaken         = "email_taken"
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeCompanyExists      = "company_exists"
	ErrCodeChatFailed         = "chat_failed"
	ErrCodePaymentFailed      = "payment_failed"
	ErrCodeMethodNotAllowed   = "method_not_allowed"
)
