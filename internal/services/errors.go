// Package services defines the business logic for accounts, companies,
// conversations, leads, and billing. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

// Account-related errors.
var (
	// ErrEmailTaken indicates a registration attempt with an address that
	// already has an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned on login when the email is unknown
	// or the password does not match. The two cases are deliberately not
	// distinguished.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Company-related errors.
var (
	// ErrCompanyNotFound indicates the requested company does not exist or
	// is not accessible to the current user.
	ErrCompanyNotFound = errors.New("company not found")

	// ErrCompanyExists is returned when a user who already owns a company
	// tries to create another one.
	ErrCompanyExists = errors.New("company already exists for this user")

	// ErrInvalidCompanyName is returned when a company name yields no usable
	// slug.
	ErrInvalidCompanyName = errors.New("company name is not usable")
)

// Chat-related errors.
var (
	// ErrEmptyMessage is returned when a chat request contains no text.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned when a chat message exceeds the
	// maximum configured length limit.
	ErrMessageTooLong = errors.New("message too long")

	// ErrAIUnavailable is the generic failure surfaced on the public chat
	// path; provider details are kept out of visitor-facing responses.
	ErrAIUnavailable = errors.New("AI response failed")
)

// ProviderError carries the model provider's status and message for
// surfaces that are allowed to show them. AuthChat returns it so the
// company admin sees what the provider said; PublicChat never does and
// collapses provider failures into ErrAIUnavailable instead.
type ProviderError struct {
	// Detail is the provider-supplied status and message.
	Detail string
	// Err is the underlying provider error.
	Err error
}

// Error includes the provider detail.
func (e *ProviderError) Error() string { return "chat completion: " + e.Detail }

// Unwrap exposes the underlying error for errors.Is/As chains.
func (e *ProviderError) Unwrap() error { return e.Err }

// Billing-related errors.
var (
	// ErrPlanNotFound indicates the requested plan does not exist.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrSubscriptionNotFound indicates the requested subscription does not
	// exist or is not owned by the current user.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrSubscriptionNotActive is returned when a completion callback names
	// a provider subscription that is not in the ACTIVE state.
	ErrSubscriptionNotActive = errors.New("subscription is not active at the provider")
)
