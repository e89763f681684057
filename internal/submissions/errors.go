package submissions

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrNoContacts         = errors.New("Account must have at least one contact before sending")
	ErrMissingAccountID   = errors.New("accountId is required")
	ErrMissingAccountIDs  = errors.New("accountIds must be a non-empty array")
	ErrTooManyAccounts    = errors.New("too many accountIds in one request")
	ErrDispatchInFlight   = errors.New("a dispatch for this account is already in progress")
	ErrSubmissionResolved = errors.New("submission already resolved")
)

// VendorErrorKind separates payload problems from outages.
type VendorErrorKind string

const (
	// KindRejection is a 4xx the vendor returned for this payload.
	KindRejection VendorErrorKind = "vendor_rejection"
	// KindUnavailable covers 5xx, timeouts and transport failures; retryable.
	KindUnavailable VendorErrorKind = "vendor_unavailable"
)

// VendorError is returned after a failed vendor call has been recorded.
type VendorError struct {
	Kind       VendorErrorKind
	StatusCode int
	TimedOut   bool
	Message    string
	Detail     string
	Submission *Submission
}

func (e *VendorError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("curagenesis %s (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("curagenesis %s: %s", e.Kind, e.Message)
}

// HTTPStatus is the status the API answers with for this failure.
func (e *VendorError) HTTPStatus() int {
	_, status := classify(e.StatusCode, e.TimedOut)
	return status
}

// Retryable reports whether dispatching again may succeed without edits.
func (e *VendorError) Retryable() bool {
	return e.Kind == KindUnavailable
}

// IsValidation reports request errors detected before any write.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNoContacts) ||
		errors.Is(err, ErrMissingAccountID) ||
		errors.Is(err, ErrMissingAccountIDs) ||
		errors.Is(err, ErrTooManyAccounts)
}
