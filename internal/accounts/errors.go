package accounts

import "errors"

var (
	// ErrAccountNotFound is returned when an account does not exist
	ErrAccountNotFound = errors.New("account not found")

	// ErrContactNotFound is returned when a contact does not exist on the account
	ErrContactNotFound = errors.New("contact not found")

	// ErrHasSubmissions blocks deleting an account that already has an audit trail
	ErrHasSubmissions = errors.New("account has submissions and cannot be deleted")

	ErrInvalidName        = errors.New("practice name is required")
	ErrInvalidState       = errors.New("state must be a two-letter US state code")
	ErrInvalidNPI         = errors.New("npi must be 10 digits with a valid check digit")
	ErrInvalidEmail       = errors.New("email address is invalid")
	ErrInvalidContactKind = errors.New("contact kind must be one of clinical, provider, admin, billing")
	ErrInvalidContactName = errors.New("contact first name is required")
	ErrMissingContactInfo = errors.New("contact requires an email or phone")
)

// IsValidation reports whether err is one of the request validation errors.
func IsValidation(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidName),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrInvalidNPI),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrInvalidContactKind),
		errors.Is(err, ErrInvalidContactName),
		errors.Is(err, ErrMissingContactInfo):
		return true
	}
	return false
}
