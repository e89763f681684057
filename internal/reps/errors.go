package reps

import "errors"

var (
	ErrRepNotFound     = errors.New("rep not found")
	ErrInvalidName     = errors.New("first and last name are required")
	ErrInvalidEmail    = errors.New("personal email is invalid")
	ErrCorpEmailTaken  = errors.New("corporate email already assigned")
	ErrInvalidToken    = errors.New("invite token is invalid")
	ErrTokenExpired    = errors.New("invite token has expired")
	ErrMissingToken    = errors.New("token is required")
	ErrTokensDisabled  = errors.New("invite tokens are not configured")
	ErrNoCorpEmailSlot = errors.New("could not allocate a corporate email")
)

// IsValidation reports request errors that map to 400.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidEmail) ||
		errors.Is(err, ErrMissingToken)
}
