package service

import "errors"

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountBanned       = errors.New("account is banned")
	ErrPermissionDenied    = errors.New("feature not available on current plan")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrConcurrentUpdate    = errors.New("account was modified concurrently, try again")
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailTaken          = errors.New("email already registered")
	ErrAIUnavailable       = errors.New("ai features are not configured")
	ErrVendor              = errors.New("ai provider request failed")
)

// IsDenial reports whether err is an entitlement denial rather than a fault.
func IsDenial(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrAccountBanned) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrInsufficientCredits)
}
