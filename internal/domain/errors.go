package domain

import "errors"

// Error classes. Every error returned by the core wraps exactly one of them.
var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrConflict            = errors.New("conflict")
	ErrValidation          = errors.New("validation failed")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

var (
	ErrBlocked        = wrap(ErrConflict, "user is blocked")
	ErrPendingPayment = wrap(ErrConflict, "payment already under review")
	ErrNameTaken      = wrap(ErrConflict, "service name already used")
	ErrTestUsed       = wrap(ErrConflict, "trial already used")

	ErrBadName   = wrap(ErrValidation, "service name must be ASCII letters and digits")
	ErrBadIP     = wrap(ErrValidation, "not a qualifying ip")
	ErrNoReceipt = wrap(ErrValidation, "receipt image is required")
	ErrBadPlan   = wrap(ErrValidation, "unknown duration")
	ErrNoReason  = wrap(ErrValidation, "a reason is required")
)

type classError struct {
	class error
	msg   string
}

func wrap(class error, msg string) error {
	return &classError{class: class, msg: msg}
}

func (e *classError) Error() string { return e.msg }

func (e *classError) Unwrap() error { return e.class }
