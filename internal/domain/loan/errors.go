package loan

import "errors"

var (
	ErrNotFound              = errors.New("loan not found")
	ErrValidation            = errors.New("validation failed")
	ErrInvalidTransition     = errors.New("invalid loan status transition")
	ErrActiveLoanExists      = errors.New("user already has an active loan")
	ErrForbidden             = errors.New("loan does not belong to user")
	ErrPaymentRequestSettled = errors.New("payment request already settled")
	ErrUnknownPaymentRequest = errors.New("unknown payment request")
)
