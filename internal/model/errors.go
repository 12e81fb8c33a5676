package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the services wraps exactly one of these.
var (
	ErrValidation             = errors.New("validation error")
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrForbidden              = errors.New("forbidden")
	ErrStorage                = errors.New("storage error")
	ErrNotFound               = errors.New("not found")
)

var (
	ErrSizeRequired      = fmt.Errorf("%w: size required", ErrValidation)
	ErrInvalidSize       = fmt.Errorf("%w: invalid size", ErrValidation)
	ErrEmptyCart         = fmt.Errorf("%w: empty cart", ErrValidation)
	ErrLineOutOfRange    = fmt.Errorf("%w: cart line out of range", ErrValidation)
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", ErrValidation)
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", ErrValidation)
	ErrOrderNotCancelled = fmt.Errorf("%w: only cancelled orders can be deleted", ErrValidation)
	ErrUserAlreadyExists = fmt.Errorf("%w: user already exists", ErrValidation)

	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrAuthenticationRequired)
	ErrSessionExpired     = fmt.Errorf("%w: session expired", ErrAuthenticationRequired)

	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	ErrOrderNotFound   = fmt.Errorf("order %w", ErrNotFound)
)

// StorageFailure wraps a collaborator failure so both the kind and the
// collaborator's message survive.
func StorageFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
