package services

import "errors"

// Domain errors. Handlers map these onto HTTP statuses with errors.Is;
// anything else is a storage failure and surfaces as a generic 500 after
// the enclosing transaction rolled back.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state")
	ErrValidation         = errors.New("validation failed")
	ErrInsufficientPoints = errors.New("insufficient points")
)
