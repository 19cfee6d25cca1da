package services

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the services and mapped onto HTTP status codes by
// the controllers. State-transition errors (ErrNotFound, ErrForbidden,
// ErrPrecondition, ErrValidation) abort before any side effect; ErrDispatch
// occurs only after a transition has already committed and must never be
// reported as a failed transition.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrPrecondition = errors.New("precondition failed")
	ErrDispatch     = errors.New("dispatch failed")
	ErrStorage      = errors.New("storage unavailable")
)

func validationErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
