package models

import (
	"errors"
	"fmt"
)

// InsufficientStockError is the business rejection returned when a
// decrement would take stock below zero. Available carries the current
// stock, i.e. the maximum quantity still addable. Never retried.
type InsufficientStockError struct {
	Key       ProductKey
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.Key, e.Requested, e.Available)
}

// ValidationError is a structural or value failure from the validator.
// Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ConnectivityError wraps a transient remote failure that survived the
// retry budget.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("remote unavailable during %s: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// StructuralDataError means the remote payload did not match the
// expected shape. The cache treats it as a fetch failure.
type StructuralDataError struct {
	Path string
	Err  error
}

func (e *StructuralDataError) Error() string {
	return fmt.Sprintf("malformed remote data at %s: %v", e.Path, e.Err)
}

func (e *StructuralDataError) Unwrap() error { return e.Err }

// PartialReleaseError reports that a best-effort stock restoration
// failed remotely after the cart already changed locally. A warning,
// not fatal: the cart stays consistent, inventory may drift.
type PartialReleaseError struct {
	Key ProductKey
	Qty int
	Err error
}

func (e *PartialReleaseError) Error() string {
	return fmt.Sprintf("failed to restore %d units of %s: %v", e.Qty, e.Key, e.Err)
}

func (e *PartialReleaseError) Unwrap() error { return e.Err }

// IsBusinessError reports whether err is a deterministic rejection that
// retrying cannot fix. The retry executor returns these immediately.
func IsBusinessError(err error) bool {
	var ins *InsufficientStockError
	var val *ValidationError
	return errors.As(err, &ins) || errors.As(err, &val)
}
