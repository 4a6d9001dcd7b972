package types

import (
	"errors"
	"fmt"
)

// Error classes. Callers branch on them with errors.Is: validation errors
// are rejected, contention errors may be retried.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrContention = errors.New("exclusive scope unavailable")
	ErrInvariant  = errors.New("invariant violated")
)

// ValidationError describes a malformed order or request field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError reports an unknown order or asset. It is a validation error too.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound || target == ErrValidation
}

// InvariantError is a programming error detected mid pass; the pass is aborted
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return "invariant violated: " + e.Message
}

func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}

// ContentionError wraps a lock acquisition failure reported by a store
type ContentionError struct {
	AssetID string
	Err     error
}

func (e *ContentionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("asset %s: exclusive scope unavailable", e.AssetID)
	}
	return fmt.Sprintf("asset %s: exclusive scope unavailable: %v", e.AssetID, e.Err)
}

func (e *ContentionError) Is(target error) bool {
	return target == ErrContention
}

func (e *ContentionError) Unwrap() error {
	return e.Err
}
