package core

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrNotFound      = errors.New("not found")
	ErrSamePerson    = errors.New("creditor and debtor must differ")
)

// ValidationError reports malformed input. It is always returned before any
// state is touched.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Is lets callers match on ErrValidation, and on ErrInvalidAmount for amount
// fields.
func (e *ValidationError) Is(target error) bool {
	if target == ErrValidation {
		return true
	}
	return target == ErrInvalidAmount && e.Field == "amount"
}

// NotFoundError reports a missing transaction, debt, budget, category or
// balance.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Kind)
	}
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NotFound is a shorthand for &NotFoundError{Kind: kind, Key: key}.
func NotFound(kind, key string) error {
	return &NotFoundError{Kind: kind, Key: key}
}
