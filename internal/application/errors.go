package application

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the acting scope lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist in the scope's firm.
	ErrNotFound = errors.New("application: not found")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// ConflictError aborts a mutation whose conflict check found overlaps or
// availability blocks and the caller did not override.
type ConflictError struct {
	Report ConflictReport
}

// Error implements the error interface.
func (c *ConflictError) Error() string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("scheduling conflict: %d overlapping events, %d availability blocks",
		len(c.Report.ConflictingEvents), len(c.Report.AvailabilityBlocks))
}

// StateTransitionError reports a lifecycle transition the state machine does
// not permit. The stored state is never forced.
type StateTransitionError struct {
	Entity string
	From   string
	To     string
}

// Error implements the error interface.
func (s *StateTransitionError) Error() string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf("invalid %s transition from %q to %q", s.Entity, s.From, s.To)
}
