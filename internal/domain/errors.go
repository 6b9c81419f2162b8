package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPreconditionFailed     = errors.New("precondition failed")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrNoActiveShift          = errors.New("no active shift")
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("forbidden")
)

// Reason identifies which shift-start rule was violated.
type Reason string

const (
	ReasonVehicleUnavailable    Reason = "vehicle_unavailable"
	ReasonDriverAlreadyOnShift  Reason = "driver_already_on_shift"
	ReasonVehicleAlreadyOnShift Reason = "vehicle_already_on_shift"
	ReasonDriverIneligible      Reason = "driver_ineligible"
)

type PreconditionError struct {
	Reason Reason
	Detail string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s: %s", e.Reason, e.Detail)
}

func (e *PreconditionError) Unwrap() error { return ErrPreconditionFailed }

// TransitionError is returned when an operation is applied to a shift in the wrong state.
type TransitionError struct {
	Op   string
	From ShiftStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: cannot %s shift in status %s", e.Op, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidStateTransition }

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field violation of one input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// Has reports whether field has at least one violation.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// OrNil returns nil when no violations were added.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// AccessError is a failed capability check.
type AccessError struct {
	Role   Role
	Detail string
}

func (e *AccessError) Error() string { return "forbidden: " + e.Detail }

func (e *AccessError) Unwrap() error { return ErrForbidden }
