package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Dias221467/Walk_Companion/internal/models"
)

// Failure kinds returned by the lifecycle engine. Match with errors.Is.
var (
	ErrNotFound   = errors.New("walk request not found")
	ErrForbidden  = errors.New("actor is not allowed to perform this operation")
	ErrConflict   = errors.New("walk request state does not permit this operation")
	ErrValidation = errors.New("invalid walk request")
)

// TransitionError is a Conflict carrying the state the request was found in.
type TransitionError struct {
	RequestID string
	Current   models.WalkStatus
	Requested models.WalkStatus
	Reason    string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move walk request %s from %s to %s: %s", e.RequestID, e.Current, e.Requested, e.Reason)
}

func (e *TransitionError) Unwrap() error { return ErrConflict }

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationErrors collects every problem found in a create request.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "invalid walk request: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Unwrap() error { return ErrValidation }

// Kind names the failure category of err for logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}
