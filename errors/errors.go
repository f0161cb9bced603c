package errors

import (
	"fmt"
	"strings"
)

var (
	ErrWorkerPanic              = fmt.Errorf("worker panic")
	ErrParticipantAlreadyExists = fmt.Errorf("participant already exists")
	ErrParticipantNotFound      = fmt.Errorf("participant not found")
	ErrUnknownSender            = fmt.Errorf("unknown sender")
	ErrStorage                  = fmt.Errorf("storage failure")
	ErrEmptyWords               = fmt.Errorf("no words have been found")
)

// FieldError describes one rejected field of a request.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
}

// ValidationError is returned when a request is malformed.
// It carries every rejected field so the caller can report them all at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Tag))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}
