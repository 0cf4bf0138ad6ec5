package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/xavierca1/lead-orchestrator/internal/infra/integration/leadapi"
)

// ValidationError is raised locally, before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ConflictError means the action is already in progress or already done.
type ConflictError struct {
	Key     string
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func IsConflictError(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

type ErrorKind string

const (
	ErrKindValidation ErrorKind = "validation"
	ErrKindConflict   ErrorKind = "conflict"
	ErrKindBackend    ErrorKind = "backend"
	ErrKindNetwork    ErrorKind = "network"
	ErrKindInternal   ErrorKind = "internal"
)

// KindOf classifies err into the dispatch error taxonomy.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case IsValidationError(err):
		return ErrKindValidation
	case IsConflictError(err):
		return ErrKindConflict
	case leadapi.IsBackendError(err):
		return ErrKindBackend
	case leadapi.IsNetworkError(err), errors.Is(err, context.DeadlineExceeded):
		return ErrKindNetwork
	default:
		return ErrKindInternal
	}
}
