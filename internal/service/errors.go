package service

import (
	"errors"
	"fmt"
	"io/fs"

	"vaultindex/internal/indexer"
	"vaultindex/internal/storage"
	"vaultindex/internal/vault"
	"vaultindex/internal/vectorstore"
)

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("not found")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Kind classifies errors crossing the service boundary.
type Kind int

const (
	KindUnknown Kind = iota
	KindIO
	KindNotFound
	KindDimensionMismatch
	KindConversion
	KindIndicatorNotFound
	KindTaskFailure
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindNotFound:
		return "not_found"
	case KindDimensionMismatch:
		return "dimension_mismatch"
	case KindConversion:
		return "conversion"
	case KindIndicatorNotFound:
		return "indicator_not_found"
	case KindTaskFailure:
		return "task_failure"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// KindOf returns the kind of the first recognised error in err's chain.
func KindOf(err error) Kind {
	var pathErr *fs.PathError
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrNotFound),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, vectorstore.ErrTableNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, vectorstore.ErrInvalidFilter):
		return KindInvalidInput
	case errors.Is(err, vectorstore.ErrDimensionMismatch):
		return KindDimensionMismatch
	case errors.Is(err, vectorstore.ErrConversion):
		return KindConversion
	case errors.Is(err, vault.ErrIndicatorNotFound):
		return KindIndicatorNotFound
	case errors.Is(err, indexer.ErrTaskFailure):
		return KindTaskFailure
	case errors.As(err, &pathErr):
		return KindIO
	default:
		return KindUnknown
	}
}
