package service

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"vaultindex/internal/indexer"
	"vaultindex/internal/storage"
	"vaultindex/internal/vault"
	"vaultindex/internal/vectorstore"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "field and message",
			err:  &ValidationError{Field: "query", Message: "cannot be empty"},
			want: "validation error on field query: cannot be empty",
		},
		{
			name: "empty field",
			err:  &ValidationError{Field: "", Message: "invalid"},
			want: "validation error on field : invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("ValidationError.Error() = %v, want %v", got, tt.want)
			}
			if !errors.Is(tt.err, ErrInvalidInput) {
				t.Error("ValidationError should match ErrInvalidInput")
			}
		})
	}
}

func TestWrapError(t *testing.T) {
	if WrapError(nil, "context") != nil {
		t.Error("WrapError(nil) should return nil")
	}
	original := errors.New("original error")
	got := WrapError(original, "context")
	if got.Error() != "context: original error" {
		t.Errorf("WrapError() = %q", got.Error())
	}
	if !errors.Is(got, original) {
		t.Error("WrapError() should keep the original in the chain")
	}
}

func TestKindOf(t *testing.T) {
	_, statErr := os.Stat("/definitely/not/here")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"service not found", fmt.Errorf("doc x: %w", ErrNotFound), KindNotFound},
		{"storage not found", fmt.Errorf("lookup: %w", storage.ErrNotFound), KindNotFound},
		{"table not found", vectorstore.ErrTableNotFound, KindNotFound},
		{"validation", &ValidationError{Field: "q", Message: "empty"}, KindInvalidInput},
		{"bad filter", fmt.Errorf("%w: x", vectorstore.ErrInvalidFilter), KindInvalidInput},
		{"dimension", &vectorstore.DimensionMismatchError{ID: "a", Expected: 4, Actual: 3}, KindDimensionMismatch},
		{"conversion", vectorstore.ErrConversion, KindConversion},
		{"indicator", vault.ErrIndicatorNotFound, KindIndicatorNotFound},
		{"task", fmt.Errorf("%w: boom", indexer.ErrTaskFailure), KindTaskFailure},
		{"io", statErr, KindIO},
		{"other", errors.New("mystery"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}
