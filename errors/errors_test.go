package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestOpaque(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"unwrap", ErrUnwrap, ErrDecryptFailed},
		{"padding", ErrPadding, ErrDecryptFailed},
		{"malformed payload", ErrMalformedPayload, ErrDecryptFailed},
		{"sealed key", ErrKeyDecryptFailed, ErrDecryptFailed},
		{"wrapped unwrap", fmt.Errorf("decrypt: %w", ErrUnwrap), ErrDecryptFailed},
		{"key format passes through", ErrKeyFormat, ErrKeyFormat},
		{"not found passes through", ErrFileNotFound, ErrFileNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Opaque(tt.in)
			if !errors.Is(got, tt.want) && got != tt.want {
				t.Errorf("Opaque(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestOpaque_HidesDetail(t *testing.T) {
	padErr := Opaque(fmt.Errorf("unpad: %w", ErrPadding))
	unwrapErr := Opaque(fmt.Errorf("oaep: %w", ErrUnwrap))

	if padErr.Error() != unwrapErr.Error() {
		t.Errorf("messages differ: %q vs %q", padErr, unwrapErr)
	}
	if errors.Is(padErr, ErrPadding) {
		t.Error("collapsed error still matches ErrPadding")
	}
}
