package util

import (
	"errors"
	"fmt"
	"testing"
)

func TestHostError(t *testing.T) {
	err := NewHostError("10.0.0.5", fmt.Errorf("%w: dial timeout", ErrConnect))

	if got := err.Error(); got != "10.0.0.5: SSH connect failed: dial timeout" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrConnect) {
		t.Error("HostError should unwrap to the underlying sentinel")
	}
}

func TestSentinelClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"connect", fmt.Errorf("%w: no route to host", ErrConnect), ErrConnect},
		{"read", fmt.Errorf("%w: cat exited 1", ErrRead), ErrRead},
		{"write", fmt.Errorf("%w: disk full", ErrWrite), ErrWrite},
		{"malformed", fmt.Errorf("%w: pools key missing", ErrMalformedConfig), ErrMalformedConfig},
		{"invalid entry", fmt.Errorf("%w: url is not a string", ErrInvalidEntry), ErrInvalidEntry},
		{"backup", fmt.Errorf("%w: mkdir denied", ErrBackup), ErrBackup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, sentinel) = false", tt.err)
			}
			// Each error maps to exactly one sentinel
			for _, other := range tests {
				if other.sentinel != tt.sentinel && errors.Is(tt.err, other.sentinel) {
					t.Errorf("%v also matches %v", tt.err, other.sentinel)
				}
			}
		})
	}
}
