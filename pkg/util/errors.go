// Package util provides logging helpers and common error types.
package util

import (
	"errors"
	"fmt"
)

// Sentinel errors for the per-host failure taxonomy. Every hard failure a
// host can hit wraps exactly one of these, so callers and tests can classify
// outcomes with errors.Is.
var (
	ErrConnect         = errors.New("SSH connect failed")
	ErrRead            = errors.New("read config failed")
	ErrWrite           = errors.New("write config failed")
	ErrMalformedConfig = errors.New("malformed config")
	ErrInvalidEntry    = errors.New("invalid pool entry")
	ErrBackup          = errors.New("backup failed")
)

// HostError wraps a failure with the host it occurred on.
type HostError struct {
	Host string
	Err  error
}

func (e *HostError) Error() string {
	return fmt.Sprintf("%s: %v", e.Host, e.Err)
}

func (e *HostError) Unwrap() error {
	return e.Err
}

// NewHostError creates a host-scoped error
func NewHostError(host string, err error) *HostError {
	return &HostError{Host: host, Err: err}
}
