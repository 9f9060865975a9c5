// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"errors"
	"fmt"

	"github.com/ManuGH/vpspool/internal/domain/pool/lifecycle"
	"github.com/ManuGH/vpspool/internal/domain/pool/store"
)

// Error classes returned by the manager. Callers test them with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrConflict        = errors.New("conflict")
	ErrNoNodeAvailable = errors.New("no node available")
	ErrRemoteFailure   = errors.New("remote failure")
	ErrNotFound        = errors.New("not found")
	ErrReassignFailed  = errors.New("session reassignment failed")
)

// classify maps store and lifecycle errors onto the manager's classes and
// leaves everything else untouched.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrReassignFailed):
		return fmt.Errorf("%w: %v", ErrReassignFailed, err)
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, store.ErrActiveFailoverExists),
		errors.Is(err, lifecycle.ErrTerminal),
		errors.Is(err, lifecycle.ErrIllegalTransition):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func remoteFailure(op string, err error) string {
	return fmt.Errorf("%w: %s: %v", ErrRemoteFailure, op, err).Error()
}

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}
