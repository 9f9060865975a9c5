// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrUnavailable = errors.New("remote: host unreachable or transport failure")
	ErrRejected    = errors.New("remote: request rejected")
	ErrServerError = errors.New("remote: internal error (5xx)")
	ErrBadResponse = errors.New("remote: invalid response format")
	ErrTimeout     = errors.New("remote: request timed out")
)

// Error wraps a sentinel with the operation and HTTP details.
type Error struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Sentinel
}

// classifyTransport maps a transport-level error to a sentinel.
func classifyTransport(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Sentinel: ErrTimeout, Operation: op, Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &Error{Sentinel: ErrTimeout, Operation: op, Err: err}
	default:
		return &Error{Sentinel: ErrUnavailable, Operation: op, Err: err}
	}
}

// classifyStatus maps a non-2xx status to a sentinel.
func classifyStatus(op string, status int, body string) error {
	sentinel := ErrRejected
	if status >= 500 {
		sentinel = ErrServerError
	}
	return &Error{Sentinel: sentinel, Operation: op, Status: status, Body: body}
}

// IsBreakerFailure reports whether err reflects an unhealthy remote. Caller
// cancellation and 4xx rejections do not count.
func IsBreakerFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return !errors.Is(err, ErrRejected)
}
