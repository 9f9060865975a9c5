// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lifecycle

import "errors"

var (
	// ErrIllegalTransition is returned when an event does not apply to the current state.
	ErrIllegalTransition = errors.New("illegal failover transition")
	// ErrTerminal is returned for any event against a completed or failed record.
	ErrTerminal = errors.New("failover already terminal")
)
