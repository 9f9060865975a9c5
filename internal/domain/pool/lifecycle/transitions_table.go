// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lifecycle

import "github.com/ManuGH/vpspool/internal/domain/pool/model"

// Transition is a single allowed edge in the failover state machine.
type Transition struct {
	From  model.FailoverStatus
	To    model.FailoverStatus
	Event EventKind
}

var transitionsTable = []Transition{
	// Happy path
	{From: model.FailoverPending, To: model.FailoverBackingUp, Event: EvBackupStarted},
	{From: model.FailoverBackingUp, To: model.FailoverMigrating, Event: EvBackupSucceeded},
	{From: model.FailoverMigrating, To: model.FailoverRestoring, Event: EvRestoreAccepted},
	{From: model.FailoverRestoring, To: model.FailoverCompleted, Event: EvMigrationConfirmed},

	// Failure edges
	{From: model.FailoverPending, To: model.FailoverFailed, Event: EvNoTargetAvailable},
	{From: model.FailoverBackingUp, To: model.FailoverFailed, Event: EvBackupFailed},
	{From: model.FailoverMigrating, To: model.FailoverFailed, Event: EvRestoreFailed},
	{From: model.FailoverRestoring, To: model.FailoverFailed, Event: EvMigrationFailed},
}

// TransitionFor returns the allowed transition for a given state+event.
func TransitionFor(from model.FailoverStatus, ev EventKind) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	return Transition{}, false
}
