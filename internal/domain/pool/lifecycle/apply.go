// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lifecycle

import (
	"fmt"
	"time"

	"github.com/ManuGH/vpspool/internal/domain/pool/model"
)

// Apply validates ev against the record's current state and mutates it in place.
// Terminal records are never modified.
func Apply(rec *model.Failover, ev EventKind, now time.Time) (Transition, error) {
	if rec.Status.IsTerminal() {
		return Transition{}, fmt.Errorf("%w: %s is %s", ErrTerminal, rec.ID, rec.Status)
	}
	tr, ok := TransitionFor(rec.Status, ev)
	if !ok {
		return Transition{}, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, ev, rec.Status)
	}
	ApplyTransition(rec, tr, now)
	return tr, nil
}

// ApplyTransition mutates the failover record according to the transition.
func ApplyTransition(rec *model.Failover, tr Transition, now time.Time) {
	rec.Status = tr.To
	ts := now
	switch tr.To {
	case model.FailoverBackingUp:
		rec.BackupStartedAt = &ts
	case model.FailoverMigrating:
		rec.MigratingAt = &ts
	case model.FailoverRestoring:
		rec.RestoringAt = &ts
	case model.FailoverCompleted, model.FailoverFailed:
		rec.CompletedAt = &ts
	}
	rec.UpdatedAt = now
}
