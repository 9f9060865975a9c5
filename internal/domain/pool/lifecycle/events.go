// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lifecycle

// EventKind is a domain event in the failover lifecycle.
type EventKind int

const (
	EvUnknown EventKind = iota
	EvBackupStarted
	EvBackupSucceeded
	EvBackupFailed
	EvRestoreAccepted
	EvRestoreFailed
	EvMigrationConfirmed
	EvMigrationFailed
	EvNoTargetAvailable
)

var eventNames = map[EventKind]string{
	EvUnknown:            "unknown",
	EvBackupStarted:      "backup_started",
	EvBackupSucceeded:    "backup_succeeded",
	EvBackupFailed:       "backup_failed",
	EvRestoreAccepted:    "restore_accepted",
	EvRestoreFailed:      "restore_failed",
	EvMigrationConfirmed: "migration_confirmed",
	EvMigrationFailed:    "migration_failed",
	EvNoTargetAvailable:  "no_target_available",
}

func (e EventKind) String() string {
	if n, ok := eventNames[e]; ok {
		return n
	}
	return "unknown"
}
