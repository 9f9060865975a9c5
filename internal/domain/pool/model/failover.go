// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import "time"

// FailoverStatus is the state of a session migration.
type FailoverStatus string

const (
	FailoverPending   FailoverStatus = "pending"
	FailoverBackingUp FailoverStatus = "backing_up"
	FailoverMigrating FailoverStatus = "migrating"
	FailoverRestoring FailoverStatus = "restoring"
	FailoverCompleted FailoverStatus = "completed"
	FailoverFailed    FailoverStatus = "failed"
)

// IsTerminal returns true if the state is a final state.
func (s FailoverStatus) IsTerminal() bool {
	switch s {
	case FailoverCompleted, FailoverFailed:
		return true
	}
	return false
}

// FailoverReason records why a failover was opened.
type FailoverReason string

const (
	ReasonManual          FailoverReason = "manual"
	ReasonOfflineDetected FailoverReason = "offline-detected"
	ReasonOperatorRetry   FailoverReason = "operator-retry"
)

// Failover is the persistent record of one migration attempt.
type Failover struct {
	ID           string         `json:"id"`
	SessionID    string         `json:"session_id"`
	SourceNodeID string         `json:"source_node_id,omitempty"`
	TargetNodeID string         `json:"target_node_id,omitempty"`
	Reason       FailoverReason `json:"reason"`
	Status       FailoverStatus `json:"status"`
	BackupID     string         `json:"backup_id,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	RetryOf      string         `json:"retry_of,omitempty"`

	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	BackupStartedAt *time.Time `json:"backup_started_at,omitempty"`
	MigratingAt     *time.Time `json:"migrating_at,omitempty"`
	RestoringAt     *time.Time `json:"restoring_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy safe to mutate independently.
func (f *Failover) Clone() *Failover {
	if f == nil {
		return nil
	}
	c := *f
	c.BackupStartedAt = cloneTime(f.BackupStartedAt)
	c.MigratingAt = cloneTime(f.MigratingAt)
	c.RestoringAt = cloneTime(f.RestoringAt)
	c.CompletedAt = cloneTime(f.CompletedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
