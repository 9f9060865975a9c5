// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldNodeID        = "node_id"
	FieldSessionID     = "session_id"
	FieldFailoverID    = "failover_id"
	FieldTargetNodeID  = "target_node_id"
	FieldSourceNodeID  = "source_node_id"
	FieldBackupID      = "backup_id"
	FieldCorrelationID = "correlation_id"
	FieldRequestID     = "request_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldReason   = "reason"

	// Node health fields
	FieldRegion      = "region"
	FieldHealthScore = "health_score"
	FieldStatus      = "status"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"
)
