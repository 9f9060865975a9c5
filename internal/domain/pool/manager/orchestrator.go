// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ManuGH/vpspool/internal/domain/pool/lifecycle"
	"github.com/ManuGH/vpspool/internal/domain/pool/model"
	"github.com/ManuGH/vpspool/internal/domain/pool/store"
	"github.com/ManuGH/vpspool/internal/log"
	"github.com/ManuGH/vpspool/internal/metrics"
	"github.com/ManuGH/vpspool/internal/notify"
	"github.com/ManuGH/vpspool/internal/telemetry"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const noNodeMessage = "no node available"

// InitiateRequest opens a failover for a session. TargetNodeID is optional;
// without it the selector picks a node other than the session's current one.
type InitiateRequest struct {
	SessionID    string
	Reason       model.FailoverReason
	TargetNodeID string
}

// InitiateFailover creates a pending failover. When no target can be found
// the record is created directly as failed and returned together with
// ErrNoNodeAvailable.
func (m *Manager) InitiateFailover(ctx context.Context, req InitiateRequest) (*model.Failover, error) {
	return m.initiate(ctx, req, "")
}

func (m *Manager) initiate(ctx context.Context, req InitiateRequest, retryOf string) (*model.Failover, error) {
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.TargetNodeID = strings.TrimSpace(req.TargetNodeID)
	if req.SessionID == "" {
		return nil, validationError("session_id is required")
	}
	if req.Reason == "" {
		req.Reason = model.ReasonManual
	}
	switch req.Reason {
	case model.ReasonManual, model.ReasonOfflineDetected, model.ReasonOperatorRetry:
	default:
		return nil, validationError("unknown reason %q", req.Reason)
	}

	sess, err := m.store.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, notFound("session", req.SessionID)
	}
	if sess.NodeID == "" {
		return nil, validationError("session %q is not assigned to a node", sess.ID)
	}

	active, err := m.store.ActiveFailover(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		metrics.RecordFailoverInitiated(string(req.Reason), "conflict")
		return nil, fmt.Errorf("%w: session %s already has failover %s (%s)", ErrConflict, sess.ID, active.ID, active.Status)
	}

	logger := log.WithComponentFromContext(ctx, "failover").With().
		Str(log.FieldSessionID, sess.ID).
		Str(log.FieldSourceNodeID, sess.NodeID).
		Str(log.FieldReason, string(req.Reason)).
		Logger()

	targetID := req.TargetNodeID
	if targetID != "" {
		target, err := m.store.GetNode(ctx, targetID)
		if err != nil {
			return nil, err
		}
		if target == nil || !target.IsActive {
			return nil, validationError("target node %q does not exist or is inactive", targetID)
		}
		if target.ID == sess.NodeID {
			return nil, validationError("target node %q already hosts session %q", targetID, sess.ID)
		}
	} else {
		target, err := m.SelectBest(ctx, "", sess.NodeID)
		switch {
		case errors.Is(err, ErrNoNodeAvailable):
			rec, cerr := m.createNoNodeRecord(ctx, sess, req.Reason, retryOf)
			if cerr != nil {
				return nil, cerr
			}
			logger.Warn().
				Str("event", "failover.no_node").
				Str(log.FieldFailoverID, rec.ID).
				Msg("failover opened without target")
			return rec, ErrNoNodeAvailable
		case err != nil:
			return nil, err
		}
		targetID = target.ID
	}

	now := m.now()
	rec := &model.Failover{
		ID:           m.newID(),
		SessionID:    sess.ID,
		SourceNodeID: sess.NodeID,
		TargetNodeID: targetID,
		Reason:       req.Reason,
		Status:       model.FailoverPending,
		RetryOf:      retryOf,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.store.CreateFailover(ctx, rec); err != nil {
		if errors.Is(err, store.ErrActiveFailoverExists) {
			metrics.RecordFailoverInitiated(string(req.Reason), "conflict")
		}
		return nil, classify(err)
	}

	metrics.RecordFailoverInitiated(string(req.Reason), "pending")
	logger.Info().
		Str("event", "failover.initiated").
		Str(log.FieldFailoverID, rec.ID).
		Str(log.FieldTargetNodeID, targetID).
		Str("retry_of", retryOf).
		Msg("failover initiated")
	return rec, nil
}

func (m *Manager) createNoNodeRecord(ctx context.Context, sess *model.Session, reason model.FailoverReason, retryOf string) (*model.Failover, error) {
	now := m.now()
	rec := &model.Failover{
		ID:           m.newID(),
		SessionID:    sess.ID,
		SourceNodeID: sess.NodeID,
		Reason:       reason,
		Status:       model.FailoverPending,
		RetryOf:      retryOf,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// Born failed through the pending -> failed edge.
	if _, err := lifecycle.Apply(rec, lifecycle.EvNoTargetAvailable, now); err != nil {
		return nil, err
	}
	rec.ErrorMessage = noNodeMessage
	if err := m.store.CreateFailover(ctx, rec); err != nil {
		return nil, classify(err)
	}

	metrics.RecordFailoverInitiated(string(reason), "no_node")
	m.publish(ctx, notify.Event{
		Kind:       notify.KindNoNodeAvailable,
		NodeID:     sess.NodeID,
		SessionID:  sess.ID,
		FailoverID: rec.ID,
		Message:    noNodeMessage,
	})
	return rec, nil
}

// ExecuteFailover runs backup and restore for a pending failover. Remote
// failures end in the failed state and are reported through the returned
// record, not the error. Running it on anything but a pending record is
// ErrConflict.
func (m *Manager) ExecuteFailover(ctx context.Context, id string) (*model.Failover, error) {
	ctx, span := m.tracer.Start(ctx, "failover.execute")
	defer span.End()

	rec, err := m.transition(ctx, id, lifecycle.EvBackupStarted, nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(telemetry.FailoverAttributes(rec.ID, rec.SessionID, string(rec.Status),
		string(rec.Reason), rec.SourceNodeID, rec.TargetNodeID)...)

	// Persist state changes even if the caller goes away mid-flight.
	persistCtx := context.WithoutCancel(ctx)

	backupID, err := m.createBackup(ctx, rec)
	if err != nil {
		return m.failRemote(persistCtx, span, rec.ID, lifecycle.EvBackupFailed, "backup", err)
	}

	rec, err = m.transition(persistCtx, rec.ID, lifecycle.EvBackupSucceeded, func(f *model.Failover) {
		f.BackupID = backupID
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	target, err := m.store.GetNode(persistCtx, rec.TargetNodeID)
	if err != nil {
		return m.failRemote(persistCtx, span, rec.ID, lifecycle.EvRestoreFailed, "restore", err)
	}
	if target == nil {
		return m.failRemote(persistCtx, span, rec.ID, lifecycle.EvRestoreFailed, "restore",
			fmt.Errorf("target node %q not found", rec.TargetNodeID))
	}

	rctx, cancel := context.WithTimeout(ctx, m.remoteTimeout)
	err = m.restorer.Restore(rctx, target, rec.SessionID, backupID)
	cancel()
	if err != nil {
		return m.failRemote(persistCtx, span, rec.ID, lifecycle.EvRestoreFailed, "restore", err)
	}

	rec, err = m.transition(persistCtx, rec.ID, lifecycle.EvRestoreAccepted, nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return rec, nil
}

func (m *Manager) createBackup(ctx context.Context, rec *model.Failover) (string, error) {
	bctx, cancel := context.WithTimeout(ctx, m.remoteTimeout)
	defer cancel()

	backupID, err := m.backup.CreateBackup(bctx, rec.SessionID, rec.SourceNodeID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(backupID) == "" {
		return "", errors.New("backup service returned an empty backup id")
	}
	return backupID, nil
}

func (m *Manager) failRemote(ctx context.Context, span trace.Span, id string, ev lifecycle.EventKind, op string, cause error) (*model.Failover, error) {
	span.RecordError(cause, trace.WithAttributes(telemetry.ErrorAttributes(op)...))
	span.SetStatus(codes.Error, op+" failed")

	msg := remoteFailure(op, cause)
	rec, err := m.transition(ctx, id, ev, func(f *model.Failover) {
		f.ErrorMessage = msg
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// CompleteFailover records the outcome reported for a restoring failover.
// On success the session moves to the target node in the same store
// transaction; when that move fails the result is ErrReassignFailed and the
// record stays restoring. Terminal records and records that are not
// restoring yield ErrConflict and change nothing.
func (m *Manager) CompleteFailover(ctx context.Context, id string, success bool, errMsg string) (*model.Failover, error) {
	ev := lifecycle.EvMigrationConfirmed
	var mutate func(*model.Failover)
	if !success {
		ev = lifecycle.EvMigrationFailed
		if strings.TrimSpace(errMsg) == "" {
			errMsg = "migration failed"
		}
		mutate = func(f *model.Failover) { f.ErrorMessage = errMsg }
	}

	settle := func(ctx context.Context, id string, fn func(*model.Failover) error) (*model.Failover, error) {
		return m.store.SettleFailover(ctx, id, fn, m.now())
	}
	rec, err := m.transitionWith(ctx, id, ev, mutate, settle)
	if errors.Is(err, ErrReassignFailed) {
		logger := log.WithComponentFromContext(ctx, "failover")
		logger.Error().Err(err).
			Str("event", "failover.assign_failed").
			Str(log.FieldFailoverID, id).
			Msg("session could not be reassigned, failover left restoring")
	}
	return rec, err
}

// RetryFailover opens a new pending failover for the session of a failed
// one. The old target is reused while it is still eligible. The failed
// record is left untouched.
func (m *Manager) RetryFailover(ctx context.Context, id string) (*model.Failover, error) {
	old, err := m.GetFailover(ctx, id)
	if err != nil {
		return nil, err
	}
	if old.Status != model.FailoverFailed {
		return nil, fmt.Errorf("%w: failover %s is %s, only failed failovers can be retried", ErrConflict, old.ID, old.Status)
	}

	sess, err := m.store.GetSession(ctx, old.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, notFound("session", old.SessionID)
	}

	target := ""
	if old.TargetNodeID != "" {
		n, err := m.store.GetNode(ctx, old.TargetNodeID)
		if err != nil {
			return nil, err
		}
		if eligible(n, "", sess.NodeID) {
			target = n.ID
		}
	}

	return m.initiate(ctx, InitiateRequest{
		SessionID:    old.SessionID,
		Reason:       model.ReasonOperatorRetry,
		TargetNodeID: target,
	}, old.ID)
}

// GetFailover returns the record or ErrNotFound.
func (m *Manager) GetFailover(ctx context.Context, id string) (*model.Failover, error) {
	rec, err := m.store.GetFailover(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, notFound("failover", id)
	}
	return rec, nil
}

// ListFailovers returns failovers newest first.
func (m *Manager) ListFailovers(ctx context.Context, filter store.FailoverFilter) ([]*model.Failover, error) {
	return m.store.ListFailovers(ctx, filter)
}

// transition applies one lifecycle event atomically and reports it.
func (m *Manager) transition(ctx context.Context, id string, ev lifecycle.EventKind, mutate func(*model.Failover)) (*model.Failover, error) {
	return m.transitionWith(ctx, id, ev, mutate, m.store.UpdateFailover)
}

type failoverUpdater func(ctx context.Context, id string, fn func(*model.Failover) error) (*model.Failover, error)

func (m *Manager) transitionWith(ctx context.Context, id string, ev lifecycle.EventKind, mutate func(*model.Failover), update failoverUpdater) (*model.Failover, error) {
	var tr lifecycle.Transition
	rec, err := update(ctx, id, func(f *model.Failover) error {
		t, err := lifecycle.Apply(f, ev, m.now())
		if err != nil {
			return err
		}
		tr = t
		if mutate != nil {
			mutate(f)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	metrics.RecordFailoverTransition(string(tr.From), string(tr.To))
	logger := log.WithComponentFromContext(ctx, "failover")
	evt := logger.Info()
	if tr.To == model.FailoverFailed {
		evt = logger.Warn().Str("error", rec.ErrorMessage)
	}
	evt.Str("event", "failover."+ev.String()).
		Str(log.FieldFailoverID, rec.ID).
		Str(log.FieldSessionID, rec.SessionID).
		Str(log.FieldOldState, string(tr.From)).
		Str(log.FieldNewState, string(tr.To)).
		Str(log.FieldBackupID, rec.BackupID).
		Msg("failover transition")

	switch tr.To {
	case model.FailoverCompleted:
		m.publish(ctx, notify.Event{
			Kind: notify.KindFailoverCompleted, NodeID: rec.TargetNodeID,
			SessionID: rec.SessionID, FailoverID: rec.ID,
		})
	case model.FailoverFailed:
		m.publish(ctx, notify.Event{
			Kind: notify.KindFailoverFailed, NodeID: rec.SourceNodeID,
			SessionID: rec.SessionID, FailoverID: rec.ID, Message: rec.ErrorMessage,
		})
	}
	return rec, nil
}
