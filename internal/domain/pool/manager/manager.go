// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package manager implements the node pool: registry, heartbeat ingestion,
// node selection, offline detection and failover orchestration.
package manager

import (
	"context"
	"errors"
	"time"

	"github.com/ManuGH/vpspool/internal/domain/pool/model"
	"github.com/ManuGH/vpspool/internal/domain/pool/store"
	"github.com/ManuGH/vpspool/internal/log"
	"github.com/ManuGH/vpspool/internal/notify"
	"github.com/ManuGH/vpspool/internal/telemetry"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// DefaultRemoteTimeout bounds each backup and restore call.
const DefaultRemoteTimeout = 10 * time.Second

// BackupService snapshots a session on its current node.
type BackupService interface {
	CreateBackup(ctx context.Context, sessionID, nodeID string) (backupID string, err error)
}

// RestoreClient asks a node to restore a session from a backup. A nil error
// means the node accepted the request.
type RestoreClient interface {
	Restore(ctx context.Context, node *model.Node, sessionID, backupID string) error
}

// Deps are the collaborators of a Manager. Store, Backup and Restorer are required.
type Deps struct {
	Store    store.Store
	Backup   BackupService
	Restorer RestoreClient
	Notifier notify.Publisher
	Clock    clock.Clock

	RemoteTimeout time.Duration
	NewID         func() string
}

// Manager owns every pool operation. It keeps no state of its own; all of
// it lives in the store, so handlers may call it concurrently.
type Manager struct {
	store    store.Store
	backup   BackupService
	restorer RestoreClient
	notifier notify.Publisher
	clock    clock.Clock
	tracer   trace.Tracer

	remoteTimeout time.Duration
	newID         func() string
}

// New validates deps and fills defaults.
func New(deps Deps) (*Manager, error) {
	if deps.Store == nil {
		return nil, errors.New("manager: store is required")
	}
	if deps.Backup == nil {
		return nil, errors.New("manager: backup service is required")
	}
	if deps.Restorer == nil {
		return nil, errors.New("manager: restore client is required")
	}

	m := &Manager{
		store:         deps.Store,
		backup:        deps.Backup,
		restorer:      deps.Restorer,
		notifier:      deps.Notifier,
		clock:         deps.Clock,
		tracer:        telemetry.Tracer("vpspool/manager"),
		remoteTimeout: deps.RemoteTimeout,
		newID:         deps.NewID,
	}
	if m.notifier == nil {
		m.notifier = notify.Nop{}
	}
	if m.clock == nil {
		m.clock = clock.New()
	}
	if m.remoteTimeout <= 0 {
		m.remoteTimeout = DefaultRemoteTimeout
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	return m, nil
}

// Store exposes the underlying store for health checks.
func (m *Manager) Store() store.Store { return m.store }

// Clock returns the clock used for all timestamps.
func (m *Manager) Clock() clock.Clock { return m.clock }

func (m *Manager) now() time.Time {
	return m.clock.Now().UTC()
}

func (m *Manager) publish(ctx context.Context, ev notify.Event) {
	if ev.At.IsZero() {
		ev.At = m.now()
	}
	if err := m.notifier.Publish(ctx, ev); err != nil {
		logger := log.WithComponentFromContext(ctx, "notify")
		logger.Warn().Err(err).
			Str("event", "notify.failed").
			Str("kind", string(ev.Kind)).
			Msg("operator notification not delivered")
	}
}
