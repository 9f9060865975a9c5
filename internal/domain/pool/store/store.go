// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package store persists nodes, sessions and failovers.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ManuGH/vpspool/internal/domain/pool/model"
)

var (
	// ErrNotFound is returned by update operations when the record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrActiveFailoverExists is returned by CreateFailover when the session
	// already has a non-terminal failover.
	ErrActiveFailoverExists = errors.New("session has an active failover")
	// ErrReassignFailed is returned by SettleFailover when the session could
	// not be moved to the target node. Nothing was written.
	ErrReassignFailed = errors.New("session reassignment failed")
)

// NodeFilter narrows ListNodes.
type NodeFilter struct {
	ActiveOnly bool
	Region     string
}

func (f NodeFilter) matches(n *model.Node) bool {
	if f.ActiveOnly && !n.IsActive {
		return false
	}
	if f.Region != "" && n.Region != f.Region {
		return false
	}
	return true
}

// FailoverFilter narrows ListFailovers. Zero value lists everything.
type FailoverFilter struct {
	SessionID string
	Statuses  []model.FailoverStatus
	Limit     int
}

func (f FailoverFilter) matches(rec *model.Failover) bool {
	if f.SessionID != "" && rec.SessionID != f.SessionID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, st := range f.Statuses {
		if rec.Status == st {
			return true
		}
	}
	return false
}

// Store is the single source of truth for pool state. Every call is its own
// transaction; Get methods return (nil, nil) when the record does not exist.
type Store interface {
	PutNode(ctx context.Context, n *model.Node) error
	GetNode(ctx context.Context, id string) (*model.Node, error)
	// ListNodes returns nodes ordered by creation time, then id.
	ListNodes(ctx context.Context, filter NodeFilter) ([]*model.Node, error)
	UpdateNode(ctx context.Context, id string, fn func(*model.Node) error) (*model.Node, error)

	PutSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	ListSessionsByNode(ctx context.Context, nodeID string) ([]*model.Session, error)
	// AssignSession points the session at nodeID, creating the session if it
	// is unknown, and moves the current_sessions bookkeeping from the previous
	// node to the new one. It does not check capacity.
	AssignSession(ctx context.Context, sessionID, nodeID string, now time.Time) (*model.Session, error)

	// CreateFailover inserts rec. A non-terminal rec is rejected with
	// ErrActiveFailoverExists if the session already has one.
	CreateFailover(ctx context.Context, rec *model.Failover) error
	GetFailover(ctx context.Context, id string) (*model.Failover, error)
	ActiveFailover(ctx context.Context, sessionID string) (*model.Failover, error)
	// ListFailovers returns records newest first.
	ListFailovers(ctx context.Context, filter FailoverFilter) ([]*model.Failover, error)
	UpdateFailover(ctx context.Context, id string, fn func(*model.Failover) error) (*model.Failover, error)
	// SettleFailover applies fn like UpdateFailover. When the result is
	// completed the session moves to the target node in the same transaction;
	// if that assignment fails neither write lands.
	SettleFailover(ctx context.Context, id string, fn func(*model.Failover) error, now time.Time) (*model.Failover, error)

	Ping(ctx context.Context) error
	Close() error
}

func applyLimit[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
