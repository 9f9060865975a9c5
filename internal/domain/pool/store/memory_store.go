// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ManuGH/vpspool/internal/domain/pool/model"
)

// MemoryStore keeps all records in process memory. It is used by tests and
// single-process deployments that accept losing state on restart.
type MemoryStore struct {
	mu        sync.RWMutex
	nodes     map[string]*model.Node
	sessions  map[string]*model.Session
	failovers map[string]*model.Failover
	active    map[string]string // session id -> non-terminal failover id
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:     make(map[string]*model.Node),
		sessions:  make(map[string]*model.Session),
		failovers: make(map[string]*model.Failover),
		active:    make(map[string]string),
	}
}

func (s *MemoryStore) Close() error { return nil }
func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

// --- Nodes ---

func (s *MemoryStore) PutNode(ctx context.Context, n *model.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.ID] = n.Clone()
	return nil
}

func (s *MemoryStore) GetNode(ctx context.Context, id string) (*model.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes[id].Clone(), nil
}

func (s *MemoryStore) ListNodes(ctx context.Context, filter NodeFilter) ([]*model.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		if filter.matches(n) {
			out = append(out, n.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) UpdateNode(ctx context.Context, id string, fn func(*model.Node) error) (*model.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.nodes[id] = next
	return next.Clone(), nil
}

// --- Sessions ---

func (s *MemoryStore) PutSession(ctx context.Context, sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

func (s *MemoryStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id].Clone(), nil
}

func (s *MemoryStore) ListSessionsByNode(ctx context.Context, nodeID string) ([]*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Session
	for _, sess := range s.sessions {
		if sess.NodeID == nodeID {
			out = append(out, sess.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) AssignSession(ctx context.Context, sessionID, nodeID string, now time.Time) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assignLocked(sessionID, nodeID, now)
}

func (s *MemoryStore) assignLocked(sessionID, nodeID string, now time.Time) (*model.Session, error) {
	target, ok := s.nodes[nodeID]
	if !ok {
		return nil, ErrNotFound
	}

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &model.Session{ID: sessionID, CreatedAt: now}
	} else {
		sess = sess.Clone()
	}

	if sess.NodeID != nodeID {
		if prev, ok := s.nodes[sess.NodeID]; ok && prev.CurrentSessions > 0 {
			prev.CurrentSessions--
			prev.UpdatedAt = now
		}
		target.CurrentSessions++
		target.UpdatedAt = now
	}
	sess.NodeID = nodeID
	sess.UpdatedAt = now
	s.sessions[sessionID] = sess
	return sess.Clone(), nil
}

// --- Failovers ---

func (s *MemoryStore) CreateFailover(ctx context.Context, rec *model.Failover) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !rec.Status.IsTerminal() {
		if _, busy := s.active[rec.SessionID]; busy {
			return ErrActiveFailoverExists
		}
		s.active[rec.SessionID] = rec.ID
	}
	s.failovers[rec.ID] = rec.Clone()
	return nil
}

func (s *MemoryStore) GetFailover(ctx context.Context, id string) (*model.Failover, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failovers[id].Clone(), nil
}

func (s *MemoryStore) ActiveFailover(ctx context.Context, sessionID string) (*model.Failover, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.active[sessionID]
	if !ok {
		return nil, nil
	}
	return s.failovers[id].Clone(), nil
}

func (s *MemoryStore) ListFailovers(ctx context.Context, filter FailoverFilter) ([]*model.Failover, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Failover
	for _, rec := range s.failovers {
		if filter.matches(rec) {
			out = append(out, rec.Clone())
		}
	}
	sortFailoversNewestFirst(out)
	return applyLimit(out, filter.Limit), nil
}

func (s *MemoryStore) UpdateFailover(ctx context.Context, id string, fn func(*model.Failover) error) (*model.Failover, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateFailoverLocked(id, fn, nil)
}

func (s *MemoryStore) SettleFailover(ctx context.Context, id string, fn func(*model.Failover) error, now time.Time) (*model.Failover, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateFailoverLocked(id, fn, func(rec *model.Failover) error {
		if rec.Status != model.FailoverCompleted {
			return nil
		}
		_, err := s.assignLocked(rec.SessionID, rec.TargetNodeID, now)
		if err != nil {
			return fmt.Errorf("%w: session %s to %s: %w", ErrReassignFailed, rec.SessionID, rec.TargetNodeID, err)
		}
		return nil
	})
}

// updateFailoverLocked applies fn and then after, which may reject the
// update before anything is stored. assignLocked fails before mutating.
func (s *MemoryStore) updateFailoverLocked(id string, fn, after func(*model.Failover) error) (*model.Failover, error) {
	cur, ok := s.failovers[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if after != nil {
		if err := after(next); err != nil {
			return nil, err
		}
	}
	if next.Status.IsTerminal() && s.active[next.SessionID] == id {
		delete(s.active, next.SessionID)
	}
	s.failovers[id] = next
	return next.Clone(), nil
}

func sortFailoversNewestFirst(list []*model.Failover) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
}
