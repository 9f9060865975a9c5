// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"strings"

	"github.com/ManuGH/vpspool/internal/domain/pool/model"
	"github.com/ManuGH/vpspool/internal/domain/pool/scoring"
	"github.com/ManuGH/vpspool/internal/domain/pool/store"
	"github.com/ManuGH/vpspool/internal/log"
	"github.com/ManuGH/vpspool/internal/metrics"
	"github.com/ManuGH/vpspool/internal/validate"
)

// RegisterRequest describes a new node.
type RegisterRequest struct {
	Name        string
	Region      string
	BaseURL     string
	MaxSessions int
	Token       string
}

// Gauges are the load figures a node reports with each heartbeat.
type Gauges struct {
	CPULoad      float64
	MemoryLoad   float64
	SessionCount int
	AvgLatencyMS float64
}

// RegisterNode adds a node. New nodes start offline with score 0 and become
// selectable after their first healthy heartbeat.
func (m *Manager) RegisterNode(ctx context.Context, req RegisterRequest) (*model.Node, error) {
	v := validate.New()
	v.NotEmpty("name", req.Name)
	v.NotEmpty("token", req.Token)
	v.URL("base_url", strings.TrimSpace(req.BaseURL), []string{"http", "https"})
	if req.MaxSessions < 1 {
		v.AddError("max_sessions", "must be at least 1", req.MaxSessions)
	}
	if err := v.Err(); err != nil {
		return nil, validationError("%v", err)
	}

	now := m.now()
	n := &model.Node{
		ID:          m.newID(),
		Name:        strings.TrimSpace(req.Name),
		Region:      strings.TrimSpace(req.Region),
		BaseURL:     strings.TrimRight(strings.TrimSpace(req.BaseURL), "/"),
		Token:       req.Token,
		MaxSessions: req.MaxSessions,
		HealthScore: 0,
		Status:      model.NodeOffline,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.store.PutNode(ctx, n); err != nil {
		return nil, err
	}

	logger := log.WithComponentFromContext(ctx, "registry")

	logger.Info().
		Str("event", "node.registered").
		Str(log.FieldNodeID, n.ID).
		Str(log.FieldRegion, n.Region).
		Str(log.FieldBaseURL, n.BaseURL).
		Int("max_sessions", n.MaxSessions).
		Msg("node registered")
	return n, nil
}

// GetNode returns the node or ErrNotFound.
func (m *Manager) GetNode(ctx context.Context, id string) (*model.Node, error) {
	n, err := m.store.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, notFound("node", id)
	}
	return n, nil
}

// ListNodes returns all nodes, or only active ones.
func (m *Manager) ListNodes(ctx context.Context, activeOnly bool) ([]*model.Node, error) {
	return m.store.ListNodes(ctx, store.NodeFilter{ActiveOnly: activeOnly})
}

// UpdateMetrics stores the gauges of a node and recomputes its score and
// status. A pending manual reset forces the status to offline once.
func (m *Manager) UpdateMetrics(ctx context.Context, nodeID string, g Gauges) (*model.Node, error) {
	n, err := m.store.UpdateNode(ctx, nodeID, func(n *model.Node) error {
		m.applyGauges(n, g)
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	metrics.SetNodeHealthScore(n.ID, n.HealthScore)
	return n, nil
}

func (m *Manager) applyGauges(n *model.Node, g Gauges) {
	sessions := g.SessionCount
	if sessions < 0 {
		sessions = 0
	}

	score := scoring.Score(scoring.Metrics{
		CPULoad:      g.CPULoad,
		MemoryLoad:   g.MemoryLoad,
		SessionCount: sessions,
		MaxSessions:  n.MaxSessions,
		AvgLatencyMS: g.AvgLatencyMS,
	})
	status := scoring.StatusFor(score)
	if n.NeedsReset {
		status = model.NodeOffline
		n.NeedsReset = false
	}

	now := m.now()
	n.CPULoad = g.CPULoad
	n.MemoryLoad = g.MemoryLoad
	n.AvgLatencyMS = g.AvgLatencyMS
	n.CurrentSessions = sessions
	n.HealthScore = score
	n.Status = status
	n.LastHeartbeatAt = now
	n.UpdatedAt = now
}

// AssignSession points a session at a node and moves the session count
// bookkeeping. Capacity is not checked; placement goes through SelectBest.
func (m *Manager) AssignSession(ctx context.Context, sessionID, nodeID string) (*model.Session, error) {
	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(nodeID) == "" {
		return nil, validationError("session id and node id are required")
	}

	sess, err := m.store.AssignSession(ctx, sessionID, nodeID, m.now())
	if err != nil {
		return nil, classify(err)
	}

	logger := log.WithComponentFromContext(ctx, "registry")

	logger.Info().
		Str("event", "session.assigned").
		Str(log.FieldSessionID, sessionID).
		Str(log.FieldNodeID, nodeID).
		Msg("session assigned")
	return sess, nil
}

// GetSession returns the session or ErrNotFound.
func (m *Manager) GetSession(ctx context.Context, id string) (*model.Session, error) {
	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, notFound("session", id)
	}
	return sess, nil
}

// DeactivateNode soft-disables a node. It is never selected again and the
// offline detector ignores it; its sessions stay where they are.
func (m *Manager) DeactivateNode(ctx context.Context, nodeID string) (*model.Node, error) {
	n, err := m.store.UpdateNode(ctx, nodeID, func(n *model.Node) error {
		n.IsActive = false
		n.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	logger := log.WithComponentFromContext(ctx, "registry")

	logger.Info().
		Str("event", "node.deactivated").
		Str(log.FieldNodeID, nodeID).
		Msg("node deactivated")
	return n, nil
}

// ResetNode marks a node offline with score 0. Its next heartbeat is
// recorded but keeps it offline; the one after that is scored normally.
func (m *Manager) ResetNode(ctx context.Context, nodeID string) (*model.Node, error) {
	n, err := m.store.UpdateNode(ctx, nodeID, func(n *model.Node) error {
		n.Status = model.NodeOffline
		n.HealthScore = 0
		n.NeedsReset = true
		n.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	metrics.SetNodeHealthScore(n.ID, 0)

	logger := log.WithComponentFromContext(ctx, "registry")

	logger.Info().
		Str("event", "node.reset").
		Str(log.FieldNodeID, nodeID).
		Msg("node reset")
	return n, nil
}
