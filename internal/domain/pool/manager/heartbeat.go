// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"errors"

	"github.com/ManuGH/vpspool/internal/auth"
	"github.com/ManuGH/vpspool/internal/domain/pool/model"
	"github.com/ManuGH/vpspool/internal/domain/pool/store"
	"github.com/ManuGH/vpspool/internal/log"
	"github.com/ManuGH/vpspool/internal/metrics"
)

// HeartbeatResult is what a node learns about itself from a heartbeat.
type HeartbeatResult struct {
	HealthScore float64          `json:"health_score"`
	Status      model.NodeStatus `json:"status"`
}

// AuthenticateNode reports ErrUnauthorized unless token belongs to nodeID.
// Unknown nodes are unauthorized too, so ids cannot be probed.
func (m *Manager) AuthenticateNode(ctx context.Context, nodeID, token string) error {
	n, err := m.store.GetNode(ctx, nodeID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if n == nil || !auth.AuthorizeToken(token, n.Token) {
		metrics.RecordHeartbeat("unauthorized")
		logger := log.WithComponentFromContext(ctx, "heartbeat")
		logger.Warn().
			Str("event", "heartbeat.unauthorized").
			Str(log.FieldNodeID, nodeID).
			Msg("heartbeat rejected")
		return ErrUnauthorized
	}
	return nil
}

// Heartbeat authenticates the node by token and records its gauges.
// Unknown nodes and token mismatches are both ErrUnauthorized and write
// nothing. Repeated payloads overwrite the same fields.
func (m *Manager) Heartbeat(ctx context.Context, nodeID, token string, g Gauges) (HeartbeatResult, error) {
	logger := log.WithComponentFromContext(ctx, "heartbeat").With().Str(log.FieldNodeID, nodeID).Logger()

	n, err := m.store.UpdateNode(ctx, nodeID, func(n *model.Node) error {
		if !auth.AuthorizeToken(token, n.Token) {
			return ErrUnauthorized
		}
		m.applyGauges(n, g)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUnauthorized) || errors.Is(err, store.ErrNotFound) {
			metrics.RecordHeartbeat("unauthorized")
			logger.Warn().Str("event", "heartbeat.unauthorized").Msg("heartbeat rejected")
			return HeartbeatResult{}, ErrUnauthorized
		}
		metrics.RecordHeartbeat("error")
		return HeartbeatResult{}, err
	}

	metrics.RecordHeartbeat("accepted")
	metrics.SetNodeHealthScore(n.ID, n.HealthScore)
	logger.Debug().
		Str("event", "heartbeat.accepted").
		Float64(log.FieldHealthScore, n.HealthScore).
		Str(log.FieldStatus, string(n.Status)).
		Int("sessions", n.CurrentSessions).
		Msg("heartbeat recorded")

	return HeartbeatResult{HealthScore: n.HealthScore, Status: n.Status}, nil
}
