// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"sort"

	"github.com/ManuGH/vpspool/internal/domain/pool/model"
	"github.com/ManuGH/vpspool/internal/domain/pool/store"
	"github.com/ManuGH/vpspool/internal/log"
	"github.com/ManuGH/vpspool/internal/metrics"
)

// SelectBest returns the best node for a new session. region is matched
// exactly when non-empty; there is no cross-region fallback. excludeNodeID
// is never returned. ErrNoNodeAvailable is a normal outcome.
func (m *Manager) SelectBest(ctx context.Context, region, excludeNodeID string) (*model.Node, error) {
	nodes, err := m.store.ListNodes(ctx, store.NodeFilter{ActiveOnly: true, Region: region})
	if err != nil {
		metrics.RecordSelection("error")
		return nil, err
	}

	ranked := rankCandidates(nodes, region, excludeNodeID)
	if len(ranked) == 0 {
		metrics.RecordSelection("none")
		logger := log.WithComponentFromContext(ctx, "selector")
		logger.Debug().
			Str("event", "selection.none").
			Str(log.FieldRegion, region).
			Int("considered", len(nodes)).
			Msg("no eligible node")
		return nil, ErrNoNodeAvailable
	}

	best := ranked[0]
	metrics.RecordSelection("selected")
	logger := log.WithComponentFromContext(ctx, "selector")
	logger.Debug().
		Str("event", "selection.chosen").
		Str(log.FieldNodeID, best.ID).
		Str(log.FieldRegion, region).
		Float64(log.FieldHealthScore, best.HealthScore).
		Int("candidates", len(ranked)).
		Msg("node selected")
	return best, nil
}

// eligible is the selection filter shared with target validation on retry.
func eligible(n *model.Node, region, excludeNodeID string) bool {
	if n == nil || !n.IsActive || n.Status == model.NodeOffline || !n.HasCapacity() {
		return false
	}
	if region != "" && n.Region != region {
		return false
	}
	return excludeNodeID == "" || n.ID != excludeNodeID
}

// rankCandidates filters nodes and orders them best first: higher score,
// then fewer sessions, then most recent heartbeat, then id.
func rankCandidates(nodes []*model.Node, region, excludeNodeID string) []*model.Node {
	out := make([]*model.Node, 0, len(nodes))
	for _, n := range nodes {
		if eligible(n, region, excludeNodeID) {
			out = append(out, n)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.HealthScore != b.HealthScore {
			return a.HealthScore > b.HealthScore
		}
		if a.CurrentSessions != b.CurrentSessions {
			return a.CurrentSessions < b.CurrentSessions
		}
		if !a.LastHeartbeatAt.Equal(b.LastHeartbeatAt) {
			return a.LastHeartbeatAt.After(b.LastHeartbeatAt)
		}
		return a.ID < b.ID
	})
	return out
}
