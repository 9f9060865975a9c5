// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/vpspool/internal/domain/pool/model"
	"github.com/ManuGH/vpspool/internal/domain/pool/store"
	"github.com/ManuGH/vpspool/internal/log"
	"github.com/ManuGH/vpspool/internal/metrics"
	"github.com/ManuGH/vpspool/internal/notify"
	"golang.org/x/sync/singleflight"
)

// Detector defaults.
const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultOfflineMultiplier = 3
	DefaultSweepInterval     = 30 * time.Second
)

// DetectorConfig controls staleness and how often Run sweeps.
type DetectorConfig struct {
	HeartbeatInterval time.Duration
	OfflineMultiplier int
	SweepInterval     time.Duration
}

// Threshold is how long a node may stay silent before it is stale.
func (c DetectorConfig) Threshold() time.Duration {
	return c.HeartbeatInterval * time.Duration(c.OfflineMultiplier)
}

func (c DetectorConfig) withDefaults() DetectorConfig {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.OfflineMultiplier <= 0 {
		c.OfflineMultiplier = DefaultOfflineMultiplier
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	return c
}

var errNotStale = errors.New("node no longer stale")

// Detector marks silent nodes offline and opens failovers for their sessions.
type Detector struct {
	m        *Manager
	interval time.Duration
	// threshold in nanoseconds; changed by config reload.
	threshold atomic.Int64
	group     singleflight.Group

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

// NewDetector builds a detector on top of m.
func NewDetector(m *Manager, cfg DetectorConfig) *Detector {
	cfg = cfg.withDefaults()
	d := &Detector{m: m, interval: cfg.SweepInterval}
	d.threshold.Store(int64(cfg.Threshold()))
	return d
}

// SetThreshold replaces the staleness threshold for subsequent sweeps.
func (d *Detector) SetThreshold(t time.Duration) {
	if t <= 0 {
		return
	}
	d.threshold.Store(int64(t))
}

// Threshold returns the current staleness threshold.
func (d *Detector) Threshold() time.Duration {
	return time.Duration(d.threshold.Load())
}

// LastRun reports when the last sweep finished and its error, if any.
func (d *Detector) LastRun() (time.Time, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastErr != nil {
		return d.lastRun, d.lastErr.Error()
	}
	return d.lastRun, ""
}

// Run sweeps every interval until ctx is done.
func (d *Detector) Run(ctx context.Context) error {
	logger := log.WithComponent("detector")
	logger.Info().
		Str("event", "detector.start").
		Dur("interval", d.interval).
		Dur("threshold", d.Threshold()).
		Msg("offline detector started")

	ticker := d.m.clock.Ticker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Str("event", "detector.stop").Msg("offline detector stopped")
			return nil
		case <-ticker.C:
			if _, err := d.Sweep(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Str("event", "detector.sweep_failed").Msg("sweep failed")
			}
		}
	}
}

// Sweep checks all active nodes once and returns how many failovers it
// opened, including ones that failed immediately for lack of a target.
// Overlapping calls share one sweep.
func (d *Detector) Sweep(ctx context.Context) (int, error) {
	v, err, _ := d.group.Do("sweep", func() (any, error) {
		n, err := d.sweepOnce(ctx)
		d.mu.Lock()
		d.lastRun = d.m.now()
		d.lastErr = err
		d.mu.Unlock()
		return n, err
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (d *Detector) sweepOnce(ctx context.Context) (int, error) {
	logger := log.WithComponentFromContext(ctx, "detector")

	nodes, err := d.m.store.ListNodes(ctx, store.NodeFilter{ActiveOnly: true})
	if err != nil {
		metrics.RecordSweep("error", 0, 0)
		return 0, err
	}

	now := d.m.now()
	threshold := d.Threshold()
	initiated, marked, failures := 0, 0, 0

	for _, n := range nodes {
		if n.Status == model.NodeOffline || !isStale(n, now, threshold) {
			continue
		}

		updated, err := d.m.store.UpdateNode(ctx, n.ID, func(cur *model.Node) error {
			if !cur.IsActive || cur.Status == model.NodeOffline || !isStale(cur, now, threshold) {
				return errNotStale
			}
			cur.Status = model.NodeOffline
			cur.UpdatedAt = now
			return nil
		})
		if errors.Is(err, errNotStale) {
			continue
		}
		if err != nil {
			failures++
			logger.Warn().Err(err).
				Str("event", "detector.mark_failed").
				Str(log.FieldNodeID, n.ID).
				Msg("could not mark node offline")
			continue
		}
		marked++

		logger.Warn().
			Str("event", "node.offline").
			Str(log.FieldNodeID, updated.ID).
			Str(log.FieldRegion, updated.Region).
			Time("last_seen", updated.LastSeen()).
			Msg("node marked offline")
		d.m.publish(ctx, notify.Event{
			Kind:    notify.KindNodeOffline,
			NodeID:  updated.ID,
			Message: "no heartbeat since " + updated.LastSeen().Format(time.RFC3339),
		})

		sessions, err := d.m.store.ListSessionsByNode(ctx, updated.ID)
		if err != nil {
			failures++
			logger.Warn().Err(err).
				Str("event", "detector.sessions_failed").
				Str(log.FieldNodeID, updated.ID).
				Msg("could not list sessions of offline node")
			continue
		}

		for _, s := range sessions {
			_, err := d.m.InitiateFailover(ctx, InitiateRequest{
				SessionID: s.ID,
				Reason:    model.ReasonOfflineDetected,
			})
			switch {
			case err == nil, errors.Is(err, ErrNoNodeAvailable):
				initiated++
			case errors.Is(err, ErrConflict):
				// Already being moved.
			default:
				failures++
				logger.Warn().Err(err).
					Str("event", "detector.failover_failed").
					Str(log.FieldNodeID, updated.ID).
					Str(log.FieldSessionID, s.ID).
					Msg("could not open failover")
			}
		}
	}

	outcome := "ok"
	if failures > 0 {
		outcome = "partial"
	}
	metrics.RecordSweep(outcome, initiated, marked)
	d.reportStatusCounts(ctx)

	if marked > 0 || failures > 0 {
		logger.Info().
			Str("event", "detector.sweep").
			Int("marked_offline", marked).
			Int("failovers_initiated", initiated).
			Int("failures", failures).
			Msg("sweep finished")
	}
	return initiated, nil
}

func (d *Detector) reportStatusCounts(ctx context.Context) {
	nodes, err := d.m.store.ListNodes(ctx, store.NodeFilter{ActiveOnly: true})
	if err != nil {
		return
	}
	counts := map[string]int{
		string(model.NodeHealthy):  0,
		string(model.NodeDegraded): 0,
		string(model.NodeOffline):  0,
	}
	for _, n := range nodes {
		counts[string(n.Status)]++
	}
	metrics.SetNodesByStatus(counts)
}

func isStale(n *model.Node, now time.Time, threshold time.Duration) bool {
	return now.Sub(n.LastSeen()) > threshold
}
