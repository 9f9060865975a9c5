// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics exposes the node pool's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	heartbeatsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpspool_heartbeats_total",
		Help: "Node heartbeats by result",
	}, []string{"result"}) // result=accepted|unauthorized|invalid|rate_limited

	nodeHealthScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vpspool_node_health_score",
		Help: "Last computed health score per node (0-100)",
	}, []string{"node_id"})

	nodesByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vpspool_nodes",
		Help: "Active nodes by status (last sweep)",
	}, []string{"status"})

	selectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpspool_selections_total",
		Help: "Node selections by outcome",
	}, []string{"outcome"}) // outcome=selected|none_available

	failoverTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpspool_failover_transitions_total",
		Help: "Failover state transitions",
	}, []string{"from", "to"})

	failoversInitiated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpspool_failovers_initiated_total",
		Help: "Failovers opened by reason and outcome",
	}, []string{"reason", "outcome"}) // outcome=pending|no_node

	sweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpspool_offline_sweeps_total",
		Help: "Offline detector sweeps by outcome",
	}, []string{"outcome"}) // outcome=ok|error

	sweepInitiated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vpspool_offline_sweep_failovers_total",
		Help: "Failovers opened by the offline detector",
	})

	nodesMarkedOffline = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vpspool_nodes_marked_offline_total",
		Help: "Nodes transitioned to offline because their heartbeat went stale",
	})

	remoteCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vpspool_remote_call_duration_seconds",
		Help:    "Duration of calls to nodes and the backup service",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"target", "outcome"}) // target=backup|restore

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpspool_notifications_total",
		Help: "Operator notifications by sink and outcome",
	}, []string{"sink", "outcome"})
)

// RecordHeartbeat counts one heartbeat by result.
func RecordHeartbeat(result string) {
	heartbeatsTotal.WithLabelValues(result).Inc()
}

// SetNodeHealthScore records the last health score of a node.
func SetNodeHealthScore(nodeID string, score float64) {
	nodeHealthScore.WithLabelValues(nodeID).Set(score)
}

// SetNodesByStatus replaces the per-status node counts.
func SetNodesByStatus(counts map[string]int) {
	for _, st := range []string{"healthy", "degraded", "offline"} {
		nodesByStatus.WithLabelValues(st).Set(float64(counts[st]))
	}
}

// RecordSelection counts a selector outcome.
func RecordSelection(outcome string) {
	selectionsTotal.WithLabelValues(outcome).Inc()
}

// RecordFailoverTransition counts a failover state change.
func RecordFailoverTransition(from, to string) {
	failoverTransitions.WithLabelValues(from, to).Inc()
}

// RecordFailoverInitiated counts a new failover record.
func RecordFailoverInitiated(reason, outcome string) {
	failoversInitiated.WithLabelValues(reason, outcome).Inc()
}

// RecordSweep counts one detector sweep and the failovers it opened.
func RecordSweep(outcome string, initiated, markedOffline int) {
	sweepRuns.WithLabelValues(outcome).Inc()
	sweepInitiated.Add(float64(initiated))
	nodesMarkedOffline.Add(float64(markedOffline))
}

// ObserveRemoteCall records the latency of a backup or restore call.
func ObserveRemoteCall(target, outcome string, seconds float64) {
	remoteCallDuration.WithLabelValues(target, outcome).Observe(seconds)
}

// RecordNotification counts one published operator event.
func RecordNotification(sink, outcome string) {
	notificationsTotal.WithLabelValues(sink, outcome).Inc()
}
