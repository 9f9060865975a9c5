// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package model holds the persistent records of the node pool.
package model

import "time"

// NodeStatus is the coarse health classification derived from the health score.
type NodeStatus string

const (
	NodeOffline  NodeStatus = "offline"
	NodeDegraded NodeStatus = "degraded"
	NodeHealthy  NodeStatus = "healthy"
)

// IsValid reports whether s is one of the known statuses.
func (s NodeStatus) IsValid() bool {
	switch s {
	case NodeOffline, NodeDegraded, NodeHealthy:
		return true
	}
	return false
}

// Node is a worker machine hosting sessions.
type Node struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Region          string     `json:"region"`
	BaseURL         string     `json:"base_url"`
	Token           string     `json:"token"`
	MaxSessions     int        `json:"max_sessions"`
	CurrentSessions int        `json:"current_sessions"`
	HealthScore     float64    `json:"health_score"`
	Status          NodeStatus `json:"status"`
	IsActive        bool       `json:"is_active"`
	NeedsReset      bool       `json:"needs_reset"`

	// Last reported gauges.
	CPULoad      float64 `json:"cpu_load"`
	MemoryLoad   float64 `json:"memory_load"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`

	LastHeartbeatAt time.Time `json:"last_heartbeat_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HasCapacity reports whether the node can accept one more session.
func (n *Node) HasCapacity() bool {
	return n.CurrentSessions < n.MaxSessions
}

// LastSeen returns the last heartbeat time, falling back to creation time
// for nodes that never reported.
func (n *Node) LastSeen() time.Time {
	if n.LastHeartbeatAt.IsZero() {
		return n.CreatedAt
	}
	return n.LastHeartbeatAt
}

// Clone returns a copy safe to mutate independently.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}
