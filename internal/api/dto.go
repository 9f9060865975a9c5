// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"time"

	"github.com/ManuGH/vpspool/internal/domain/pool/model"
)

// NodeResponse is a node as seen by operators. The node token is never
// returned.
type NodeResponse struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Region          string           `json:"region,omitempty"`
	BaseURL         string           `json:"base_url"`
	MaxSessions     int              `json:"max_sessions"`
	CurrentSessions int              `json:"current_sessions"`
	HealthScore     float64          `json:"health_score"`
	Status          model.NodeStatus `json:"status"`
	IsActive        bool             `json:"is_active"`
	NeedsReset      bool             `json:"needs_reset,omitempty"`
	CPULoad         float64          `json:"cpu_load"`
	MemoryLoad      float64          `json:"memory_load"`
	AvgLatencyMS    float64          `json:"avg_latency_ms"`
	LastHeartbeatAt *time.Time       `json:"last_heartbeat_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func toNodeResponse(n *model.Node) NodeResponse {
	out := NodeResponse{
		ID:              n.ID,
		Name:            n.Name,
		Region:          n.Region,
		BaseURL:         n.BaseURL,
		MaxSessions:     n.MaxSessions,
		CurrentSessions: n.CurrentSessions,
		HealthScore:     n.HealthScore,
		Status:          n.Status,
		IsActive:        n.IsActive,
		NeedsReset:      n.NeedsReset,
		CPULoad:         n.CPULoad,
		MemoryLoad:      n.MemoryLoad,
		AvgLatencyMS:    n.AvgLatencyMS,
		CreatedAt:       n.CreatedAt,
		UpdatedAt:       n.UpdatedAt,
	}
	if !n.LastHeartbeatAt.IsZero() {
		hb := n.LastHeartbeatAt
		out.LastHeartbeatAt = &hb
	}
	return out
}

func toNodeList(nodes []*model.Node) []NodeResponse {
	out := make([]NodeResponse, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, toNodeResponse(n))
	}
	return out
}

// RegisterNodeRequest is the body of POST /nodes.
type RegisterNodeRequest struct {
	Name        string `json:"name"`
	Region      string `json:"region"`
	BaseURL     string `json:"base_url"`
	MaxSessions int    `json:"max_sessions"`
	Token       string `json:"token"`
}

// HeartbeatRequest is the body a node posts every heartbeat interval.
type HeartbeatRequest struct {
	CPULoad      float64 `json:"cpu_load"`
	MemoryLoad   float64 `json:"memory_load"`
	SessionCount int     `json:"session_count"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
}

// SelectNodeRequest is the body of POST /placement/select.
type SelectNodeRequest struct {
	Region        string `json:"region"`
	ExcludeNodeID string `json:"exclude_node_id"`
}

// SelectNodeResponse reports the chosen node. Available is false when no
// node qualifies; that is not an error.
type SelectNodeResponse struct {
	Available bool          `json:"available"`
	Node      *NodeResponse `json:"node,omitempty"`
}

// AssignInstanceRequest is the body of POST /instances/{id}/assign.
type AssignInstanceRequest struct {
	NodeID string `json:"node_id"`
}

// InitiateFailoverRequest is the body of POST /failovers.
type InitiateFailoverRequest struct {
	SessionID    string `json:"session_id"`
	Reason       string `json:"reason"`
	TargetNodeID string `json:"target_node_id"`
}

// CompleteFailoverRequest is the body of POST /failovers/{id}/complete.
type CompleteFailoverRequest struct {
	Success      *bool  `json:"success"`
	ErrorMessage string `json:"error_message"`
}

// CheckOfflineResponse reports one sweep.
type CheckOfflineResponse struct {
	Initiated int `json:"initiated"`
}
