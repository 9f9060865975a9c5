// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package scoring derives a node's health score and status from its reported gauges.
package scoring

import "github.com/ManuGH/vpspool/internal/domain/pool/model"

const (
	MaxScore = 100.0

	cpuWeight     = 30.0
	memoryWeight  = 30.0
	sessionWeight = 20.0

	latencyDivisor = 50.0
	latencyCap     = 20.0

	HealthyThreshold  = 70.0
	DegradedThreshold = 30.0
)

// Metrics is one heartbeat's worth of load gauges.
type Metrics struct {
	CPULoad      float64
	MemoryLoad   float64
	SessionCount int
	MaxSessions  int
	AvgLatencyMS float64
}

// Score returns a value in [0, 100]. Each input only ever lowers the score.
func Score(m Metrics) float64 {
	score := MaxScore
	score -= clamp(m.CPULoad, 0, 1) * cpuWeight
	score -= clamp(m.MemoryLoad, 0, 1) * memoryWeight
	score -= sessionRatio(m.SessionCount, m.MaxSessions) * sessionWeight
	score -= clamp(m.AvgLatencyMS, 0, latencyCap*latencyDivisor) / latencyDivisor
	return clamp(score, 0, MaxScore)
}

// StatusFor maps a score to a node status.
func StatusFor(score float64) model.NodeStatus {
	switch {
	case score >= HealthyThreshold:
		return model.NodeHealthy
	case score >= DegradedThreshold:
		return model.NodeDegraded
	default:
		return model.NodeOffline
	}
}

func sessionRatio(count, capacity int) float64 {
	if capacity <= 0 {
		return 1
	}
	if count <= 0 {
		return 0
	}
	return clamp(float64(count)/float64(capacity), 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v != v { // NaN
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
