// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package scoring

import (
	"math"
	"math/rand"
	"testing"

	"github.com/ManuGH/vpspool/internal/domain/pool/model"
	"github.com/stretchr/testify/assert"
)

func TestScore_Examples(t *testing.T) {
	tests := []struct {
		name string
		in   Metrics
		want float64
	}{
		{
			name: "typical load",
			in:   Metrics{CPULoad: 0.2, MemoryLoad: 0.1, SessionCount: 2, MaxSessions: 10, AvgLatencyMS: 20},
			want: 86.6,
		},
		{
			name: "idle node",
			in:   Metrics{MaxSessions: 10},
			want: 100,
		},
		{
			name: "saturated node",
			in:   Metrics{CPULoad: 1, MemoryLoad: 1, SessionCount: 10, MaxSessions: 10, AvgLatencyMS: 5000},
			want: 0,
		},
		{
			name: "loads above one are clamped",
			in:   Metrics{CPULoad: 3, MemoryLoad: 0, SessionCount: 0, MaxSessions: 10},
			want: 70,
		},
		{
			name: "session penalty caps at twenty",
			in:   Metrics{SessionCount: 50, MaxSessions: 10},
			want: 80,
		},
		{
			name: "latency penalty caps at twenty",
			in:   Metrics{AvgLatencyMS: 100000, MaxSessions: 10},
			want: 80,
		},
		{
			name: "negative inputs count as zero",
			in:   Metrics{CPULoad: -1, MemoryLoad: -0.5, SessionCount: -3, MaxSessions: 10, AvgLatencyMS: -40},
			want: 100,
		},
		{
			name: "zero capacity takes full session penalty",
			in:   Metrics{MaxSessions: 0},
			want: 80,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.in), 1e-9)
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		score float64
		want  model.NodeStatus
	}{
		{100, model.NodeHealthy},
		{70, model.NodeHealthy},
		{69.99, model.NodeDegraded},
		{30, model.NodeDegraded},
		{29.99, model.NodeOffline},
		{0, model.NodeOffline},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.score), "score %v", tt.score)
	}
}

func TestScore_BoundsAndMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	randomMetrics := func() Metrics {
		return Metrics{
			CPULoad:      rng.Float64()*3 - 1,
			MemoryLoad:   rng.Float64()*3 - 1,
			SessionCount: rng.Intn(40) - 5,
			MaxSessions:  rng.Intn(20),
			AvgLatencyMS: rng.Float64()*3000 - 100,
		}
	}

	for i := 0; i < 2000; i++ {
		m := randomMetrics()
		s := Score(m)
		if s < 0 || s > 100 || math.IsNaN(s) {
			t.Fatalf("score out of bounds for %+v: %v", m, s)
		}

		bumps := []Metrics{m, m, m, m}
		bumps[0].CPULoad += rng.Float64()
		bumps[1].MemoryLoad += rng.Float64()
		bumps[2].SessionCount += rng.Intn(5)
		bumps[3].AvgLatencyMS += rng.Float64() * 500
		for j, b := range bumps {
			if got := Score(b); got > s+1e-9 {
				t.Fatalf("bump %d increased score: %+v -> %+v (%v -> %v)", j, m, b, s, got)
			}
		}
	}
}
