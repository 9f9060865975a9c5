// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package notify publishes operator events (node offline, failover outcomes).
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Kind classifies an operator event.
type Kind string

const (
	KindNodeOffline       Kind = "node.offline"
	KindFailoverCompleted Kind = "failover.completed"
	KindFailoverFailed    Kind = "failover.failed"
	KindNoNodeAvailable   Kind = "failover.no_node_available"
)

// Event is one operator-facing notification.
type Event struct {
	Kind       Kind      `json:"kind"`
	NodeID     string    `json:"node_id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	FailoverID string    `json:"failover_id,omitempty"`
	Message    string    `json:"message,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// LogPublisher writes events to the structured log.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher returns a publisher that logs at info level.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.logger.Info().
		Str("event", "notify."+string(ev.Kind)).
		Str("node_id", ev.NodeID).
		Str("session_id", ev.SessionID).
		Str("failover_id", ev.FailoverID).
		Time("at", ev.At).
		Msg(ev.Message)
	return nil
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
