// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the node pool over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/ManuGH/vpspool/internal/api/middleware"
	"github.com/ManuGH/vpspool/internal/domain/pool/manager"
	"github.com/ManuGH/vpspool/internal/health"
	"github.com/ManuGH/vpspool/internal/notify"
	"github.com/ManuGH/vpspool/internal/ratelimit"
	"github.com/go-chi/chi/v5"
)

// EventSource returns recently published operator events, newest first.
type EventSource interface {
	Recent(ctx context.Context, n int) ([]notify.Event, error)
}

// Deps are the collaborators of the API server. Manager, Detector and
// AdminToken are required.
type Deps struct {
	Manager    *manager.Manager
	Detector   *manager.Detector
	AdminToken string

	// HeartbeatLimiter throttles heartbeats per node id. nil disables it.
	HeartbeatLimiter *ratelimit.Limiter
	// Health serves /healthz and /readyz when set.
	Health *health.Manager
	// Events backs GET /api/v1/events when set.
	Events EventSource

	Stack middleware.StackConfig
}

// Server is the control-plane HTTP API.
type Server struct {
	mgr        *manager.Manager
	detector   *manager.Detector
	adminToken string
	limiter    *ratelimit.Limiter
	health     *health.Manager
	events     EventSource
	router     chi.Router
}

// New builds the server and its routes.
func New(deps Deps) *Server {
	s := &Server{
		mgr:        deps.Manager,
		detector:   deps.Detector,
		adminToken: deps.AdminToken,
		limiter:    deps.HeartbeatLimiter,
		health:     deps.Health,
		events:     deps.Events,
	}
	s.router = s.routes(deps.Stack)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes(stack middleware.StackConfig) chi.Router {
	r := middleware.NewRouter(stack)

	if s.health != nil {
		r.Get("/healthz", s.health.ServeHealth)
		r.Get("/readyz", s.health.ServeReady)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, "system/not_found", "Not Found", "NOT_FOUND", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusMethodNotAllowed, "system/method_not_allowed", "Method Not Allowed",
			"METHOD_NOT_ALLOWED", r.Method+" is not supported on this route")
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Nodes authenticate with their own token.
		r.With(s.nodeAuth).Post("/nodes/{nodeID}/heartbeat", s.handleHeartbeat)

		r.Group(func(r chi.Router) {
			r.Use(s.adminAuth)

			r.Post("/nodes", s.handleRegisterNode)
			r.Get("/nodes", s.handleListNodes)
			r.Get("/nodes/{nodeID}", s.handleGetNode)
			r.Post("/nodes/{nodeID}/deactivate", s.handleDeactivateNode)
			r.Post("/nodes/{nodeID}/reset", s.handleResetNode)

			r.Post("/placement/select", s.handleSelectNode)
			r.Post("/instances/{instanceID}/assign", s.handleAssignInstance)
			r.Get("/instances/{instanceID}", s.handleGetInstance)

			r.Post("/failovers", s.handleInitiateFailover)
			r.Get("/failovers", s.handleListFailovers)
			r.Get("/failovers/{failoverID}", s.handleGetFailover)
			r.Post("/failovers/{failoverID}/execute", s.handleExecuteFailover)
			r.Post("/failovers/{failoverID}/complete", s.handleCompleteFailover)
			r.Post("/failovers/{failoverID}/retry", s.handleRetryFailover)

			r.Post("/scheduler/check-offline", s.handleCheckOffline)
			r.Get("/events", s.handleRecentEvents)
		})
	})

	return r
}
