// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/ManuGH/vpspool/internal/auth"
	"github.com/ManuGH/vpspool/internal/log"
	"github.com/go-chi/chi/v5"
)

// adminAuth admits requests carrying the operator token.
func (s *Server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.AuthorizeRequest(r, s.adminToken) {
			logger := log.WithComponentFromContext(r.Context(), "auth")
			logger.Warn().
				Str("event", "auth.denied").
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Msg("admin token missing or invalid")
			writeProblem(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized", "UNAUTHORIZED",
				"a valid admin bearer token is required")
			return
		}
		ctx := auth.WithPrincipal(r.Context(), auth.NewAdminPrincipal(s.adminToken))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// nodeAuth checks the node token and then throttles per node. Rejected
// tokens never draw from the node's bucket.
func (s *Server) nodeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nodeID := chi.URLParam(r, "nodeID")
		token := auth.ExtractToken(r)
		if token == "" {
			writeProblem(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized", "UNAUTHORIZED",
				"node token required")
			return
		}
		if err := s.mgr.AuthenticateNode(r.Context(), nodeID, token); err != nil {
			respondError(w, r, err)
			return
		}
		if s.limiter != nil && !s.limiter.Allow(nodeID) {
			w.Header().Set("Retry-After", "1")
			writeProblem(w, r, http.StatusTooManyRequests, "system/rate_limited", "Too Many Requests",
				"RATE_LIMITED", "heartbeat rate exceeded for this node")
			return
		}

		ctx := log.ContextWithNodeID(r.Context(), nodeID)
		ctx = auth.WithPrincipal(ctx, auth.NewNodePrincipal(nodeID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
