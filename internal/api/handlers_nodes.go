// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"strconv"

	"github.com/ManuGH/vpspool/internal/auth"
	"github.com/ManuGH/vpspool/internal/domain/pool/manager"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleRegisterNode(w http.ResponseWriter, r *http.Request) {
	var req RegisterNodeRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, err)
		return
	}

	n, err := s.mgr.RegisterNode(r.Context(), manager.RegisterRequest{
		Name:        req.Name,
		Region:      req.Region,
		BaseURL:     req.BaseURL,
		MaxSessions: req.MaxSessions,
		Token:       req.Token,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/nodes/"+n.ID)
	writeJSON(w, http.StatusCreated, toNodeResponse(n))
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req HeartbeatRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := s.mgr.Heartbeat(r.Context(), chi.URLParam(r, "nodeID"), auth.ExtractToken(r), manager.Gauges{
		CPULoad:      req.CPULoad,
		MemoryLoad:   req.MemoryLoad,
		SessionCount: req.SessionCount,
		AvgLatencyMS: req.AvgLatencyMS,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	activeOnly := false
	if raw := r.URL.Query().Get("active_only"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeProblem(w, r, http.StatusBadRequest, "request/invalid", "Bad Request", "VALIDATION_FAILED",
				"active_only must be a boolean")
			return
		}
		activeOnly = v
	}

	nodes, err := s.mgr.ListNodes(r.Context(), activeOnly)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": toNodeList(nodes)})
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	n, err := s.mgr.GetNode(r.Context(), chi.URLParam(r, "nodeID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toNodeResponse(n))
}

func (s *Server) handleDeactivateNode(w http.ResponseWriter, r *http.Request) {
	n, err := s.mgr.DeactivateNode(r.Context(), chi.URLParam(r, "nodeID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toNodeResponse(n))
}

func (s *Server) handleResetNode(w http.ResponseWriter, r *http.Request) {
	n, err := s.mgr.ResetNode(r.Context(), chi.URLParam(r, "nodeID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toNodeResponse(n))
}
