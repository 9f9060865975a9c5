// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"

	"github.com/ManuGH/vpspool/internal/domain/pool/manager"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleSelectNode(w http.ResponseWriter, r *http.Request) {
	var req SelectNodeRequest
	if err := decodeJSON(r, &req, true); err != nil {
		respondError(w, r, err)
		return
	}

	n, err := s.mgr.SelectBest(r.Context(), req.Region, req.ExcludeNodeID)
	switch {
	case errors.Is(err, manager.ErrNoNodeAvailable):
		writeJSON(w, http.StatusOK, SelectNodeResponse{Available: false})
	case err != nil:
		respondError(w, r, err)
	default:
		resp := toNodeResponse(n)
		writeJSON(w, http.StatusOK, SelectNodeResponse{Available: true, Node: &resp})
	}
}

func (s *Server) handleAssignInstance(w http.ResponseWriter, r *http.Request) {
	var req AssignInstanceRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, err)
		return
	}

	sess, err := s.mgr.AssignSession(r.Context(), chi.URLParam(r, "instanceID"), req.NodeID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	sess, err := s.mgr.GetSession(r.Context(), chi.URLParam(r, "instanceID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
