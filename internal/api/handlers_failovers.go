// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ManuGH/vpspool/internal/domain/pool/manager"
	"github.com/ManuGH/vpspool/internal/domain/pool/model"
	"github.com/ManuGH/vpspool/internal/domain/pool/store"
	"github.com/go-chi/chi/v5"
)

const maxListLimit = 500

func (s *Server) handleInitiateFailover(w http.ResponseWriter, r *http.Request) {
	var req InitiateFailoverRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, err)
		return
	}

	rec, err := s.mgr.InitiateFailover(r.Context(), manager.InitiateRequest{
		SessionID:    req.SessionID,
		Reason:       model.FailoverReason(req.Reason),
		TargetNodeID: req.TargetNodeID,
	})
	// No target is still a created record, just a failed one.
	if err != nil && !(errors.Is(err, manager.ErrNoNodeAvailable) && rec != nil) {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/failovers/"+rec.ID)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleExecuteFailover(w http.ResponseWriter, r *http.Request) {
	rec, err := s.mgr.ExecuteFailover(r.Context(), chi.URLParam(r, "failoverID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCompleteFailover(w http.ResponseWriter, r *http.Request) {
	var req CompleteFailoverRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Success == nil {
		writeProblem(w, r, http.StatusBadRequest, "request/invalid", "Bad Request", "VALIDATION_FAILED",
			"success is required")
		return
	}

	rec, err := s.mgr.CompleteFailover(r.Context(), chi.URLParam(r, "failoverID"), *req.Success, req.ErrorMessage)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRetryFailover(w http.ResponseWriter, r *http.Request) {
	rec, err := s.mgr.RetryFailover(r.Context(), chi.URLParam(r, "failoverID"))
	if err != nil && !(errors.Is(err, manager.ErrNoNodeAvailable) && rec != nil) {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/failovers/"+rec.ID)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleGetFailover(w http.ResponseWriter, r *http.Request) {
	rec, err := s.mgr.GetFailover(r.Context(), chi.URLParam(r, "failoverID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListFailovers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.FailoverFilter{SessionID: q.Get("session_id"), Limit: 100}

	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st := model.FailoverStatus(strings.TrimSpace(part))
			if !validFailoverStatus(st) {
				writeProblem(w, r, http.StatusBadRequest, "request/invalid", "Bad Request", "VALIDATION_FAILED",
					"unknown status "+strconv.Quote(string(st)))
				return
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			writeProblem(w, r, http.StatusBadRequest, "request/invalid", "Bad Request", "VALIDATION_FAILED",
				"limit must be between 1 and "+strconv.Itoa(maxListLimit))
			return
		}
		filter.Limit = n
	}

	recs, err := s.mgr.ListFailovers(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if recs == nil {
		recs = []*model.Failover{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"failovers": recs})
}

func validFailoverStatus(st model.FailoverStatus) bool {
	switch st {
	case model.FailoverPending, model.FailoverBackingUp, model.FailoverMigrating,
		model.FailoverRestoring, model.FailoverCompleted, model.FailoverFailed:
		return true
	}
	return false
}
