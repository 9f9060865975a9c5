// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"strconv"

	"github.com/ManuGH/vpspool/internal/notify"
)

func (s *Server) handleCheckOffline(w http.ResponseWriter, r *http.Request) {
	n, err := s.detector.Sweep(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CheckOfflineResponse{Initiated: n})
}

func (s *Server) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeProblem(w, r, http.StatusNotImplemented, "events/unavailable", "Not Implemented", "EVENTS_UNAVAILABLE",
			"event history requires the redis notifier")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			writeProblem(w, r, http.StatusBadRequest, "request/invalid", "Bad Request", "VALIDATION_FAILED",
				"limit must be between 1 and 200")
			return
		}
		limit = n
	}

	events, err := s.events.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if events == nil {
		events = []notify.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
