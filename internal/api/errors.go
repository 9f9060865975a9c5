// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ManuGH/vpspool/internal/api/problem"
	"github.com/ManuGH/vpspool/internal/domain/pool/manager"
	"github.com/ManuGH/vpspool/internal/log"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, problemType, title, code, detail string) {
	problem.Write(w, r, status, problemType, title, code, detail, nil)
}

// respondError maps manager error classes onto HTTP problems.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, manager.ErrValidation):
		writeProblem(w, r, http.StatusBadRequest, "request/invalid", "Bad Request", "VALIDATION_FAILED", err.Error())
	case errors.Is(err, manager.ErrUnauthorized):
		writeProblem(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized", "UNAUTHORIZED", "invalid node credentials")
	case errors.Is(err, manager.ErrNotFound):
		writeProblem(w, r, http.StatusNotFound, "resource/not_found", "Not Found", "NOT_FOUND", err.Error())
	case errors.Is(err, manager.ErrConflict):
		writeProblem(w, r, http.StatusConflict, "resource/conflict", "Conflict", "CONFLICT", err.Error())
	case errors.Is(err, manager.ErrReassignFailed):
		writeProblem(w, r, http.StatusInternalServerError, "failover/reassign_failed", "Internal Server Error",
			"REASSIGN_FAILED", "the session could not be reassigned; the failover is still restoring")
	case errors.Is(err, manager.ErrNoNodeAvailable):
		writeProblem(w, r, http.StatusServiceUnavailable, "placement/no_node", "No Node Available", "NO_NODE_AVAILABLE", err.Error())
	default:
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).
			Str("event", "request.failed").
			Str("path", r.URL.Path).
			Msg("internal error")
		writeProblem(w, r, http.StatusInternalServerError, "system/internal", "Internal Server Error", "INTERNAL",
			"an internal error occurred")
	}
}

// decodeJSON reads a single JSON object into dst and rejects unknown fields.
// An empty body leaves dst untouched when allowEmpty is set.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON body: %v", manager.ErrValidation, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: body must contain a single JSON object", manager.ErrValidation)
	}
	return nil
}
