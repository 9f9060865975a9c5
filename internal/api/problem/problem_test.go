// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package problem

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ManuGH/vpspool/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/failovers/f1/complete", nil)
	req = req.WithContext(log.ContextWithRequestID(req.Context(), "req-1"))
	rec := httptest.NewRecorder()

	Write(rec, req, http.StatusConflict, "failover/conflict", "Conflict", "CONFLICT", "already terminal",
		map[string]any{"failover_id": "f1", "status": 999})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "req-1", rec.Header().Get(HeaderRequestID))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "failover/conflict", body["type"])
	assert.Equal(t, "CONFLICT", body["code"])
	assert.Equal(t, "already terminal", body["detail"])
	assert.Equal(t, "/api/v1/failovers/f1/complete", body["instance"])
	assert.Equal(t, "req-1", body[JSONKeyRequestID])
	assert.Equal(t, "f1", body["failover_id"])
	assert.EqualValues(t, http.StatusConflict, body["status"], "reserved keys are not overridden")
}
