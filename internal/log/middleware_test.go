// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "test"})

	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("nope"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/failovers", nil)
	req = req.WithContext(ContextWithRequestID(req.Context(), "req-42"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)

	var found map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if json.Unmarshal([]byte(line), &entry) == nil && entry[FieldEvent] == "request.handled" {
			found = entry
		}
	}
	require.NotNil(t, found, "request.handled line missing: %s", buf.String())
	assert.Equal(t, "warn", found["level"])
	assert.Equal(t, float64(http.StatusConflict), found["status"])
	assert.Equal(t, float64(4), found["bytes"])
	assert.Equal(t, "req-42", found[FieldRequestID])
	assert.Equal(t, "/api/v1/failovers", found[FieldPath])
}
