// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/vpspool/internal/api/middleware"
	"github.com/ManuGH/vpspool/internal/api/problem"
	"github.com/ManuGH/vpspool/internal/backup"
	"github.com/ManuGH/vpspool/internal/domain/pool/manager"
	"github.com/ManuGH/vpspool/internal/domain/pool/model"
	"github.com/ManuGH/vpspool/internal/domain/pool/store"
	"github.com/ManuGH/vpspool/internal/health"
	"github.com/ManuGH/vpspool/internal/nodeclient"
	"github.com/ManuGH/vpspool/internal/notify"
	"github.com/ManuGH/vpspool/internal/ratelimit"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminToken = "admin-secret"

type restoreCall struct {
	Path     string
	Auth     string
	BackupID string
}

// fakeNode records restore calls and answers with status.
type fakeNode struct {
	mu     sync.Mutex
	calls  []restoreCall
	status int
	srv    *httptest.Server
}

func newFakeNode(t *testing.T) *fakeNode {
	t.Helper()
	n := &fakeNode{status: http.StatusAccepted}
	n.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			BackupID string `json:"backup_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		n.mu.Lock()
		n.calls = append(n.calls, restoreCall{Path: r.URL.Path, Auth: r.Header.Get("Authorization"), BackupID: body.BackupID})
		status := n.status
		n.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(n.srv.Close)
	return n
}

func (n *fakeNode) recorded() []restoreCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]restoreCall(nil), n.calls...)
}

type fakeEvents struct{ events []notify.Event }

func (f fakeEvents) Recent(_ context.Context, n int) ([]notify.Event, error) {
	if n < len(f.events) {
		return f.events[:n], nil
	}
	return f.events, nil
}

type apiHarness struct {
	handler http.Handler
	clock   *clock.Mock
	node    *fakeNode
	mgr     *manager.Manager
}

func newAPIHarness(t *testing.T, mutate func(*Deps)) *apiHarness {
	t.Helper()
	clk := clock.NewMock()
	clk.Set(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	backupSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"backup_id":"b-1"}`)
	}))
	t.Cleanup(backupSrv.Close)

	mgr, err := manager.New(manager.Deps{
		Store:         store.NewMemoryStore(),
		Backup:        backup.NewHTTPService(backupSrv.URL, "backup-token", 2*time.Second),
		Restorer:      nodeclient.New(nodeclient.Config{Timeout: 2 * time.Second}),
		Clock:         clk,
		RemoteTimeout: 2 * time.Second,
	})
	require.NoError(t, err)

	deps := Deps{
		Manager:    mgr,
		Detector:   manager.NewDetector(mgr, manager.DetectorConfig{}),
		AdminToken: adminToken,
		Health:     health.NewManager("test"),
		Stack: middleware.StackConfig{
			EnableSecurityHeaders: true,
			EnableLogging:         true,
		},
	}
	if mutate != nil {
		mutate(&deps)
	}
	return &apiHarness{handler: New(deps).Handler(), clock: clk, node: newFakeNode(t), mgr: mgr}
}

func (h *apiHarness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func problemCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	body := decode[map[string]any](t, rec)
	code, _ := body["code"].(string)
	return code
}

// register creates a node pointing at the fake node server and makes it
// healthy with one heartbeat.
func (h *apiHarness) register(t *testing.T, name, region string, maxSessions int) NodeResponse {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/v1/nodes", adminToken, RegisterNodeRequest{
		Name: name, Region: region, BaseURL: h.node.srv.URL, MaxSessions: maxSessions, Token: "tok-" + name,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	n := decode[NodeResponse](t, rec)

	hb := h.do(t, http.MethodPost, "/api/v1/nodes/"+n.ID+"/heartbeat", "tok-"+name, HeartbeatRequest{CPULoad: 0.1})
	require.Equal(t, http.StatusOK, hb.Code, hb.Body.String())
	return n
}

func TestAdminRoutesRequireToken(t *testing.T) {
	h := newAPIHarness(t, nil)

	for _, path := range []string{"/api/v1/nodes", "/api/v1/failovers"} {
		rec := h.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "UNAUTHORIZED", problemCode(t, rec))

		rec = h.do(t, http.MethodGet, path, "wrong", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := h.do(t, http.MethodGet, "/api/v1/nodes", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRegisterNode(t *testing.T) {
	h := newAPIHarness(t, nil)

	rec := h.do(t, http.MethodPost, "/api/v1/nodes", adminToken, RegisterNodeRequest{
		Name: "n1", Region: "eu", BaseURL: "http://n1:8080", MaxSessions: 10, Token: "secret-node-token",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-node-token")

	n := decode[NodeResponse](t, rec)
	assert.Equal(t, model.NodeOffline, n.Status)
	assert.True(t, n.IsActive)
	assert.Nil(t, n.LastHeartbeatAt)
	assert.Equal(t, "/api/v1/nodes/"+n.ID, rec.Header().Get("Location"))

	rec = h.do(t, http.MethodPost, "/api/v1/nodes", adminToken, RegisterNodeRequest{Name: "n2", BaseURL: "http://n2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", problemCode(t, rec))

	rec = h.do(t, http.MethodPost, "/api/v1/nodes", adminToken, map[string]any{"name": "n3", "colour": "red"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/nodes/"+n.ID, adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/nodes/missing", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", problemCode(t, rec))
}

func TestHeartbeat(t *testing.T) {
	h := newAPIHarness(t, nil)
	rec := h.do(t, http.MethodPost, "/api/v1/nodes", adminToken, RegisterNodeRequest{
		Name: "n1", BaseURL: "http://n1", MaxSessions: 10, Token: "node-tok",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	n := decode[NodeResponse](t, rec)
	path := "/api/v1/nodes/" + n.ID + "/heartbeat"
	payload := HeartbeatRequest{CPULoad: 0.2, MemoryLoad: 0.1, SessionCount: 2, AvgLatencyMS: 20}

	rec = h.do(t, http.MethodPost, path, "node-tok", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[manager.HeartbeatResult](t, rec)
	assert.InDelta(t, 86.6, res.HealthScore, 1e-9)
	assert.Equal(t, model.NodeHealthy, res.Status)

	rec = h.do(t, http.MethodPost, path, "", payload)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodPost, path, adminToken, payload)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "the admin token is not a node token")

	rec = h.do(t, http.MethodPost, "/api/v1/nodes/unknown/heartbeat", "node-tok", payload)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	raw, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("X-Node-Token", "node-tok")
	alt := httptest.NewRecorder()
	h.handler.ServeHTTP(alt, req)
	assert.Equal(t, http.StatusOK, alt.Code)
}

func TestHeartbeat_RateLimitedPerNode(t *testing.T) {
	cfg := ratelimit.DefaultConfig()
	cfg.PerKeyRate = 0.001
	cfg.PerKeyBurst = 1
	h := newAPIHarness(t, func(d *Deps) {
		d.HeartbeatLimiter = ratelimit.New(cfg, time.Now)
	})

	rec := h.do(t, http.MethodPost, "/api/v1/nodes", adminToken, RegisterNodeRequest{
		Name: "n1", BaseURL: "http://n1", MaxSessions: 10, Token: "node-tok",
	})
	n := decode[NodeResponse](t, rec)
	path := "/api/v1/nodes/" + n.ID + "/heartbeat"

	assert.Equal(t, http.StatusOK, h.do(t, http.MethodPost, path, "node-tok", HeartbeatRequest{}).Code)
	limited := h.do(t, http.MethodPost, path, "node-tok", HeartbeatRequest{})
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "RATE_LIMITED", problemCode(t, limited))
}

func TestHeartbeat_BadTokensDoNotDrainNodeBucket(t *testing.T) {
	h := newAPIHarness(t, func(d *Deps) {
		d.HeartbeatLimiter = ratelimit.New(ratelimit.DefaultConfig(), time.Now)
	})

	rec := h.do(t, http.MethodPost, "/api/v1/nodes", adminToken, RegisterNodeRequest{
		Name: "n1", BaseURL: "http://n1", MaxSessions: 10, Token: "node-tok",
	})
	n := decode[NodeResponse](t, rec)
	path := "/api/v1/nodes/" + n.ID + "/heartbeat"

	for i := 0; i < 10; i++ {
		bad := h.do(t, http.MethodPost, path, "forged-token", HeartbeatRequest{})
		require.Equal(t, http.StatusUnauthorized, bad.Code)
	}
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodPost, path, "node-tok", HeartbeatRequest{}).Code)
}

func TestSelectNode(t *testing.T) {
	h := newAPIHarness(t, nil)

	rec := h.do(t, http.MethodPost, "/api/v1/placement/select", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[SelectNodeResponse](t, rec).Available)

	n := h.register(t, "n1", "eu", 10)

	rec = h.do(t, http.MethodPost, "/api/v1/placement/select", adminToken, SelectNodeRequest{Region: "eu"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[SelectNodeResponse](t, rec)
	require.True(t, got.Available)
	assert.Equal(t, n.ID, got.Node.ID)

	rec = h.do(t, http.MethodPost, "/api/v1/placement/select", adminToken, SelectNodeRequest{ExcludeNodeID: n.ID})
	assert.False(t, decode[SelectNodeResponse](t, rec).Available)

	rec = h.do(t, http.MethodPost, "/api/v1/placement/select", adminToken, SelectNodeRequest{Region: "us"})
	assert.False(t, decode[SelectNodeResponse](t, rec).Available)
}

func TestFailoverFlow(t *testing.T) {
	h := newAPIHarness(t, nil)
	n1 := h.register(t, "n1", "eu", 10)
	n2 := h.register(t, "n2", "eu", 10)

	rec := h.do(t, http.MethodPost, "/api/v1/instances/s1/assign", adminToken, AssignInstanceRequest{NodeID: n1.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/api/v1/failovers", adminToken, InitiateFailoverRequest{SessionID: "s1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	fo := decode[model.Failover](t, rec)
	assert.Equal(t, model.FailoverPending, fo.Status)
	assert.Equal(t, n2.ID, fo.TargetNodeID)

	rec = h.do(t, http.MethodPost, "/api/v1/failovers", adminToken, InitiateFailoverRequest{SessionID: "s1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", problemCode(t, rec))

	rec = h.do(t, http.MethodPost, "/api/v1/failovers/"+fo.ID+"/execute", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fo = decode[model.Failover](t, rec)
	assert.Equal(t, model.FailoverRestoring, fo.Status)
	assert.Equal(t, "b-1", fo.BackupID)

	calls := h.node.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "/api/instance/s1/restore", calls[0].Path)
	assert.Equal(t, "Bearer tok-n2", calls[0].Auth)
	assert.Equal(t, "b-1", calls[0].BackupID)

	rec = h.do(t, http.MethodPost, "/api/v1/failovers/"+fo.ID+"/complete", adminToken, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "success is required")

	rec = h.do(t, http.MethodPost, "/api/v1/failovers/"+fo.ID+"/complete", adminToken, map[string]any{"success": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.FailoverCompleted, decode[model.Failover](t, rec).Status)

	rec = h.do(t, http.MethodPost, "/api/v1/failovers/"+fo.ID+"/complete", adminToken, map[string]any{"success": false})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/instances/s1", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, n2.ID, decode[model.Session](t, rec).NodeID)

	rec = h.do(t, http.MethodGet, "/api/v1/failovers?session_id=s1&status=completed", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[map[string][]model.Failover](t, rec)
	assert.Len(t, list["failovers"], 1)
}

func TestFailover_RestoreRejectedThenRetry(t *testing.T) {
	h := newAPIHarness(t, nil)
	n1 := h.register(t, "n1", "eu", 10)
	h.register(t, "n2", "eu", 10)
	h.node.mu.Lock()
	h.node.status = http.StatusConflict
	h.node.mu.Unlock()

	h.do(t, http.MethodPost, "/api/v1/instances/s1/assign", adminToken, AssignInstanceRequest{NodeID: n1.ID})
	fo := decode[model.Failover](t, h.do(t, http.MethodPost, "/api/v1/failovers", adminToken, InitiateFailoverRequest{SessionID: "s1"}))

	rec := h.do(t, http.MethodPost, "/api/v1/failovers/"+fo.ID+"/execute", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, "remote failures are recorded, not returned")
	failed := decode[model.Failover](t, rec)
	assert.Equal(t, model.FailoverFailed, failed.Status)
	assert.Equal(t, "b-1", failed.BackupID)
	assert.NotEmpty(t, failed.ErrorMessage)

	rec = h.do(t, http.MethodPost, "/api/v1/failovers/"+fo.ID+"/retry", adminToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	retry := decode[model.Failover](t, rec)
	assert.Equal(t, model.ReasonOperatorRetry, retry.Reason)
	assert.Equal(t, fo.ID, retry.RetryOf)
}

func TestCompleteFailover_ReassignFailed(t *testing.T) {
	h := newAPIHarness(t, nil)
	now := h.clock.Now()
	require.NoError(t, h.mgr.Store().CreateFailover(context.Background(), &model.Failover{
		ID: "f1", SessionID: "s1", SourceNodeID: "n1", TargetNodeID: "gone",
		Reason: model.ReasonManual, Status: model.FailoverRestoring, CreatedAt: now, UpdatedAt: now,
	}))

	rec := h.do(t, http.MethodPost, "/api/v1/failovers/f1/complete", adminToken, map[string]any{"success": true})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "REASSIGN_FAILED", problemCode(t, rec))

	rec = h.do(t, http.MethodGet, "/api/v1/failovers/f1", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.FailoverRestoring, decode[model.Failover](t, rec).Status)
}

func TestInitiateFailover_NoNodeIsCreatedFailed(t *testing.T) {
	h := newAPIHarness(t, nil)
	n1 := h.register(t, "n1", "eu", 10)
	h.do(t, http.MethodPost, "/api/v1/instances/s1/assign", adminToken, AssignInstanceRequest{NodeID: n1.ID})

	rec := h.do(t, http.MethodPost, "/api/v1/failovers", adminToken, InitiateFailoverRequest{SessionID: "s1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	fo := decode[model.Failover](t, rec)
	assert.Equal(t, model.FailoverFailed, fo.Status)
	assert.Equal(t, "no node available", fo.ErrorMessage)

	rec = h.do(t, http.MethodPost, "/api/v1/failovers", adminToken, InitiateFailoverRequest{SessionID: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckOffline(t *testing.T) {
	h := newAPIHarness(t, nil)
	n1 := h.register(t, "n1", "eu", 10)
	n2 := h.register(t, "n2", "eu", 10)
	h.do(t, http.MethodPost, "/api/v1/instances/s1/assign", adminToken, AssignInstanceRequest{NodeID: n1.ID})

	h.clock.Add(91 * time.Second)
	require.Equal(t, http.StatusOK,
		h.do(t, http.MethodPost, "/api/v1/nodes/"+n2.ID+"/heartbeat", "tok-n2", HeartbeatRequest{}).Code)

	rec := h.do(t, http.MethodPost, "/api/v1/scheduler/check-offline", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[CheckOfflineResponse](t, rec).Initiated)

	rec = h.do(t, http.MethodPost, "/api/v1/scheduler/check-offline", adminToken, nil)
	assert.Equal(t, 0, decode[CheckOfflineResponse](t, rec).Initiated)

	rec = h.do(t, http.MethodGet, "/api/v1/failovers?status=pending", adminToken, nil)
	list := decode[map[string][]model.Failover](t, rec)
	require.Len(t, list["failovers"], 1)
	assert.Equal(t, model.ReasonOfflineDetected, list["failovers"][0].Reason)
}

func TestListFailovers_BadQuery(t *testing.T) {
	h := newAPIHarness(t, nil)

	for _, q := range []string{"?status=bogus", "?limit=0", "?limit=abc", "?limit=100000"} {
		rec := h.do(t, http.MethodGet, "/api/v1/failovers"+q, adminToken, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}

	rec := h.do(t, http.MethodGet, "/api/v1/failovers", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"failovers":[]}`, rec.Body.String())
}

func TestNodeAdminActions(t *testing.T) {
	h := newAPIHarness(t, nil)
	n := h.register(t, "n1", "eu", 10)

	rec := h.do(t, http.MethodPost, "/api/v1/nodes/"+n.ID+"/reset", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	reset := decode[NodeResponse](t, rec)
	assert.Equal(t, model.NodeOffline, reset.Status)
	assert.True(t, reset.NeedsReset)

	rec = h.do(t, http.MethodPost, "/api/v1/nodes/"+n.ID+"/deactivate", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[NodeResponse](t, rec).IsActive)

	rec = h.do(t, http.MethodGet, "/api/v1/nodes?active_only=true", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[map[string][]NodeResponse](t, rec)["nodes"])

	rec = h.do(t, http.MethodGet, "/api/v1/nodes?active_only=maybe", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/v1/nodes/missing/reset", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecentEvents(t *testing.T) {
	h := newAPIHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/api/v1/events", adminToken, nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	h = newAPIHarness(t, func(d *Deps) {
		d.Events = fakeEvents{events: []notify.Event{
			{Kind: notify.KindNodeOffline, NodeID: "n1", At: at},
			{Kind: notify.KindFailoverFailed, FailoverID: "f1", At: at},
		}}
	})
	rec = h.do(t, http.MethodGet, "/api/v1/events?limit=1", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[map[string][]notify.Event](t, rec)["events"]
	require.Len(t, got, 1)
	assert.Equal(t, notify.KindNodeOffline, got[0].Kind)
}

func TestRoutingProblemsCarryRequestID(t *testing.T) {
	h := newAPIHarness(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	req.Header.Set(problem.HeaderRequestID, "req-42")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get(problem.HeaderRequestID))
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "req-42", body[problem.JSONKeyRequestID])

	rec = h.do(t, http.MethodDelete, "/api/v1/nodes", adminToken, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	h := newAPIHarness(t, nil)

	rec := h.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
