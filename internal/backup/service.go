// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package backup requests session backups from the external backup service.
package backup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ManuGH/vpspool/internal/log"
	"github.com/ManuGH/vpspool/internal/metrics"
	"github.com/ManuGH/vpspool/internal/remote"
)

// ErrBackupFailed is returned when the service answers success=false or no id.
var ErrBackupFailed = errors.New("backup failed")

// HTTPService implements the manager's backup dependency over HTTP.
type HTTPService struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
}

type createRequest struct {
	SessionID string `json:"session_id"`
	NodeID    string `json:"node_id"`
}

type createResponse struct {
	Success  bool   `json:"success"`
	BackupID string `json:"backup_id"`
	Error    string `json:"error"`
}

// NewHTTPService returns a client for the backup service at baseURL.
func NewHTTPService(baseURL, token string, timeout time.Duration) *HTTPService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPService{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		timeout: timeout,
		http:    remote.NewHTTPClient(timeout + time.Second),
	}
}

// CreateBackup snapshots sessionID on nodeID and returns the backup id.
func (s *HTTPService) CreateBackup(ctx context.Context, sessionID, nodeID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	var resp createResponse
	err := remote.PostJSON(ctx, s.http, "backup", remote.JoinURL(s.baseURL, "/api/backups"), s.token,
		createRequest{SessionID: sessionID, NodeID: nodeID}, &resp)
	if err == nil && (!resp.Success || resp.BackupID == "") {
		msg := resp.Error
		if msg == "" {
			msg = "service returned no backup id"
		}
		err = fmt.Errorf("%w: %s", ErrBackupFailed, msg)
	}

	elapsed := time.Since(start)
	logger := log.WithComponentFromContext(ctx, "backup")
	if err != nil {
		metrics.ObserveRemoteCall("backup", "error", elapsed.Seconds())
		logger.Warn().Err(err).
			Str("event", "backup.failed").
			Str(log.FieldSessionID, sessionID).
			Str(log.FieldNodeID, nodeID).
			Msg("backup request failed")
		return "", err
	}

	metrics.ObserveRemoteCall("backup", "ok", elapsed.Seconds())
	logger.Info().
		Str("event", "backup.created").
		Str(log.FieldSessionID, sessionID).
		Str(log.FieldBackupID, resp.BackupID).
		Dur("duration", elapsed).
		Msg("backup created")
	return resp.BackupID, nil
}
