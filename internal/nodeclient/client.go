// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package nodeclient calls the instance endpoints exposed by worker nodes.
package nodeclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ManuGH/vpspool/internal/domain/pool/model"
	"github.com/ManuGH/vpspool/internal/log"
	"github.com/ManuGH/vpspool/internal/metrics"
	"github.com/ManuGH/vpspool/internal/remote"
	"github.com/ManuGH/vpspool/internal/resilience"
	"github.com/benbjohnson/clock"
)

// Config configures the node client.
type Config struct {
	// Timeout bounds each restore call.
	Timeout          time.Duration
	BreakerThreshold int
	BreakerReset     time.Duration
	Clock            clock.Clock
}

// Client posts restore requests to nodes, one circuit breaker per node.
type Client struct {
	http     *http.Client
	timeout  time.Duration
	breakers *resilience.Group
}

type restoreRequest struct {
	BackupID string `json:"backup_id"`
}

// New returns a Client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	opts := []resilience.Option{resilience.WithFailureFilter(remote.IsBreakerFailure)}
	if cfg.Clock != nil {
		opts = append(opts, resilience.WithClock(cfg.Clock))
	}
	return &Client{
		// The client timeout is a backstop above the per-call context deadline.
		http:     remote.NewHTTPClient(cfg.Timeout + time.Second),
		timeout:  cfg.Timeout,
		breakers: resilience.NewGroup(cfg.BreakerThreshold, cfg.BreakerReset, opts...),
	}
}

// Restore asks node to restore sessionID from backupID. A nil error means
// the node accepted the request (2xx); completion is reported separately.
func (c *Client) Restore(ctx context.Context, node *model.Node, sessionID, backupID string) error {
	if node == nil {
		return errors.New("restore: nil node")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := remote.JoinURL(node.BaseURL, "/api/instance/"+url.PathEscape(sessionID)+"/restore")
	logger := log.WithComponentFromContext(ctx, "nodeclient").With().
		Str(log.FieldNodeID, node.ID).
		Str(log.FieldSessionID, sessionID).
		Str(log.FieldBackupID, backupID).
		Logger()

	start := time.Now()
	err := c.breakers.Get(node.ID).Execute(func() error {
		return remote.PostJSON(ctx, c.http, "restore", endpoint, node.Token, restoreRequest{BackupID: backupID}, nil)
	})
	elapsed := time.Since(start)

	if err != nil {
		metrics.ObserveRemoteCall("restore", "error", elapsed.Seconds())
		if errors.Is(err, resilience.ErrCircuitOpen) {
			err = fmt.Errorf("restore on node %s: %w", node.ID, err)
		}
		logger.Warn().Err(err).Str("event", "restore.failed").Dur("duration", elapsed).Msg("node rejected or did not answer restore")
		return err
	}

	metrics.ObserveRemoteCall("restore", "ok", elapsed.Seconds())
	logger.Info().Str("event", "restore.accepted").Dur("duration", elapsed).Msg("node accepted restore")
	return nil
}
