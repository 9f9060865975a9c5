// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/vpspool/internal/domain/pool/model"
	"github.com/ManuGH/vpspool/internal/persistence/sqlite"
)

const (
	schemaVersion = 2 // v2: failovers.retry_of
)

// SqliteStore implements Store using SQLite.
type SqliteStore struct {
	DB *sql.DB
}

// NewSqliteStore opens (and migrates) the pool database at dbPath.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}

	s := &SqliteStore{DB: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pool store: migration failed: %w", err)
	}

	return s, nil
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}

func (s *SqliteStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *SqliteStore) migrate() error {
	var currentVersion int
	if err := s.DB.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}

	if currentVersion >= schemaVersion {
		return nil
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		region TEXT NOT NULL,
		base_url TEXT NOT NULL,
		token TEXT NOT NULL,
		max_sessions INTEGER NOT NULL,
		current_sessions INTEGER NOT NULL DEFAULT 0,
		health_score REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		needs_reset INTEGER NOT NULL DEFAULT 0,
		cpu_load REAL NOT NULL DEFAULT 0,
		memory_load REAL NOT NULL DEFAULT 0,
		avg_latency_ms REAL NOT NULL DEFAULT 0,
		last_heartbeat_ms INTEGER,
		created_at_ms INTEGER NOT NULL,
		updated_at_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_active_region ON nodes(is_active, region);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL DEFAULT '',
		node_id TEXT,
		created_at_ms INTEGER NOT NULL,
		updated_at_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_node ON sessions(node_id);

	CREATE TABLE IF NOT EXISTS failovers (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		source_node_id TEXT,
		target_node_id TEXT,
		reason TEXT NOT NULL,
		status TEXT NOT NULL,
		backup_id TEXT,
		error_message TEXT,
		created_at_ms INTEGER NOT NULL,
		updated_at_ms INTEGER NOT NULL,
		backup_started_ms INTEGER,
		migrating_ms INTEGER,
		restoring_ms INTEGER,
		completed_ms INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_failovers_session ON failovers(session_id, created_at_ms);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_failovers_one_active
		ON failovers(session_id) WHERE status NOT IN ('completed', 'failed');
	`

	if _, err := tx.Exec(schema); err != nil {
		return err
	}

	if currentVersion < 2 {
		if _, err := tx.Exec("ALTER TABLE failovers ADD COLUMN retry_of TEXT"); err != nil && !strings.Contains(err.Error(), "duplicate column") {
			return err
		}
	}

	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}

	return tx.Commit()
}

// --- Nodes ---

const nodeColumns = `id, name, region, base_url, token, max_sessions, current_sessions, health_score,
	status, is_active, needs_reset, cpu_load, memory_load, avg_latency_ms, last_heartbeat_ms,
	created_at_ms, updated_at_ms`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SqliteStore) PutNode(ctx context.Context, n *model.Node) error {
	return putNode(ctx, s.DB, n)
}

func putNode(ctx context.Context, db execer, n *model.Node) error {
	query := `
	INSERT INTO nodes (` + nodeColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		region = excluded.region,
		base_url = excluded.base_url,
		token = excluded.token,
		max_sessions = excluded.max_sessions,
		current_sessions = excluded.current_sessions,
		health_score = excluded.health_score,
		status = excluded.status,
		is_active = excluded.is_active,
		needs_reset = excluded.needs_reset,
		cpu_load = excluded.cpu_load,
		memory_load = excluded.memory_load,
		avg_latency_ms = excluded.avg_latency_ms,
		last_heartbeat_ms = excluded.last_heartbeat_ms,
		updated_at_ms = excluded.updated_at_ms
	`
	_, err := db.ExecContext(ctx, query,
		n.ID, n.Name, n.Region, n.BaseURL, n.Token, n.MaxSessions, n.CurrentSessions, n.HealthScore,
		string(n.Status), n.IsActive, n.NeedsReset, n.CPULoad, n.MemoryLoad, n.AvgLatencyMS,
		timeToNullMs(n.LastHeartbeatAt), t2ms(n.CreatedAt), t2ms(n.UpdatedAt),
	)
	return err
}

func (s *SqliteStore) GetNode(ctx context.Context, id string) (*model.Node, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT "+nodeColumns+" FROM nodes WHERE id = ?", id)
	return scanNode(row)
}

func (s *SqliteStore) ListNodes(ctx context.Context, filter NodeFilter) ([]*model.Node, error) {
	query := "SELECT " + nodeColumns + " FROM nodes WHERE 1=1"
	args := []any{}

	if filter.ActiveOnly {
		query += " AND is_active = 1"
	}
	if filter.Region != "" {
		query += " AND region = ?"
		args = append(args, filter.Region)
	}
	query += " ORDER BY created_at_ms, id"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []*model.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, n)
	}
	return results, rows.Err()
}

func (s *SqliteStore) UpdateNode(ctx context.Context, id string, fn func(*model.Node) error) (*model.Node, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	n, err := scanNode(tx.QueryRowContext(ctx, "SELECT "+nodeColumns+" FROM nodes WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrNotFound
	}

	if err := fn(n); err != nil {
		return nil, err
	}
	if err := putNode(ctx, tx, n); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return n, nil
}

func scanNode(row rowScanner) (*model.Node, error) {
	var (
		n                        model.Node
		status                   string
		lastHeartbeat            sql.NullInt64
		createdAtMs, updatedAtMs int64
	)
	err := row.Scan(
		&n.ID, &n.Name, &n.Region, &n.BaseURL, &n.Token, &n.MaxSessions, &n.CurrentSessions, &n.HealthScore,
		&status, &n.IsActive, &n.NeedsReset, &n.CPULoad, &n.MemoryLoad, &n.AvgLatencyMS, &lastHeartbeat,
		&createdAtMs, &updatedAtMs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	n.Status = model.NodeStatus(status)
	n.LastHeartbeatAt = nullMsToTime(lastHeartbeat)
	n.CreatedAt = ms2t(createdAtMs)
	n.UpdatedAt = ms2t(updatedAtMs)
	return &n, nil
}

// --- Sessions ---

func (s *SqliteStore) PutSession(ctx context.Context, sess *model.Session) error {
	return putSession(ctx, s.DB, sess)
}

func putSession(ctx context.Context, db execer, sess *model.Session) error {
	_, err := db.ExecContext(ctx, `
	INSERT INTO sessions (id, tenant_id, node_id, created_at_ms, updated_at_ms)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		tenant_id = excluded.tenant_id,
		node_id = excluded.node_id,
		updated_at_ms = excluded.updated_at_ms
	`, sess.ID, sess.TenantID, nullString(sess.NodeID), t2ms(sess.CreatedAt), t2ms(sess.UpdatedAt))
	return err
}

func (s *SqliteStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT id, tenant_id, node_id, created_at_ms, updated_at_ms FROM sessions WHERE id = ?", id)
	return scanSession(row)
}

func (s *SqliteStore) ListSessionsByNode(ctx context.Context, nodeID string) ([]*model.Session, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, tenant_id, node_id, created_at_ms, updated_at_ms FROM sessions WHERE node_id = ? ORDER BY id", nodeID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []*model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, sess)
	}
	return results, rows.Err()
}

func (s *SqliteStore) AssignSession(ctx context.Context, sessionID, nodeID string, now time.Time) (*model.Session, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	sess, err := assignSessionTx(ctx, tx, sessionID, nodeID, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return sess, nil
}

func assignSessionTx(ctx context.Context, tx *sql.Tx, sessionID, nodeID string, now time.Time) (*model.Session, error) {
	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM nodes WHERE id = ?", nodeID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	sess, err := scanSession(tx.QueryRowContext(ctx,
		"SELECT id, tenant_id, node_id, created_at_ms, updated_at_ms FROM sessions WHERE id = ?", sessionID))
	if err != nil {
		return nil, err
	}
	if sess == nil {
		sess = &model.Session{ID: sessionID, CreatedAt: now}
	}

	nowMs := t2ms(now)
	if sess.NodeID != nodeID {
		if sess.NodeID != "" {
			if _, err := tx.ExecContext(ctx,
				"UPDATE nodes SET current_sessions = MAX(current_sessions - 1, 0), updated_at_ms = ? WHERE id = ?",
				nowMs, sess.NodeID); err != nil {
				return nil, err
			}
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE nodes SET current_sessions = current_sessions + 1, updated_at_ms = ? WHERE id = ?",
			nowMs, nodeID); err != nil {
			return nil, err
		}
	}

	sess.NodeID = nodeID
	sess.UpdatedAt = now
	if err := putSession(ctx, tx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func scanSession(row rowScanner) (*model.Session, error) {
	var (
		sess                     model.Session
		nodeID                   sql.NullString
		createdAtMs, updatedAtMs int64
	)
	if err := row.Scan(&sess.ID, &sess.TenantID, &nodeID, &createdAtMs, &updatedAtMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	sess.NodeID = nodeID.String
	sess.CreatedAt = ms2t(createdAtMs)
	sess.UpdatedAt = ms2t(updatedAtMs)
	return &sess, nil
}

// --- Failovers ---

const failoverColumns = `id, session_id, source_node_id, target_node_id, reason, status, backup_id,
	error_message, retry_of, created_at_ms, updated_at_ms, backup_started_ms, migrating_ms,
	restoring_ms, completed_ms`

func (s *SqliteStore) CreateFailover(ctx context.Context, rec *model.Failover) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if !rec.Status.IsTerminal() {
		var active int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM failovers WHERE session_id = ? AND status NOT IN ('completed', 'failed')",
			rec.SessionID).Scan(&active); err != nil {
			return err
		}
		if active > 0 {
			return ErrActiveFailoverExists
		}
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO failovers (`+failoverColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.SessionID, nullString(rec.SourceNodeID), nullString(rec.TargetNodeID),
		string(rec.Reason), string(rec.Status), nullString(rec.BackupID), nullString(rec.ErrorMessage),
		nullString(rec.RetryOf), t2ms(rec.CreatedAt), t2ms(rec.UpdatedAt),
		ptrToNullMs(rec.BackupStartedAt), ptrToNullMs(rec.MigratingAt), ptrToNullMs(rec.RestoringAt),
		ptrToNullMs(rec.CompletedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrActiveFailoverExists
		}
		return err
	}
	return tx.Commit()
}

func (s *SqliteStore) GetFailover(ctx context.Context, id string) (*model.Failover, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT "+failoverColumns+" FROM failovers WHERE id = ?", id)
	return scanFailover(row)
}

func (s *SqliteStore) ActiveFailover(ctx context.Context, sessionID string) (*model.Failover, error) {
	row := s.DB.QueryRowContext(ctx,
		"SELECT "+failoverColumns+" FROM failovers WHERE session_id = ? AND status NOT IN ('completed', 'failed')",
		sessionID)
	return scanFailover(row)
}

func (s *SqliteStore) ListFailovers(ctx context.Context, filter FailoverFilter) ([]*model.Failover, error) {
	query := "SELECT " + failoverColumns + " FROM failovers WHERE 1=1"
	args := []any{}

	if filter.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, filter.SessionID)
	}
	if len(filter.Statuses) > 0 {
		query += " AND status IN ("
		for i, st := range filter.Statuses {
			if i > 0 {
				query += ","
			}
			query += "?"
			args = append(args, string(st))
		}
		query += ")"
	}
	query += " ORDER BY created_at_ms DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []*model.Failover
	for rows.Next() {
		rec, err := scanFailover(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

func (s *SqliteStore) UpdateFailover(ctx context.Context, id string, fn func(*model.Failover) error) (*model.Failover, error) {
	return s.updateFailover(ctx, id, fn, nil)
}

func (s *SqliteStore) SettleFailover(ctx context.Context, id string, fn func(*model.Failover) error, now time.Time) (*model.Failover, error) {
	return s.updateFailover(ctx, id, fn, func(tx *sql.Tx, rec *model.Failover) error {
		if rec.Status != model.FailoverCompleted {
			return nil
		}
		_, err := assignSessionTx(ctx, tx, rec.SessionID, rec.TargetNodeID, now)
		if err != nil {
			return fmt.Errorf("%w: session %s to %s: %w", ErrReassignFailed, rec.SessionID, rec.TargetNodeID, err)
		}
		return nil
	})
}

func (s *SqliteStore) updateFailover(ctx context.Context, id string, fn func(*model.Failover) error, after func(*sql.Tx, *model.Failover) error) (*model.Failover, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := scanFailover(tx.QueryRowContext(ctx, "SELECT "+failoverColumns+" FROM failovers WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}

	if err := fn(rec); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE failovers SET
			source_node_id = ?, target_node_id = ?, reason = ?, status = ?, backup_id = ?,
			error_message = ?, retry_of = ?, updated_at_ms = ?, backup_started_ms = ?,
			migrating_ms = ?, restoring_ms = ?, completed_ms = ?
		WHERE id = ?
		`,
		nullString(rec.SourceNodeID), nullString(rec.TargetNodeID), string(rec.Reason), string(rec.Status),
		nullString(rec.BackupID), nullString(rec.ErrorMessage), nullString(rec.RetryOf), t2ms(rec.UpdatedAt),
		ptrToNullMs(rec.BackupStartedAt), ptrToNullMs(rec.MigratingAt), ptrToNullMs(rec.RestoringAt),
		ptrToNullMs(rec.CompletedAt), rec.ID,
	)
	if err != nil {
		return nil, err
	}

	if after != nil {
		if err := after(tx, rec); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rec, nil
}

func scanFailover(row rowScanner) (*model.Failover, error) {
	var (
		rec                                            model.Failover
		source, target, backupID, errMsg, retryOf      sql.NullString
		reason, status                                 string
		createdAtMs, updatedAtMs                       int64
		backupStarted, migrating, restoring, completed sql.NullInt64
	)
	err := row.Scan(
		&rec.ID, &rec.SessionID, &source, &target, &reason, &status, &backupID,
		&errMsg, &retryOf, &createdAtMs, &updatedAtMs, &backupStarted, &migrating,
		&restoring, &completed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rec.SourceNodeID = source.String
	rec.TargetNodeID = target.String
	rec.Reason = model.FailoverReason(reason)
	rec.Status = model.FailoverStatus(status)
	rec.BackupID = backupID.String
	rec.ErrorMessage = errMsg.String
	rec.RetryOf = retryOf.String
	rec.CreatedAt = ms2t(createdAtMs)
	rec.UpdatedAt = ms2t(updatedAtMs)
	rec.BackupStartedAt = nullMsToPtr(backupStarted)
	rec.MigratingAt = nullMsToPtr(migrating)
	rec.RestoringAt = nullMsToPtr(restoring)
	rec.CompletedAt = nullMsToPtr(completed)
	return &rec, nil
}

// --- Helpers ---

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func t2ms(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func ms2t(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func timeToNullMs(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func nullMsToTime(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64).UTC()
}

func ptrToNullMs(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func nullMsToPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
