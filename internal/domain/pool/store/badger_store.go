// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ManuGH/vpspool/internal/domain/pool/model"
	"github.com/dgraph-io/badger/v4"
)

// Key layout:
//   - node:<id>      node JSON
//   - sess:<id>      session JSON
//   - fo:<id>        failover JSON
//   - active:<sid>   id of the session's non-terminal failover
const (
	prefixNode     = "node:"
	prefixSession  = "sess:"
	prefixFailover = "fo:"
	prefixActive   = "active:"
)

// maxConflictRetries bounds how often a transaction is replayed after
// badger.ErrConflict.
const maxConflictRetries = 5

// BadgerStore implements Store on an embedded Badger database.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens the database in dir. An empty dir opens an
// in-memory instance.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger: database closed")
	}
	return ctx.Err()
}

// update runs fn in a read-write transaction, replaying it on conflict.
func (s *BadgerStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func getJSON[T any](txn *badger.Txn, key string) (*T, error) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var out T
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &out)
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

func setJSON(txn *badger.Txn, key string, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), buf)
}

func scanJSON[T any](txn *badger.Txn, prefix string, fn func(*T) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.ValidForPrefix(opts.Prefix); it.Next() {
		var rec T
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		}); err != nil {
			return err
		}
		if err := fn(&rec); err != nil {
			return err
		}
	}
	return nil
}

// --- Nodes ---

func (s *BadgerStore) PutNode(ctx context.Context, n *model.Node) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, prefixNode+n.ID, n)
	})
}

func (s *BadgerStore) GetNode(ctx context.Context, id string) (*model.Node, error) {
	var out *model.Node
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = getJSON[model.Node](txn, prefixNode+id)
		return err
	})
	return out, err
}

func (s *BadgerStore) ListNodes(ctx context.Context, filter NodeFilter) ([]*model.Node, error) {
	var out []*model.Node
	err := s.db.View(func(txn *badger.Txn) error {
		return scanJSON(txn, prefixNode, func(n *model.Node) error {
			if filter.matches(n) {
				out = append(out, n)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *BadgerStore) UpdateNode(ctx context.Context, id string, fn func(*model.Node) error) (*model.Node, error) {
	var out *model.Node
	err := s.update(ctx, func(txn *badger.Txn) error {
		n, err := getJSON[model.Node](txn, prefixNode+id)
		if err != nil {
			return err
		}
		if n == nil {
			return ErrNotFound
		}
		if err := fn(n); err != nil {
			return err
		}
		out = n
		return setJSON(txn, prefixNode+id, n)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// --- Sessions ---

func (s *BadgerStore) PutSession(ctx context.Context, sess *model.Session) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, prefixSession+sess.ID, sess)
	})
}

func (s *BadgerStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var out *model.Session
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = getJSON[model.Session](txn, prefixSession+id)
		return err
	})
	return out, err
}

func (s *BadgerStore) ListSessionsByNode(ctx context.Context, nodeID string) ([]*model.Session, error) {
	var out []*model.Session
	err := s.db.View(func(txn *badger.Txn) error {
		return scanJSON(txn, prefixSession, func(sess *model.Session) error {
			if sess.NodeID == nodeID {
				out = append(out, sess)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *BadgerStore) AssignSession(ctx context.Context, sessionID, nodeID string, now time.Time) (*model.Session, error) {
	var out *model.Session
	err := s.update(ctx, func(txn *badger.Txn) error {
		sess, err := assignSessionTxn(txn, sessionID, nodeID, now)
		out = sess
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func assignSessionTxn(txn *badger.Txn, sessionID, nodeID string, now time.Time) (*model.Session, error) {
	target, err := getJSON[model.Node](txn, prefixNode+nodeID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrNotFound
	}

	sess, err := getJSON[model.Session](txn, prefixSession+sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		sess = &model.Session{ID: sessionID, CreatedAt: now}
	}

	if sess.NodeID != nodeID {
		if sess.NodeID != "" {
			prev, err := getJSON[model.Node](txn, prefixNode+sess.NodeID)
			if err != nil {
				return nil, err
			}
			if prev != nil && prev.CurrentSessions > 0 {
				prev.CurrentSessions--
				prev.UpdatedAt = now
				if err := setJSON(txn, prefixNode+prev.ID, prev); err != nil {
					return nil, err
				}
			}
		}
		target.CurrentSessions++
		target.UpdatedAt = now
		if err := setJSON(txn, prefixNode+target.ID, target); err != nil {
			return nil, err
		}
	}

	sess.NodeID = nodeID
	sess.UpdatedAt = now
	if err := setJSON(txn, prefixSession+sess.ID, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// --- Failovers ---

func (s *BadgerStore) CreateFailover(ctx context.Context, rec *model.Failover) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		if !rec.Status.IsTerminal() {
			activeKey := []byte(prefixActive + rec.SessionID)
			if _, err := txn.Get(activeKey); err == nil {
				return ErrActiveFailoverExists
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Set(activeKey, []byte(rec.ID)); err != nil {
				return err
			}
		}
		return setJSON(txn, prefixFailover+rec.ID, rec)
	})
}

func (s *BadgerStore) GetFailover(ctx context.Context, id string) (*model.Failover, error) {
	var out *model.Failover
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = getJSON[model.Failover](txn, prefixFailover+id)
		return err
	})
	return out, err
}

func (s *BadgerStore) ActiveFailover(ctx context.Context, sessionID string) (*model.Failover, error) {
	var out *model.Failover
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixActive + sessionID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		out, err = getJSON[model.Failover](txn, prefixFailover+string(id))
		return err
	})
	return out, err
}

func (s *BadgerStore) ListFailovers(ctx context.Context, filter FailoverFilter) ([]*model.Failover, error) {
	var out []*model.Failover
	err := s.db.View(func(txn *badger.Txn) error {
		return scanJSON(txn, prefixFailover, func(rec *model.Failover) error {
			if filter.matches(rec) {
				out = append(out, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortFailoversNewestFirst(out)
	return applyLimit(out, filter.Limit), nil
}

func (s *BadgerStore) UpdateFailover(ctx context.Context, id string, fn func(*model.Failover) error) (*model.Failover, error) {
	return s.updateFailover(ctx, id, fn, nil)
}

func (s *BadgerStore) SettleFailover(ctx context.Context, id string, fn func(*model.Failover) error, now time.Time) (*model.Failover, error) {
	return s.updateFailover(ctx, id, fn, func(txn *badger.Txn, rec *model.Failover) error {
		if rec.Status != model.FailoverCompleted {
			return nil
		}
		_, err := assignSessionTxn(txn, rec.SessionID, rec.TargetNodeID, now)
		if err != nil {
			return fmt.Errorf("%w: session %s to %s: %w", ErrReassignFailed, rec.SessionID, rec.TargetNodeID, err)
		}
		return nil
	})
}

func (s *BadgerStore) updateFailover(ctx context.Context, id string, fn func(*model.Failover) error, after func(*badger.Txn, *model.Failover) error) (*model.Failover, error) {
	var out *model.Failover
	err := s.update(ctx, func(txn *badger.Txn) error {
		rec, err := getJSON[model.Failover](txn, prefixFailover+id)
		if err != nil {
			return err
		}
		if rec == nil {
			return ErrNotFound
		}
		if err := fn(rec); err != nil {
			return err
		}
		if after != nil {
			if err := after(txn, rec); err != nil {
				return err
			}
		}
		if rec.Status.IsTerminal() {
			activeKey := []byte(prefixActive + rec.SessionID)
			item, err := txn.Get(activeKey)
			switch {
			case err == nil:
				cur, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				if string(cur) == id {
					if err := txn.Delete(activeKey); err != nil {
						return err
					}
				}
			case !errors.Is(err, badger.ErrKeyNotFound):
				return err
			}
		}
		out = rec
		return setJSON(txn, prefixFailover+id, rec)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
