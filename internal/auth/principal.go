// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Kind tells admin callers apart from nodes.
type Kind string

const (
	KindAdmin Kind = "admin"
	KindNode  Kind = "node"
)

// Principal represents the authenticated identity of a caller.
type Principal struct {
	Kind Kind
	// ID is the node id for nodes, and a token fingerprint for admins.
	ID string
}

// NewAdminPrincipal derives a stable, log-safe id from the admin token.
func NewAdminPrincipal(token string) *Principal {
	hash := sha256.Sum256([]byte(token))
	return &Principal{Kind: KindAdmin, ID: "t_" + hex.EncodeToString(hash[:])[:16]}
}

// NewNodePrincipal identifies a node that authenticated with its own token.
func NewNodePrincipal(nodeID string) *Principal {
	return &Principal{Kind: KindNode, ID: nodeID}
}

type principalKey struct{}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the caller stored by WithPrincipal, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
