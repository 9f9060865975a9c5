// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractToken_PriorityOrder(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "http://example.local/api/v1/nodes/n1/heartbeat", nil)
	r.Header.Set("Authorization", "Bearer bearer-token ")
	r.Header.Set(HeaderNodeToken, "header-token")

	if got := ExtractToken(r); got != "bearer-token" {
		t.Fatalf("ExtractToken() = %q, want %q", got, "bearer-token")
	}
}

func TestExtractToken_NodeHeaderFallback(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "http://example.local/", nil)
	r.Header.Set(HeaderNodeToken, "node-token")

	if got := ExtractToken(r); got != "node-token" {
		t.Fatalf("ExtractToken() = %q, want %q", got, "node-token")
	}
}

func TestExtractToken_IgnoresOtherSchemes(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example.local/", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	if got := ExtractToken(r); got != "" {
		t.Fatalf("ExtractToken() = %q, want empty", got)
	}
}

func TestAuthorizeToken(t *testing.T) {
	if AuthorizeToken("secret", "secret") != true {
		t.Fatal("AuthorizeToken should accept exact match")
	}
	if AuthorizeToken("secret", "other") != false {
		t.Fatal("AuthorizeToken should reject mismatch")
	}
	if AuthorizeToken("", "secret") != false {
		t.Fatal("AuthorizeToken should reject empty got token")
	}
	if AuthorizeToken("secret", "") != false {
		t.Fatal("AuthorizeToken should reject empty expected token")
	}
	if AuthorizeToken("secret ", "secret") != false {
		t.Fatal("AuthorizeToken should not trim")
	}
}

func TestAuthorizeRequest_Nil(t *testing.T) {
	if AuthorizeRequest(nil, "secret") {
		t.Fatal("nil request must be rejected")
	}
}

func TestPrincipal_ContextRoundTrip(t *testing.T) {
	p := NewAdminPrincipal("super-secret")
	if !strings.HasPrefix(p.ID, "t_") || strings.Contains(p.ID, "super-secret") {
		t.Fatalf("admin principal id leaks or is malformed: %q", p.ID)
	}

	ctx := WithPrincipal(context.Background(), p)
	if got := PrincipalFromContext(ctx); got != p {
		t.Fatalf("PrincipalFromContext() = %v, want %v", got, p)
	}
	if PrincipalFromContext(context.Background()) != nil {
		t.Fatal("empty context must yield nil principal")
	}
}
