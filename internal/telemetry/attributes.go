// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by spans across the daemon.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	NodeIDKey     = "pool.node.id"
	NodeRegionKey = "pool.node.region"
	NodeStatusKey = "pool.node.status"

	SessionIDKey = "pool.session.id"

	FailoverIDKey     = "pool.failover.id"
	FailoverStatusKey = "pool.failover.status"
	FailoverReasonKey = "pool.failover.reason"
	SourceNodeIDKey   = "pool.failover.source_node_id"
	TargetNodeIDKey   = "pool.failover.target_node_id"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// NodeAttributes describes a node.
func NodeAttributes(nodeID, region, status string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(NodeIDKey, nodeID),
		attribute.String(NodeRegionKey, region),
		attribute.String(NodeStatusKey, status),
	}
}

// FailoverAttributes describes a failover record.
func FailoverAttributes(failoverID, sessionID, status, reason, source, target string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(FailoverIDKey, failoverID),
		attribute.String(SessionIDKey, sessionID),
		attribute.String(FailoverStatusKey, status),
		attribute.String(FailoverReasonKey, reason),
		attribute.String(SourceNodeIDKey, source),
		attribute.String(TargetNodeIDKey, target),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
