// Package ctxkey defines shared context key types used across multiple packages.
// This package should have no dependencies on other internal packages to avoid import cycles.
package ctxkey

// LoggerKey is the context key type for the enriched logger.
// Used by HTTP middleware to store and retrieve the logger with request_id/conn fields.
type LoggerKey struct{}

// GripKey is the context key type for the per-request GRIP context.
// Set exactly once by the gripmw middleware; never replaced afterwards.
type GripKey struct{}
