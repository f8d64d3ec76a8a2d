// Package grip implements the GRIP (Generic Realtime Intermediary Protocol)
// primitives exchanged between a backend and a GRIP reverse proxy: channel
// values, proxy instructions and their header serialization, Grip-Sig
// validation, the WebSocket-over-HTTP event codec, and the EPCP publish
// formats.
//
// The package has no dependencies on the rest of the module; everything in
// internal/ builds on top of it.
package grip

import "errors"

// Errors surfaced while loading a WebSocket-over-HTTP request or reading
// from a session. Callers distinguish them with errors.Is.
var (
	// ErrConnectionIDMissing indicates a WebSocket-over-HTTP request that
	// lacks the Connection-Id header identifying the client connection.
	ErrConnectionIDMissing = errors.New("connection-id header missing")

	// ErrEventDecodeFailed indicates a request body that is not a valid
	// sequence of WebSocket-over-HTTP events.
	ErrEventDecodeFailed = errors.New("websocket event decode failed")

	// ErrConnectionClosed is returned by Recv once the peer has closed or
	// disconnected the WebSocket connection.
	ErrConnectionClosed = errors.New("websocket connection closed")
)
