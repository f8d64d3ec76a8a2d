// Package gripmw provides the net/http middleware that mediates between a
// GRIP proxy and downstream handlers: it evaluates proxy trust on the way
// in and rewrites the response per the GRIP convention on the way out.
package gripmw

import (
	"errors"
	"net/http"

	"github.com/grip-gate/gripgate/internal/ctxkey"
	"github.com/grip-gate/gripgate/pkg/grip"
)

var (
	// ErrInstructNotAvailable is returned by StartInstruct when the request
	// did not arrive via a trusted proxy.
	ErrInstructNotAvailable = errors.New("request is not proxied")

	// ErrInstructAlreadyStarted is returned by StartInstruct on a second
	// call for the same response.
	ErrInstructAlreadyStarted = errors.New("instruction already started for this response")

	// ErrSetupFailed wraps unexpected failures during request setup.
	ErrSetupFailed = errors.New("grip request setup failed")
)

// Context is the per-request read model exposed to downstream handlers.
// It is created exactly once per request, before any downstream handler
// runs, and never mutated afterwards (the instruction slot is the one
// response-scoped exception, owned by the same request task).
type Context struct {
	// Proxied reports whether the request came through a trusted proxy.
	Proxied bool

	// Signed reports whether a configured key validated the Grip-Sig
	// header.
	Signed bool

	// NeedsSigned reports whether the trust configuration accepts signed
	// requests only.
	NeedsSigned bool

	// WS is the WebSocket-over-HTTP session context, nil for plain
	// requests.
	WS *grip.WebSocketContext

	instruct *grip.Instruct
}

// FromRequest returns the GRIP context attached to the request, or nil if
// the middleware has not run.
func FromRequest(r *http.Request) *Context {
	gc, _ := r.Context().Value(ctxkey.GripKey{}).(*Context)
	return gc
}

// StartInstruct begins building a proxy instruction for this response. It
// may be called at most once per response, and only when the request is
// proxied. The returned handle is serialized into Grip-* headers when the
// response is finalized.
func (c *Context) StartInstruct() (*grip.Instruct, error) {
	if !c.Proxied {
		return nil, ErrInstructNotAvailable
	}
	if c.instruct != nil {
		return nil, ErrInstructAlreadyStarted
	}
	c.instruct = &grip.Instruct{}
	return c.instruct, nil
}
