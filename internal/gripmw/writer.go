package gripmw

import (
	"fmt"
	"net/http"

	"github.com/grip-gate/gripgate/pkg/grip"
)

// gripWriter wraps the transport's ResponseWriter and rewrites the two
// response-terminating operations per the GRIP convention: WriteHeader
// merges instruction or session headers (emit-headers), and finish appends
// the encoded WebSocket-over-HTTP reply (end-body). Downstream code
// observes an unmodified ResponseWriter otherwise.
type gripWriter struct {
	http.ResponseWriter
	gc       *Context
	prefix   string
	settings *settings

	status      int
	wroteHeader bool
	finished    bool
}

func newGripWriter(w http.ResponseWriter, gc *Context, prefix string, s *settings) *gripWriter {
	return &gripWriter{ResponseWriter: w, gc: gc, prefix: prefix, settings: s}
}

func (g *gripWriter) WriteHeader(code int) {
	if g.wroteHeader {
		// Let the transport log the superfluous call as usual.
		g.ResponseWriter.WriteHeader(code)
		return
	}
	g.wroteHeader = true

	h := g.Header()
	switch {
	case g.gc.WS != nil && code == http.StatusOK:
		// WebSocket-over-HTTP framing takes precedence over any pending
		// instruction for this response.
		mergeHeaders(h, g.gc.WS.ToHeaders())

	case g.gc.instruct != nil:
		in := g.gc.instruct
		if code == http.StatusNotModified {
			// Intermediaries strip most headers from 304 responses, which
			// would drop the Grip-* control headers. Send 200 on the
			// backend-to-proxy hop and let the proxy restore the 304 via
			// the instruction's status override.
			in.Status = http.StatusNotModified
			code = http.StatusOK
		}
		in.PrefixChannels(g.prefix)
		mergeHeaders(h, in.ToHeaders())
		if g.settings.held != nil && in.Hold != "" {
			g.settings.held.WithLabelValues(string(in.Hold)).Inc()
		}
	}

	g.status = code
	g.ResponseWriter.WriteHeader(code)
}

func (g *gripWriter) Write(b []byte) (int, error) {
	if !g.wroteHeader {
		g.WriteHeader(http.StatusOK)
	}
	return g.ResponseWriter.Write(b)
}

// finish performs the end-body rewrite after the downstream handler has
// returned: the session's accumulated outgoing events are encoded and
// written so WebSocket-over-HTTP replies are framed correctly even when
// the handler never wrote the encoded body itself.
func (g *gripWriter) finish() error {
	if g.finished {
		return nil
	}
	g.finished = true

	if !g.wroteHeader {
		g.WriteHeader(http.StatusOK)
	}
	if ws := g.gc.WS; ws != nil && g.status == http.StatusOK {
		events := ws.OutgoingEvents()
		if len(events) > 0 {
			if _, err := g.ResponseWriter.Write(grip.EncodeWebSocketEvents(events)); err != nil {
				return fmt.Errorf("failed to write websocket events: %w", err)
			}
			if g.settings.wsOut != nil {
				g.settings.wsOut.Add(float64(len(events)))
			}
		}
	}
	return nil
}

// Flush delegates to the underlying ResponseWriter if it supports
// http.Flusher, so streaming responses work through the middleware.
func (g *gripWriter) Flush() {
	if f, ok := g.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap supports http.ResponseController.
func (g *gripWriter) Unwrap() http.ResponseWriter {
	return g.ResponseWriter
}

// mergeHeaders copies src into dst, replacing existing values key by key.
func mergeHeaders(dst, src http.Header) {
	for k, vv := range src {
		dst[k] = vv
	}
}
