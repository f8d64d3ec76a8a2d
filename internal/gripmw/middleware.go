package gripmw

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/grip-gate/gripgate/internal/ctxkey"
	"github.com/grip-gate/gripgate/internal/domain/trust"
	"github.com/grip-gate/gripgate/internal/service"
	"github.com/grip-gate/gripgate/pkg/grip"
)

// Option is a functional option for configuring the middleware.
type Option func(*settings)

type settings struct {
	logger *slog.Logger
	held   *prometheus.CounterVec
	wsIn   prometheus.Counter
	wsOut  prometheus.Counter
}

// WithLogger sets the middleware's fallback logger. A request-enriched
// logger in the context takes precedence.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithCollectors wires the middleware's instrumentation: held responses by
// hold mode, and WebSocket-over-HTTP events in each direction.
func WithCollectors(held *prometheus.CounterVec, wsIn, wsOut prometheus.Counter) Option {
	return func(s *settings) {
		s.held = held
		s.wsIn = wsIn
		s.wsOut = wsOut
	}
}

// Middleware builds the GRIP mediation middleware around the gate. On the
// way in it evaluates proxy trust and loads any WebSocket-over-HTTP
// session; on the way out it finalizes the response per the GRIP
// convention. Setup failures terminate the request with a specific status
// code and never reach downstream handlers.
func Middleware(gate *service.Gate, opts ...Option) func(http.Handler) http.Handler {
	s := &settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Re-entrant invocation: setup already ran for this request.
			if FromRequest(r) != nil {
				next.ServeHTTP(w, r)
				return
			}

			logger := loggerFrom(r.Context(), s.logger)

			if !gate.Configured() {
				logger.Error("request rejected: no grip configuration provided")
				http.Error(w, "no GRIP configuration provided", http.StatusInternalServerError)
				return
			}

			creds, err := gate.Credentials()
			if err != nil {
				// Configured() held above, so this is an unexpected failure.
				logger.Error("request setup failed", "error", errors.Join(ErrSetupFailed, err))
				http.Error(w, "error setting up GRIP context", http.StatusBadRequest)
				return
			}

			res := trust.Evaluate(r.Header.Get("Grip-Sig"), creds)
			if gate.ProxyRequired() && !res.Proxied {
				logger.Warn("request rejected: proxy required but request is not proxied")
				http.Error(w, "not implemented", http.StatusNotImplemented)
				return
			}

			var ws *grip.WebSocketContext
			if grip.IsWSOverHTTP(r) {
				ws, err = grip.NewWebSocketContext(r, gate.Prefix())
				if err != nil {
					writeSetupError(w, logger, err)
					return
				}
				if s.wsIn != nil {
					s.wsIn.Add(float64(ws.InboundCount()))
				}
			}

			gc := &Context{
				Proxied:     res.Proxied,
				Signed:      res.Signed,
				NeedsSigned: res.NeedsSigned,
				WS:          ws,
			}
			r = r.WithContext(context.WithValue(r.Context(), ctxkey.GripKey{}, gc))

			gw := newGripWriter(w, gc, gate.Prefix(), s)
			next.ServeHTTP(gw, r)

			if err := gw.finish(); err != nil {
				// Headers are out by now; all we can do is surface it.
				logger.Error("response finalization failed", "error", err)
			}
		})
	}
}

// writeSetupError maps session-loading failures onto terminal responses,
// with bodies that distinguish the error kinds.
func writeSetupError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, grip.ErrConnectionIDMissing):
		logger.Warn("websocket-over-http request missing connection-id")
		http.Error(w, "WebSocket-over-HTTP request missing connection-id", http.StatusBadRequest)
	case errors.Is(err, grip.ErrEventDecodeFailed):
		logger.Warn("websocket-over-http event decode failed", "error", err)
		http.Error(w, "error parsing WebSocket events", http.StatusBadRequest)
	default:
		logger.Error("request setup failed", "error", errors.Join(ErrSetupFailed, err))
		http.Error(w, "error setting up GRIP context", http.StatusBadRequest)
	}
}

func loggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(ctxkey.LoggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return fallback
}
