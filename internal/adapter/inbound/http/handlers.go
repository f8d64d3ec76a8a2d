package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/grip-gate/gripgate/internal/gripmw"
	"github.com/grip-gate/gripgate/internal/service"
	"github.com/grip-gate/gripgate/pkg/grip"
)

// holdTimeout is the long-poll hold duration requested from the proxy.
const holdTimeout = 55 * time.Second

// AppHandlers are the demo endpoints served by the start command. They
// exercise the full mediation surface: response holds, stream holds,
// WebSocket-over-HTTP echo, and publishing.
type AppHandlers struct {
	gate *service.Gate
}

// NewAppHandlers creates the demo endpoint set.
func NewAppHandlers(gate *service.Gate) *AppHandlers {
	return &AppHandlers{gate: gate}
}

// Mux returns the route table for the demo endpoints.
func (a *AppHandlers) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/long-poll", a.handleLongPoll)
	mux.HandleFunc("/stream", a.handleStream)
	mux.HandleFunc("/ws", a.handleWS)
	mux.HandleFunc("/publish", a.handlePublish)
	return mux
}

// handleLongPoll holds the connection on a channel until a message is
// published or the hold times out.
func (a *AppHandlers) handleLongPoll(w http.ResponseWriter, r *http.Request) {
	gc := gripmw.FromRequest(r)
	channel := channelParam(r)

	in, err := gc.StartInstruct()
	if err != nil {
		instructError(w, r, err)
		return
	}
	in.AddChannel(grip.NewChannel(channel))
	in.SetHoldLongPoll(holdTimeout)

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
}

// handleStream opens a streaming hold on a channel, with a keep-alive so
// intermediaries don't drop the idle connection.
func (a *AppHandlers) handleStream(w http.ResponseWriter, r *http.Request) {
	gc := gripmw.FromRequest(r)
	channel := channelParam(r)

	in, err := gc.StartInstruct()
	if err != nil {
		instructError(w, r, err)
		return
	}
	in.AddChannel(grip.NewChannel(channel))
	in.SetHoldStream()
	in.SetKeepAlive([]byte("\n"), 30*time.Second)

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("[stream opened]\n"))
}

// handleWS echoes WebSocket-over-HTTP messages and subscribes the
// connection to the requested channel on open.
func (a *AppHandlers) handleWS(w http.ResponseWriter, r *http.Request) {
	gc := gripmw.FromRequest(r)
	if gc.WS == nil {
		http.Error(w, "WebSocket-over-HTTP request required", http.StatusBadRequest)
		return
	}

	ws := gc.WS
	if ws.IsOpening() {
		ws.Accept()
		ws.Subscribe(channelParam(r))
	}

	logger := LoggerFromContext(r.Context())
	for {
		msg, err := ws.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, grip.ErrConnectionClosed) {
			logger.Debug("websocket peer closed", "code", ws.CloseCode())
			break
		}
		ws.Send(msg)
	}
	// The finalizer frames the reply; nothing to write here.
}

// handlePublish publishes the request body to a channel in all three
// delivery formats.
func (a *AppHandlers) handlePublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "error reading body", http.StatusBadRequest)
		return
	}

	pub, err := a.gate.Publisher()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	channel := channelParam(r)
	errs := errors.Join(
		pub.PublishHTTPResponse(r.Context(), channel, body),
		pub.PublishHTTPStream(r.Context(), channel, append(body, '\n')),
		pub.PublishWSMessage(r.Context(), channel, body),
	)
	if errs != nil {
		LoggerFromContext(r.Context()).Error("publish failed", "channel", channel, "error", errs)
		http.Error(w, "publish failed", http.StatusBadGateway)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("published\n"))
}

func channelParam(r *http.Request) string {
	if ch := r.URL.Query().Get("channel"); ch != "" {
		return ch
	}
	return "test"
}

// instructError maps StartInstruct failures onto responses: a non-proxied
// request cannot be held, which mirrors the proxy-required rejection.
func instructError(w http.ResponseWriter, r *http.Request, err error) {
	LoggerFromContext(r.Context()).Warn("cannot start instruction", "error", err)
	http.Error(w, "not implemented", http.StatusNotImplemented)
}
