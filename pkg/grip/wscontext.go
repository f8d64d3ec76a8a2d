package grip

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// WebSocketContext is the decoded view of one WebSocket-over-HTTP request:
// the inbound event batch plus an accumulator for outgoing events. It is
// owned by a single request; the finalizer consumes the outgoing events
// exactly once when the response is written.
type WebSocketContext struct {
	// ID is the proxy-assigned connection identifier.
	ID string

	// Meta is the working copy of connection metadata. Changes relative to
	// the values the proxy sent are emitted as Set-Meta headers.
	Meta map[string]string

	prefix    string
	inEvents  []WebSocketEvent
	readIndex int
	origMeta  map[string]string

	accepted     bool
	closeCode    int
	closed       bool
	outCloseCode int
	outClosed    bool
	outEvents    []WebSocketEvent
}

// NewWebSocketContext decodes r into a session context. The prefix is used
// to qualify channel names in subscribe/unsubscribe control messages,
// consistent with the instruction layer.
func NewWebSocketContext(r *http.Request, prefix string) (*WebSocketContext, error) {
	id := r.Header.Get("Connection-Id")
	if id == "" {
		return nil, ErrConnectionIDMissing
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading request body: %v", ErrEventDecodeFailed, err)
	}
	events, err := DecodeWebSocketEvents(body)
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for name, values := range r.Header {
		if rest, ok := strings.CutPrefix(name, "Meta-"); ok && len(values) > 0 {
			meta[strings.ToLower(rest)] = values[0]
		}
	}
	orig := make(map[string]string, len(meta))
	for k, v := range meta {
		orig[k] = v
	}

	return &WebSocketContext{
		ID:       id,
		Meta:     meta,
		prefix:   prefix,
		inEvents: events,
		origMeta: orig,
	}, nil
}

// InboundCount returns the number of events the request carried.
func (ws *WebSocketContext) InboundCount() int {
	return len(ws.inEvents)
}

// IsOpening reports whether this request opens the connection.
func (ws *WebSocketContext) IsOpening() bool {
	return len(ws.inEvents) > 0 && ws.inEvents[0].Type == EventOpen
}

// Accept accepts an opening connection. The OPEN reply event is emitted
// during response finalization.
func (ws *WebSocketContext) Accept() {
	ws.accepted = true
}

// Accepted reports whether Accept has been called.
func (ws *WebSocketContext) Accepted() bool {
	return ws.accepted
}

// CanRecv reports whether a call to Recv would yield a message or a close
// without blocking on more inbound requests.
func (ws *WebSocketContext) CanRecv() bool {
	for _, ev := range ws.inEvents[ws.readIndex:] {
		switch ev.Type {
		case EventText, EventBinary, EventClose, EventDisconnect:
			return true
		}
	}
	return false
}

// Recv returns the next inbound message. It returns ErrConnectionClosed
// once the peer has closed or disconnected, and io.EOF when the current
// event batch is exhausted.
func (ws *WebSocketContext) Recv() ([]byte, error) {
	for ws.readIndex < len(ws.inEvents) {
		ev := ws.inEvents[ws.readIndex]
		ws.readIndex++
		switch ev.Type {
		case EventText, EventBinary:
			if ev.Content == nil {
				return []byte{}, nil
			}
			return ev.Content, nil
		case EventClose:
			ws.closed = true
			if len(ev.Content) >= 2 {
				ws.closeCode = int(binary.BigEndian.Uint16(ev.Content))
			}
			return nil, ErrConnectionClosed
		case EventDisconnect:
			ws.closed = true
			return nil, ErrConnectionClosed
		}
	}
	return nil, io.EOF
}

// CloseCode returns the close code the peer sent, if any.
func (ws *WebSocketContext) CloseCode() int {
	return ws.closeCode
}

// Send queues a text message for the client.
func (ws *WebSocketContext) Send(msg []byte) {
	ws.outEvents = append(ws.outEvents, WebSocketEvent{
		Type:    EventText,
		Content: append([]byte("m:"), msg...),
	})
}

// SendBinary queues a binary message for the client.
func (ws *WebSocketContext) SendBinary(msg []byte) {
	ws.outEvents = append(ws.outEvents, WebSocketEvent{
		Type:    EventBinary,
		Content: append([]byte("m:"), msg...),
	})
}

// SendControl queues a GRIP control message for the proxy itself.
func (ws *WebSocketContext) SendControl(msg []byte) {
	ws.outEvents = append(ws.outEvents, WebSocketEvent{
		Type:    EventText,
		Content: append([]byte("c:"), msg...),
	})
}

// Subscribe subscribes the connection to a channel. The configured prefix
// is applied here so callers work with logical channel names.
func (ws *WebSocketContext) Subscribe(channel string) {
	ws.sendControlJSON(map[string]string{
		"type":    "subscribe",
		"channel": ws.prefix + channel,
	})
}

// Unsubscribe removes a channel subscription.
func (ws *WebSocketContext) Unsubscribe(channel string) {
	ws.sendControlJSON(map[string]string{
		"type":    "unsubscribe",
		"channel": ws.prefix + channel,
	})
}

// DetachGrip detaches the connection from the backend: the proxy keeps the
// client connected but stops relaying to us.
func (ws *WebSocketContext) DetachGrip() {
	ws.sendControlJSON(map[string]string{"type": "detach"})
}

func (ws *WebSocketContext) sendControlJSON(msg map[string]string) {
	// Marshal of a map[string]string cannot fail.
	data, _ := json.Marshal(msg)
	ws.SendControl(data)
}

// Close queues a close of the client connection with the given code.
func (ws *WebSocketContext) Close(code int) {
	ws.outClosed = true
	ws.outCloseCode = code
}

// OutgoingEvents returns the events to frame into the response body: an
// OPEN reply if the connection was accepted, the queued messages, and a
// trailing CLOSE if requested.
func (ws *WebSocketContext) OutgoingEvents() []WebSocketEvent {
	var events []WebSocketEvent
	if ws.accepted {
		events = append(events, WebSocketEvent{Type: EventOpen})
	}
	events = append(events, ws.outEvents...)
	if ws.outClosed {
		content := make([]byte, 2)
		binary.BigEndian.PutUint16(content, uint16(ws.outCloseCode))
		events = append(events, WebSocketEvent{Type: EventClose, Content: content})
	}
	return events
}

// ToHeaders returns the proxy-facing response headers for this session:
// the websocket-events content type, the GRIP extension when the
// connection was accepted, and Set-Meta headers for metadata changes.
func (ws *WebSocketContext) ToHeaders() http.Header {
	h := make(http.Header)
	h.Set("Content-Type", ContentTypeWebSocketEvents)
	if ws.accepted {
		h.Set("Sec-WebSocket-Extensions", `grip; message-prefix=""`)
	}
	for k, v := range ws.Meta {
		if ws.origMeta[k] != v {
			h.Set("Set-Meta-"+k, v)
		}
	}
	for k := range ws.origMeta {
		if _, ok := ws.Meta[k]; !ok {
			h.Set("Set-Meta-"+k, "")
		}
	}
	return h
}
