package grip

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ContentTypeWebSocketEvents is the media type of WebSocket-over-HTTP
// request and response bodies.
const ContentTypeWebSocketEvents = "application/websocket-events"

// EventType is the frame type of a WebSocket-over-HTTP event.
type EventType string

// Event types defined by the WebSocket-over-HTTP convention.
const (
	EventOpen       EventType = "OPEN"
	EventText       EventType = "TEXT"
	EventBinary     EventType = "BINARY"
	EventPing       EventType = "PING"
	EventPong       EventType = "PONG"
	EventClose      EventType = "CLOSE"
	EventDisconnect EventType = "DISCONNECT"
)

// WebSocketEvent is one WebSocket frame tunneled over HTTP. Content is nil
// for events that carry no payload (the wire forms "TYPE\r\n" and
// "TYPE 0\r\n\r\n" are distinct).
type WebSocketEvent struct {
	Type    EventType
	Content []byte
}

// IsWSOverHTTP reports whether r is a WebSocket-over-HTTP request.
func IsWSOverHTTP(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	return mediaTypeIs(r.Header.Get("Content-Type"), ContentTypeWebSocketEvents) ||
		mediaTypeIs(r.Header.Get("Accept"), ContentTypeWebSocketEvents)
}

func mediaTypeIs(value, want string) bool {
	if i := strings.IndexByte(value, ';'); i >= 0 {
		value = value[:i]
	}
	return strings.EqualFold(strings.TrimSpace(value), want)
}

// EncodeWebSocketEvents renders events in wire form: "TYPE\r\n" for events
// without content, "TYPE hexlen\r\ncontent\r\n" for events with content.
func EncodeWebSocketEvents(events []WebSocketEvent) []byte {
	var buf bytes.Buffer
	for _, ev := range events {
		buf.WriteString(string(ev.Type))
		if ev.Content != nil {
			buf.WriteByte(' ')
			buf.WriteString(strconv.FormatInt(int64(len(ev.Content)), 16))
			buf.WriteString("\r\n")
			buf.Write(ev.Content)
		}
		buf.WriteString("\r\n")
	}
	return buf.Bytes()
}

// DecodeWebSocketEvents parses a request body into events. Any framing
// problem is reported as ErrEventDecodeFailed.
func DecodeWebSocketEvents(body []byte) ([]WebSocketEvent, error) {
	var events []WebSocketEvent
	for len(body) > 0 {
		nl := bytes.Index(body, []byte("\r\n"))
		if nl < 0 {
			return nil, fmt.Errorf("%w: unterminated event header", ErrEventDecodeFailed)
		}
		header := string(body[:nl])
		body = body[nl+2:]

		typ := header
		var content []byte
		if sp := strings.IndexByte(header, ' '); sp >= 0 {
			typ = header[:sp]
			size, err := strconv.ParseInt(header[sp+1:], 16, 64)
			if err != nil || size < 0 {
				return nil, fmt.Errorf("%w: bad content length %q", ErrEventDecodeFailed, header[sp+1:])
			}
			// Compare without size+2, which overflows for huge declared
			// lengths.
			if size > int64(len(body))-2 {
				return nil, fmt.Errorf("%w: truncated event content", ErrEventDecodeFailed)
			}
			content = body[:size:size]
			if body[size] != '\r' || body[size+1] != '\n' {
				return nil, fmt.Errorf("%w: missing content terminator", ErrEventDecodeFailed)
			}
			body = body[size+2:]
		}
		if typ == "" {
			return nil, fmt.Errorf("%w: empty event type", ErrEventDecodeFailed)
		}
		events = append(events, WebSocketEvent{Type: EventType(typ), Content: content})
	}
	return events, nil
}
