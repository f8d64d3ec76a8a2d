package grip

import (
	"bytes"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestContext(t *testing.T, connID, body, prefix string) (*WebSocketContext, error) {
	t.Helper()
	r := httptest.NewRequest("POST", "/ws", strings.NewReader(body))
	r.Header.Set("Content-Type", ContentTypeWebSocketEvents)
	if connID != "" {
		r.Header.Set("Connection-Id", connID)
	}
	return NewWebSocketContext(r, prefix)
}

func TestNewWebSocketContext(t *testing.T) {
	tests := []struct {
		name    string
		connID  string
		body    string
		wantErr error
	}{
		{name: "opening request", connID: "c1", body: "OPEN\r\n"},
		{name: "missing connection id", connID: "", body: "OPEN\r\n", wantErr: ErrConnectionIDMissing},
		{name: "bad body", connID: "c1", body: "TEXT zz\r\n", wantErr: ErrEventDecodeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws, err := newTestContext(t, tt.connID, tt.body, "")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewWebSocketContext() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewWebSocketContext() error = %v", err)
			}
			if ws.ID != tt.connID {
				t.Errorf("ID = %q, want %q", ws.ID, tt.connID)
			}
		})
	}
}

func TestWebSocketContextMeta(t *testing.T) {
	r := httptest.NewRequest("POST", "/ws", strings.NewReader("OPEN\r\n"))
	r.Header.Set("Content-Type", ContentTypeWebSocketEvents)
	r.Header.Set("Connection-Id", "c1")
	r.Header.Set("Meta-User", "alice")
	r.Header.Set("Meta-Role", "guest")

	ws, err := NewWebSocketContext(r, "")
	if err != nil {
		t.Fatalf("NewWebSocketContext() error = %v", err)
	}
	if ws.Meta["user"] != "alice" {
		t.Fatalf("Meta[user] = %q, want alice", ws.Meta["user"])
	}

	// Changed and removed keys show up as Set-Meta headers; unchanged do not.
	ws.Meta["role"] = "admin"
	delete(ws.Meta, "user")
	h := ws.ToHeaders()
	if got := h.Get("Set-Meta-role"); got != "admin" {
		t.Errorf("Set-Meta-role = %q, want admin", got)
	}
	if _, ok := h["Set-Meta-User"]; !ok {
		t.Error("removed meta key was not cleared")
	}
	if got := h.Get("Content-Type"); got != ContentTypeWebSocketEvents {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestWebSocketContextRecvSend(t *testing.T) {
	body := "OPEN\r\nTEXT 5\r\nhello\r\nPING\r\nTEXT 3\r\nbye\r\n"
	ws, err := newTestContext(t, "c1", body, "")
	if err != nil {
		t.Fatalf("NewWebSocketContext() error = %v", err)
	}

	if !ws.IsOpening() {
		t.Fatal("IsOpening() = false, want true")
	}
	if !ws.CanRecv() {
		t.Fatal("CanRecv() = false, want true")
	}

	msg, err := ws.Recv()
	if err != nil || string(msg) != "hello" {
		t.Fatalf("Recv() = %q, %v", msg, err)
	}
	// PING is skipped transparently.
	msg, err = ws.Recv()
	if err != nil || string(msg) != "bye" {
		t.Fatalf("Recv() = %q, %v", msg, err)
	}
	if _, err := ws.Recv(); !errors.Is(err, io.EOF) {
		t.Fatalf("Recv() after batch = %v, want io.EOF", err)
	}

	ws.Accept()
	ws.Send([]byte("echo"))
	ws.Close(1000)

	events := ws.OutgoingEvents()
	if len(events) != 3 {
		t.Fatalf("OutgoingEvents() = %d events, want 3", len(events))
	}
	if events[0].Type != EventOpen {
		t.Errorf("event[0] = %v, want OPEN", events[0].Type)
	}
	if events[1].Type != EventText || string(events[1].Content) != "m:echo" {
		t.Errorf("event[1] = %v %q, want TEXT m:echo", events[1].Type, events[1].Content)
	}
	if events[2].Type != EventClose || !bytes.Equal(events[2].Content, []byte{0x03, 0xe8}) {
		t.Errorf("event[2] = %v %v, want CLOSE [3 232]", events[2].Type, events[2].Content)
	}
}

func TestWebSocketContextRecvClose(t *testing.T) {
	ws, err := newTestContext(t, "c1", "CLOSE 2\r\n\x03\xe9\r\n", "")
	if err != nil {
		t.Fatalf("NewWebSocketContext() error = %v", err)
	}
	if _, err := ws.Recv(); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("Recv() = %v, want ErrConnectionClosed", err)
	}
	if ws.CloseCode() != 1001 {
		t.Errorf("CloseCode() = %d, want 1001", ws.CloseCode())
	}
}

func TestWebSocketContextSubscribePrefix(t *testing.T) {
	ws, err := newTestContext(t, "c1", "OPEN\r\n", "app-")
	if err != nil {
		t.Fatalf("NewWebSocketContext() error = %v", err)
	}
	ws.Subscribe("room1")

	events := ws.OutgoingEvents()
	if len(events) != 1 {
		t.Fatalf("OutgoingEvents() = %d events, want 1", len(events))
	}
	want := `c:{"channel":"app-room1","type":"subscribe"}`
	if string(events[0].Content) != want {
		t.Errorf("control event = %q, want %q", events[0].Content, want)
	}
}
