package grip

import (
	"encoding/base64"
	"unicode/utf8"
)

// Format is one rendering of a published message. A single item can carry
// several formats; the proxy picks the one matching each held connection.
type Format interface {
	// Name is the format key in the published item ("http-response",
	// "http-stream", "ws-message").
	Name() string

	// Export returns the JSON-marshalable body of the format.
	Export() interface{}
}

// Item is one published message in EPCP wire form.
type Item struct {
	Channel string                 `json:"channel"`
	ID      string                 `json:"id,omitempty"`
	PrevID  string                 `json:"prev-id,omitempty"`
	Formats map[string]interface{} `json:"formats"`
}

// NewItem builds an item for a channel from the given formats.
func NewItem(channel, id, prevID string, formats ...Format) Item {
	exported := make(map[string]interface{}, len(formats))
	for _, f := range formats {
		exported[f.Name()] = f.Export()
	}
	return Item{Channel: channel, ID: id, PrevID: prevID, Formats: exported}
}

// HTTPResponseFormat delivers a full response to long-polling connections.
type HTTPResponseFormat struct {
	Code    int
	Reason  string
	Headers map[string]string
	Body    []byte
}

func (f HTTPResponseFormat) Name() string { return "http-response" }

func (f HTTPResponseFormat) Export() interface{} {
	out := make(map[string]interface{})
	if f.Code != 0 {
		out["code"] = f.Code
	}
	if f.Reason != "" {
		out["reason"] = f.Reason
	}
	if len(f.Headers) > 0 {
		out["headers"] = f.Headers
	}
	setContent(out, "body", f.Body)
	return out
}

// HTTPStreamFormat appends content to streaming connections, or closes
// them when Close is set.
type HTTPStreamFormat struct {
	Content []byte
	Close   bool
}

func (f HTTPStreamFormat) Name() string { return "http-stream" }

func (f HTTPStreamFormat) Export() interface{} {
	out := make(map[string]interface{})
	if f.Close {
		out["action"] = "close"
		return out
	}
	setContent(out, "content", f.Content)
	return out
}

// WebSocketMessageFormat delivers a message to WebSocket-over-HTTP
// connections, or closes them when Close is set.
type WebSocketMessageFormat struct {
	Content []byte
	Binary  bool
	Close   bool
	Code    int
}

func (f WebSocketMessageFormat) Name() string { return "ws-message" }

func (f WebSocketMessageFormat) Export() interface{} {
	out := make(map[string]interface{})
	if f.Close {
		out["action"] = "close"
		if f.Code != 0 {
			out["code"] = f.Code
		}
		return out
	}
	if f.Binary {
		out["content-bin"] = base64.StdEncoding.EncodeToString(f.Content)
		return out
	}
	setContent(out, "content", f.Content)
	return out
}

// setContent stores data under key when it is valid UTF-8, otherwise
// base64-encoded under key + "-bin".
func setContent(out map[string]interface{}, key string, data []byte) {
	if data == nil {
		return
	}
	if utf8.Valid(data) {
		out[key] = string(data)
		return
	}
	out[key+"-bin"] = base64.StdEncoding.EncodeToString(data)
}
