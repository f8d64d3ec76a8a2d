package grip

import (
	"encoding/base64"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// HoldMode selects how the proxy holds the client connection open.
type HoldMode string

const (
	// HoldResponse holds the connection until a message is published
	// (long-polling).
	HoldResponse HoldMode = "response"

	// HoldStream keeps the connection open and streams published messages
	// as they arrive.
	HoldStream HoldMode = "stream"
)

// Instruct is an in-progress proxy instruction for a single response. It is
// built by downstream handler code through the handle returned from
// StartInstruct and serialized into Grip-* headers when the response is
// finalized.
//
// Channel names stay unprefixed while the instruction is being built; the
// finalizer qualifies them just before serialization.
type Instruct struct {
	Hold     HoldMode
	Channels []Channel

	// Status, when nonzero, tells the proxy to deliver this status code to
	// the end client instead of the one on the backend-to-proxy hop.
	Status int

	// Timeout applies to response holds only.
	Timeout time.Duration

	keepAliveData     []byte
	keepAliveInterval time.Duration

	meta map[string]string

	nextLink        string
	nextLinkTimeout time.Duration
}

// AddChannel adds a subscription target to the instruction.
func (in *Instruct) AddChannel(ch Channel) {
	in.Channels = append(in.Channels, ch)
}

// SetHoldLongPoll configures a response hold with the given timeout. A zero
// timeout leaves the proxy's default in effect.
func (in *Instruct) SetHoldLongPoll(timeout time.Duration) {
	in.Hold = HoldResponse
	in.Timeout = timeout
}

// SetHoldStream configures a stream hold.
func (in *Instruct) SetHoldStream() {
	in.Hold = HoldStream
}

// SetKeepAlive tells the proxy to write data to the client whenever the
// connection has been idle for the given interval.
func (in *Instruct) SetKeepAlive(data []byte, interval time.Duration) {
	in.keepAliveData = data
	in.keepAliveInterval = interval
}

// MetaSet records a meta value to associate with the held connection.
func (in *Instruct) MetaSet(name, value string) {
	if in.meta == nil {
		in.meta = make(map[string]string)
	}
	in.meta[name] = value
}

// SetNextLink sets the URI the proxy should request next when the current
// response finishes (used for stream paging).
func (in *Instruct) SetNextLink(uri string, timeout time.Duration) {
	in.nextLink = uri
	in.nextLinkTimeout = timeout
}

// PrefixChannels rewrites every channel with prefix prepended to its name.
// New Channel values are produced; cursors are preserved.
func (in *Instruct) PrefixChannels(prefix string) {
	if prefix == "" {
		return
	}
	prefixed := make([]Channel, len(in.Channels))
	for i, ch := range in.Channels {
		prefixed[i] = ch.WithPrefix(prefix)
	}
	in.Channels = prefixed
}

// ToHeaders serializes the instruction into Grip-* headers.
func (in *Instruct) ToHeaders() http.Header {
	h := make(http.Header)
	if in.Hold != "" {
		h.Set("Grip-Hold", string(in.Hold))
	}
	if len(in.Channels) > 0 {
		values := make([]string, len(in.Channels))
		for i, ch := range in.Channels {
			values[i] = ch.headerValue()
		}
		h.Set("Grip-Channel", strings.Join(values, ", "))
	}
	if in.Hold == HoldResponse && in.Timeout > 0 {
		h.Set("Grip-Timeout", strconv.Itoa(int(in.Timeout/time.Second)))
	}
	if len(in.keepAliveData) > 0 {
		value := encodeKeepAlive(in.keepAliveData)
		if in.keepAliveInterval > 0 {
			value += "; timeout=" + strconv.Itoa(int(in.keepAliveInterval/time.Second))
		}
		h.Set("Grip-Keep-Alive", value)
	}
	if len(in.meta) > 0 {
		pairs := make([]string, 0, len(in.meta))
		for name, value := range in.meta {
			pairs = append(pairs, name+"="+value)
		}
		// Deterministic output keeps the header stable across runs.
		sort.Strings(pairs)
		h.Set("Grip-Set-Meta", strings.Join(pairs, ", "))
	}
	if in.nextLink != "" {
		value := "<" + in.nextLink + ">; rel=next"
		if in.nextLinkTimeout > 0 {
			value += "; timeout=" + strconv.Itoa(int(in.nextLinkTimeout/time.Second))
		}
		h.Set("Grip-Link", value)
	}
	if in.Status != 0 {
		h.Set("Grip-Status", strconv.Itoa(in.Status))
	}
	return h
}

// encodeKeepAlive renders keep-alive content in cstring format when it is
// printable ASCII, falling back to base64 otherwise.
func encodeKeepAlive(data []byte) string {
	if isPrintableASCII(data) {
		return string(data) + "; format=cstring"
	}
	return base64.StdEncoding.EncodeToString(data) + "; format=base64"
}

func isPrintableASCII(data []byte) bool {
	for _, b := range data {
		if b < 0x20 || b > 0x7e || b == ';' || b == ',' {
			return false
		}
	}
	return true
}
