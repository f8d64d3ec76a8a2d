package grip

import (
	"testing"
	"time"
)

func TestInstructToHeaders(t *testing.T) {
	tests := []struct {
		name  string
		build func(*Instruct)
		want  map[string]string
		empty []string
	}{
		{
			name: "long poll hold",
			build: func(in *Instruct) {
				in.AddChannel(NewChannel("test"))
				in.SetHoldLongPoll(55 * time.Second)
			},
			want: map[string]string{
				"Grip-Hold":    "response",
				"Grip-Channel": "test",
				"Grip-Timeout": "55",
			},
		},
		{
			name: "stream hold has no timeout",
			build: func(in *Instruct) {
				in.AddChannel(NewChannel("a"))
				in.SetHoldStream()
				in.Timeout = 55 * time.Second
			},
			want:  map[string]string{"Grip-Hold": "stream"},
			empty: []string{"Grip-Timeout"},
		},
		{
			name: "channel with cursor",
			build: func(in *Instruct) {
				in.AddChannel(Channel{Name: "updates", PrevID: "42"})
			},
			want: map[string]string{"Grip-Channel": "updates; prev-id=42"},
		},
		{
			name: "multiple channels joined",
			build: func(in *Instruct) {
				in.AddChannel(NewChannel("a"))
				in.AddChannel(Channel{Name: "b", PrevID: "7"})
			},
			want: map[string]string{"Grip-Channel": "a, b; prev-id=7"},
		},
		{
			name: "keep alive cstring",
			build: func(in *Instruct) {
				in.SetHoldStream()
				in.SetKeepAlive([]byte("ping"), 30*time.Second)
			},
			want: map[string]string{"Grip-Keep-Alive": "ping; format=cstring; timeout=30"},
		},
		{
			name: "keep alive base64 for non printable content",
			build: func(in *Instruct) {
				in.SetHoldStream()
				in.SetKeepAlive([]byte("\n"), 20*time.Second)
			},
			want: map[string]string{"Grip-Keep-Alive": "Cg==; format=base64; timeout=20"},
		},
		{
			name: "meta sorted",
			build: func(in *Instruct) {
				in.MetaSet("user", "alice")
				in.MetaSet("role", "admin")
			},
			want: map[string]string{"Grip-Set-Meta": "role=admin, user=alice"},
		},
		{
			name: "next link",
			build: func(in *Instruct) {
				in.SetNextLink("/stream?page=2", 10*time.Second)
			},
			want: map[string]string{"Grip-Link": "</stream?page=2>; rel=next; timeout=10"},
		},
		{
			name: "status override",
			build: func(in *Instruct) {
				in.Status = 304
			},
			want: map[string]string{"Grip-Status": "304"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &Instruct{}
			tt.build(in)
			h := in.ToHeaders()
			for k, v := range tt.want {
				if got := h.Get(k); got != v {
					t.Errorf("header %s = %q, want %q", k, got, v)
				}
			}
			for _, k := range tt.empty {
				if got := h.Get(k); got != "" {
					t.Errorf("header %s = %q, want unset", k, got)
				}
			}
		})
	}
}

func TestInstructPrefixChannels(t *testing.T) {
	in := &Instruct{}
	orig := Channel{Name: "foo", PrevID: "9"}
	in.AddChannel(orig)

	in.PrefixChannels("app-")

	if got := in.Channels[0]; got.Name != "app-foo" || got.PrevID != "9" {
		t.Errorf("prefixed channel = %+v, want {app-foo 9}", got)
	}
	// Originals are values; the caller's copy must be untouched.
	if orig.Name != "foo" {
		t.Errorf("original channel mutated: %+v", orig)
	}

	in.PrefixChannels("")
	if got := in.Channels[0].Name; got != "app-foo" {
		t.Errorf("empty prefix changed channel to %q", got)
	}
}
