package trust

import (
	"testing"
	"time"

	"github.com/grip-gate/gripgate/pkg/grip"
)

func mintSig(t *testing.T, key []byte) string {
	t.Helper()
	sig, err := grip.SignToken("realm", key, time.Hour)
	if err != nil {
		t.Fatalf("failed to mint signature: %v", err)
	}
	return sig
}

func TestEvaluate(t *testing.T) {
	keyA := []byte("key-a")
	keyB := []byte("key-b")

	tests := []struct {
		name  string
		sig   func(t *testing.T) string
		creds []Credential
		want  Result
	}{
		{
			name:  "no header is direct traffic",
			sig:   func(t *testing.T) string { return "" },
			creds: []Credential{{Key: keyA}},
			want:  Result{},
		},
		{
			name:  "no credentials is direct traffic",
			sig:   func(t *testing.T) string { return mintSig(t, keyA) },
			creds: nil,
			want:  Result{},
		},
		{
			name:  "all keyed with valid signature",
			sig:   func(t *testing.T) string { return mintSig(t, keyA) },
			creds: []Credential{{Key: keyA}},
			want:  Result{Proxied: true, Signed: true, NeedsSigned: true},
		},
		{
			name:  "any configured key suffices",
			sig:   func(t *testing.T) string { return mintSig(t, keyB) },
			creds: []Credential{{Key: keyA}, {Key: keyB}},
			want:  Result{Proxied: true, Signed: true, NeedsSigned: true},
		},
		{
			name:  "untrusted signature implies not proxied",
			sig:   func(t *testing.T) string { return mintSig(t, []byte("rogue")) },
			creds: []Credential{{Key: keyA}, {Key: keyB}},
			want:  Result{NeedsSigned: true},
		},
		{
			name:  "one no-auth credential disables enforcement",
			sig:   func(t *testing.T) string { return mintSig(t, []byte("rogue")) },
			creds: []Credential{{Key: keyA}, {}},
			want:  Result{Proxied: true},
		},
		{
			name:  "all no-auth",
			sig:   func(t *testing.T) string { return "anything" },
			creds: []Credential{{}, {}},
			want:  Result{Proxied: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.sig(t), tt.creds)
			if got != tt.want {
				t.Errorf("Evaluate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// When every credential requires a signature, a request is proxied exactly
// when it is signed: proxied-but-unsigned can never happen.
func TestEvaluateAllKeyedProxiedEqualsSigned(t *testing.T) {
	creds := []Credential{{Key: []byte("k1")}, {Key: []byte("k2")}}
	sigs := []string{"", "garbage", mintSig(t, []byte("k1")), mintSig(t, []byte("other"))}

	for _, sig := range sigs {
		res := Evaluate(sig, creds)
		if res.Proxied != res.Signed {
			t.Errorf("sig %q: Proxied=%v Signed=%v, want equal", sig, res.Proxied, res.Signed)
		}
		if sig != "" && !res.NeedsSigned {
			t.Errorf("sig %q: NeedsSigned = false, want true", sig)
		}
	}
}
