// Package trust decides whether an inbound request arrived via a configured
// GRIP proxy and whether its Grip-Sig signature verifies.
package trust

import "github.com/grip-gate/gripgate/pkg/grip"

// Credential identifies one proxy the backend accepts instructions from. A
// credential with a key requires a signed Grip-Sig header; an empty key
// trusts the proxy without a signature. Immutable once constructed.
type Credential struct {
	// Iss is the claim issuer used when minting publish tokens.
	Iss string

	// Key is the shared HMAC secret. Nil or empty means no-auth mode.
	Key []byte
}

// RequiresSig reports whether the credential uses keyed-signature auth.
func (c Credential) RequiresSig() bool {
	return len(c.Key) > 0
}

// Result is the trust evaluation of one request.
type Result struct {
	// Proxied reports whether the request came through a trusted proxy.
	Proxied bool

	// Signed reports whether a configured key validated the signature.
	Signed bool

	// NeedsSigned reports whether every configured credential requires a
	// signature, i.e. an unsigned request can never be proxied.
	NeedsSigned bool
}

// Evaluate applies the trust policy to a request's Grip-Sig header value.
//
// With no header or no credentials the request is direct traffic. When
// every credential is keyed, the request is proxied only if at least one
// key validates the signature; an untrusted signature means not proxied.
// When any credential uses no-auth mode, the request is treated as proxied
// without signature validation. That last rule is deliberately permissive:
// operators who mix unsigned proxies into the configuration opt out of
// signature enforcement entirely.
func Evaluate(sig string, creds []Credential) Result {
	if sig == "" || len(creds) == 0 {
		return Result{}
	}

	for _, c := range creds {
		if !c.RequiresSig() {
			return Result{Proxied: true}
		}
	}

	res := Result{NeedsSigned: true}
	for _, c := range creds {
		if grip.ValidateSig(sig, c.Key) {
			res.Proxied = true
			res.Signed = true
			break
		}
	}
	return res
}
