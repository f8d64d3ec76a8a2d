package grip

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ValidateSig reports whether sig is a valid Grip-Sig token for key. The
// token is a JWT signed with the shared secret; malformed, expired, or
// wrongly-signed tokens are all rejected the same way.
func ValidateSig(sig string, key []byte) bool {
	token, err := jwt.Parse(sig, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return key, nil
	})
	return err == nil && token.Valid
}

// SignToken mints a bearer token for the given issuer, usable as a Grip-Sig
// header or as EPCP publish authorization.
func SignToken(iss string, key []byte, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"iss": iss,
		"exp": time.Now().Add(ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}
