package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var b64 = base64.RawURLEncoding

var (
	errTokenFormat    = errors.New("invalid token format")
	errTokenSignature = errors.New("signature mismatch")
	errTokenExpired   = errors.New("token expired")
	errTokenSubject   = errors.New("token has no subject")
)

// verifyGatewayToken checks an HS256 token issued by the identity gateway and
// returns its subject. The exp claim is enforced when present.
func verifyGatewayToken(token string, secret []byte, now time.Time) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", errTokenFormat
	}
	header, err := b64.DecodeString(parts[0])
	if err != nil {
		return "", errTokenFormat
	}
	var h struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(header, &h); err != nil || h.Alg != "HS256" {
		return "", errTokenFormat
	}

	sig, err := b64.DecodeString(parts[2])
	if err != nil {
		return "", errTokenFormat
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(parts[0] + "." + parts[1]))
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return "", errTokenSignature
	}

	payload, err := b64.DecodeString(parts[1])
	if err != nil {
		return "", errTokenFormat
	}
	var claims struct {
		Sub string `json:"sub"`
		Exp int64  `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", errTokenFormat
	}
	if claims.Exp != 0 && now.Unix() >= claims.Exp {
		return "", errTokenExpired
	}
	if claims.Sub == "" {
		return "", errTokenSubject
	}
	return claims.Sub, nil
}
