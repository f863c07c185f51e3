package reconcile

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifySignature checks an HMAC-SHA256 hex signature over the raw request
// body in constant time. The header may carry a bare hex digest or one
// prefixed "sha256=". With no secret configured, verification is skipped and
// every body is accepted; that fallback mirrors the deployed behavior and is
// a known risk, flagged at startup.
func VerifySignature(raw []byte, header, secret string) bool {
	if secret == "" {
		return true
	}
	if header == "" {
		return false
	}

	provided, err := hex.DecodeString(strings.TrimPrefix(header, "sha256="))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(raw)
	return hmac.Equal(mac.Sum(nil), provided)
}
