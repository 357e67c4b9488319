package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the hex HMAC-SHA256 of a raw webhook body with the
// shared provider secret. The provider signs the exact bytes it sends,
// so verification must run on the raw body before any JSON decoding.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook signature header in constant time.
func VerifySignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := Sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
