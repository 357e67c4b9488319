package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"transaction_id":"TX1","amount":8000}`)
	sig := Sign(body, "secret")

	assert.True(t, VerifySignature(body, sig, "secret"))
	assert.False(t, VerifySignature(body, sig, "other-secret"))
	assert.False(t, VerifySignature([]byte(`{"amount":9000}`), sig, "secret"))
	assert.False(t, VerifySignature(body, "", "secret"))
	assert.False(t, VerifySignature(body, sig, ""))
}
