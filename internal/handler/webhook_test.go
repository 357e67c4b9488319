package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hungnp/smart-parking-api/internal/payment"
)

const webhookSecret = "test-secret"

func postWebhook(t *testing.T, h *WebhookHandler, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set("X-Sepay-Signature", signature)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h.Handle(e.NewContext(req, rec)))
	return rec
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h := &WebhookHandler{Secret: webhookSecret, Payments: &PaymentHandler{}}
	body := `{"transaction_id":"TX1","amount":8000,"description":"USER_1_SPOT_2_LOT_3"}`

	rec := postWebhook(t, h, body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postWebhook(t, h, body, "deadbeef")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A signature computed with a different secret must not pass.
	rec = postWebhook(t, h, body, payment.Sign([]byte(body), "other-secret"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookRejectsInvalidPayload(t *testing.T) {
	h := &WebhookHandler{Secret: webhookSecret, Payments: &PaymentHandler{}}
	body := `{"transaction_id":`

	rec := postWebhook(t, h, body, payment.Sign([]byte(body), webhookSecret))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestWebhookAcknowledgesUnsuccessfulTransfer(t *testing.T) {
	// Nil repos inside PaymentHandler: touching the database here would
	// panic, so a passing test proves the notification is dropped before
	// any lookup.
	h := &WebhookHandler{Secret: webhookSecret, Payments: &PaymentHandler{}}
	for _, status := range []string{"failed", "reversed", "pending", ""} {
		body := `{"transaction_id":"TX1","amount":8000,"status":"` + status +
			`","description":"USER_1_SPOT_2_LOT_3"}`
		rec := postWebhook(t, h, body, payment.Sign([]byte(body), webhookSecret))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "not successful")
	}
}

func TestWebhookRejectsUnrecognizedReference(t *testing.T) {
	h := &WebhookHandler{Secret: webhookSecret, Payments: &PaymentHandler{}}
	body := `{"transaction_id":"TX1","amount":8000,"status":"success","description":"thanks for lunch"}`

	rec := postWebhook(t, h, body, payment.Sign([]byte(body), webhookSecret))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookPayloadDescriptionFallback(t *testing.T) {
	p := webhookPayload{Des: "USER_1_SPOT_2_LOT_3"}
	assert.Equal(t, "USER_1_SPOT_2_LOT_3", p.description())

	p.Description = "CT DEN: USER_1_SPOT_2_LOT_3"
	assert.Equal(t, "CT DEN: USER_1_SPOT_2_LOT_3", p.description())
}
