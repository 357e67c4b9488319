package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hungnp/smart-parking-api/internal/payment"
	"github.com/hungnp/smart-parking-api/internal/repository"
)

// WebhookHandler receives signed bank-transfer notifications from the
// payment provider. The contract with the provider: 401 only for a bad
// signature, 400 only for a payload we cannot parse, and 200 for every
// business outcome (confirmed, duplicate, no matching reservation) so
// the provider never retries what we have already answered.
type WebhookHandler struct {
	Secret   string
	Payments *PaymentHandler
}

func NewWebhookHandler(secret string, payments *PaymentHandler) *WebhookHandler {
	if payments == nil {
		panic("nil dependency passed to NewWebhookHandler")
	}
	return &WebhookHandler{Secret: secret, Payments: payments}
}

// webhookPayload mirrors the provider's notification body. The transfer
// description arrives as either "description" or "des" depending on the
// provider version.
type webhookPayload struct {
	TransactionID   string `json:"transaction_id"`
	Amount          int64  `json:"amount"`
	Description     string `json:"description"`
	Des             string `json:"des"`
	Status          string `json:"status"`
	BankCode        string `json:"bank_code"`
	AccountNumber   string `json:"account_number"`
	TransactionTime string `json:"transaction_time"`
}

func (p webhookPayload) description() string {
	if p.Description != "" {
		return p.Description
	}
	return p.Des
}

// Handle processes one notification. The signature is verified over the
// raw bytes before any JSON decoding, since the provider signs exactly
// what it sends.
func (h *WebhookHandler) Handle(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return fail(c, http.StatusBadRequest, "unreadable body")
	}
	sig := c.Request().Header.Get("X-Sepay-Signature")
	if !payment.VerifySignature(body, sig, h.Secret) {
		return fail(c, http.StatusUnauthorized, "invalid signature")
	}

	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return fail(c, http.StatusBadRequest, "invalid payload")
	}
	// A failed or reversed transfer confirms nothing; acknowledge it so
	// the provider stops retrying.
	if p.Status != "success" {
		return respond(c, http.StatusOK, "payment not successful", nil)
	}
	ref, err := payment.ParseReference(p.description())
	if err != nil {
		return fail(c, http.StatusBadRequest, "unrecognized payment reference")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Payments.Reservations.LatestPendingByUser(ctx, ref.UserID, ref.SpotID, ref.LotID)
	if err != nil {
		if err == sql.ErrNoRows {
			// Nothing to confirm: either a replay after confirmation or a
			// transfer with no booking. Record it and answer 200.
			h.audit(ctx, p, ref, repository.PaymentOutcomeNoMatch)
			return respond(c, http.StatusOK, "no pending reservation for this payment", nil)
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}

	if _, err := h.Payments.confirmTx(ctx, res, "bank_transfer", p.TransactionID, p.Amount); err != nil {
		if err == repository.ErrConflict {
			// Lost the race with another confirmation of the same
			// reservation; idempotent no-op.
			h.audit(ctx, p, ref, repository.PaymentOutcomeDuplicate)
			return respond(c, http.StatusOK, "reservation already confirmed", nil)
		}
		return fail(c, http.StatusInternalServerError, "confirm failed")
	}
	return respond(c, http.StatusOK, "payment processed", echo.Map{"reservationId": res.ID})
}

// audit records a notification that confirmed nothing, outside any
// transaction.
func (h *WebhookHandler) audit(ctx context.Context, p webhookPayload, ref payment.Reference, outcome string) {
	uid := ref.UserID
	_ = h.Payments.PaymentLogs.Create(ctx, &repository.PaymentLog{
		TransactionID: p.TransactionID,
		UserID:        &uid,
		Amount:        p.Amount,
		Description:   p.description(),
		Outcome:       outcome,
	})
}
