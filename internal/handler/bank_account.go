package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hungnp/smart-parking-api/internal/model"
	"github.com/hungnp/smart-parking-api/internal/repository"
)

// BankAccountHandler manages the VietQR bank accounts managers register
// to receive reservation deposits.
type BankAccountHandler struct {
	Banks *repository.BankAccountRepo
}

func NewBankAccountHandler(banks *repository.BankAccountRepo) *BankAccountHandler {
	if banks == nil {
		panic("nil repository passed to NewBankAccountHandler")
	}
	return &BankAccountHandler{Banks: banks}
}

// ListBanks returns the static VietQR bank catalogue for the
// registration form.
func (h *BankAccountHandler) ListBanks(c echo.Context) error {
	return respond(c, http.StatusOK, "supported banks", model.VietQRBanks())
}

type bankAccountReq struct {
	BankCode      string `json:"bankCode"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
}

type bankAccountResp struct {
	ID            uint64 `json:"id"`
	BankCode      string `json:"bankCode"`
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
	IsActive      bool   `json:"isActive"`
}

func toBankAccountResp(a model.BankAccount) bankAccountResp {
	return bankAccountResp{
		ID: a.ID, BankCode: a.BankCode, BankName: a.BankName,
		AccountNumber: a.AccountNumber, AccountName: a.AccountName, IsActive: a.IsActive,
	}
}

func bankNameFor(code string) string {
	for _, b := range model.VietQRBanks() {
		if b.Code == code {
			return b.Name
		}
	}
	return ""
}

// Create registers a bank account for the calling manager.
func (h *BankAccountHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	var req bankAccountReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.BankCode = strings.ToUpper(strings.TrimSpace(req.BankCode))
	req.AccountNumber = strings.TrimSpace(req.AccountNumber)
	req.AccountName = strings.TrimSpace(req.AccountName)
	bankName := bankNameFor(req.BankCode)
	if bankName == "" {
		return fail(c, http.StatusBadRequest, "unsupported bank code")
	}
	if req.AccountNumber == "" || req.AccountName == "" {
		return fail(c, http.StatusBadRequest, "accountNumber and accountName are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acct := model.BankAccount{
		UserID: uid, BankCode: req.BankCode, BankName: bankName,
		AccountNumber: req.AccountNumber, AccountName: req.AccountName,
	}
	if _, err := h.Banks.Create(ctx, &acct); err != nil {
		if err == repository.ErrConflict {
			return fail(c, http.StatusConflict, "account already registered")
		}
		return fail(c, http.StatusInternalServerError, "create failed")
	}
	return respond(c, http.StatusCreated, "bank account registered", toBankAccountResp(acct))
}

// List returns the calling manager's accounts.
func (h *BankAccountHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	accounts, err := h.Banks.ListByUser(ctx, uid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	out := make([]bankAccountResp, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toBankAccountResp(a))
	}
	return respond(c, http.StatusOK, "bank accounts", out)
}

// Activate makes one account the deposit target, deactivating the rest.
func (h *BankAccountHandler) Activate(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid account id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Banks.SetActive(ctx, id, uid); err != nil {
		switch err {
		case sql.ErrNoRows:
			return fail(c, http.StatusNotFound, "bank account not found")
		case repository.ErrForbidden:
			return fail(c, http.StatusForbidden, "not your bank account")
		}
		return fail(c, http.StatusInternalServerError, "update failed")
	}
	return respond(c, http.StatusOK, "bank account activated", nil)
}

// Delete removes one of the caller's accounts.
func (h *BankAccountHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid account id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Banks.Delete(ctx, id, uid); err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "bank account not found")
		}
		return fail(c, http.StatusInternalServerError, "delete failed")
	}
	return respond(c, http.StatusOK, "bank account deleted", nil)
}
