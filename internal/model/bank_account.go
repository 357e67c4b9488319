package model

import "time"

// BankAccount holds a manager's VietQR-capable bank account used to
// receive reservation deposits.  A manager may register several accounts;
// (user_id, bank_code, account_number) is unique.
type BankAccount struct {
	ID            uint64    // manager_bank_accounts.account_id
	UserID        uint64    // manager_bank_accounts.user_id
	BankCode      string    // manager_bank_accounts.bank_code (VietQR code)
	BankName      string    // manager_bank_accounts.bank_name
	AccountNumber string    // manager_bank_accounts.account_number
	AccountName   string    // manager_bank_accounts.account_name
	IsActive      bool      // manager_bank_accounts.is_active
	CreatedAt     time.Time // manager_bank_accounts.created_at
	UpdatedAt     time.Time // manager_bank_accounts.updated_at
}

// VietQRBank is one entry of the static VietQR bank-code catalogue served
// to the frontend when a manager registers an account.
type VietQRBank struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// VietQRBanks returns the supported bank codes.  The list mirrors the
// banks VietQR can render quick-links for.
func VietQRBanks() []VietQRBank {
	return []VietQRBank{
		{Code: "VCB", Name: "Vietcombank"},
		{Code: "TCB", Name: "Techcombank"},
		{Code: "BIDV", Name: "BIDV"},
		{Code: "VBA", Name: "Agribank"},
		{Code: "CTG", Name: "VietinBank"},
		{Code: "MB", Name: "MB Bank"},
		{Code: "ACB", Name: "ACB"},
		{Code: "VPB", Name: "VPBank"},
		{Code: "TPB", Name: "TPBank"},
		{Code: "STB", Name: "Sacombank"},
	}
}
