package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hungnp/smart-parking-api/internal/model"
)

// BankAccountRepo manages the VietQR bank accounts managers register to
// receive deposits.
type BankAccountRepo struct{ DB *sql.DB }

func NewBankAccountRepo(db *sql.DB) *BankAccountRepo { return &BankAccountRepo{DB: db} }

const bankCols = "account_id,user_id,bank_code,bank_name,account_number,account_name,is_active,created_at,updated_at"

func scanBankAccount(scan func(dest ...interface{}) error) (model.BankAccount, error) {
	var a model.BankAccount
	err := scan(&a.ID, &a.UserID, &a.BankCode, &a.BankName, &a.AccountNumber,
		&a.AccountName, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// Create inserts a bank account and returns its ID. ErrConflict when the
// manager already registered the same account at the same bank.
func (r *BankAccountRepo) Create(ctx context.Context, a *model.BankAccount) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO manager_bank_accounts (user_id, bank_code, bank_name, account_number, account_name, is_active)
         VALUES (?,?,?,?,?,1)`,
		a.UserID, a.BankCode, a.BankName, a.AccountNumber, a.AccountName)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	a.ID = uint64(id)
	return a.ID, nil
}

// ListByUser returns all of a manager's accounts, active first.
func (r *BankAccountRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BankAccount, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+bankCols+" FROM manager_bank_accounts WHERE user_id=? ORDER BY is_active DESC, account_id DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	accounts := make([]model.BankAccount, 0)
	for rows.Next() {
		a, err := scanBankAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ActiveForManager returns the manager's active account, used to build
// the deposit QR payload for reservations in that manager's lots.
func (r *BankAccountRepo) ActiveForManager(ctx context.Context, managerID uint64) (model.BankAccount, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+bankCols+` FROM manager_bank_accounts
         WHERE user_id=? AND is_active=1 ORDER BY account_id DESC LIMIT 1`, managerID)
	return scanBankAccount(row.Scan)
}

// SetActive activates one account and deactivates the manager's others
// so at most one account receives deposits at a time. ErrForbidden when
// the account belongs to a different manager.
func (r *BankAccountRepo) SetActive(ctx context.Context, accountID, userID uint64) error {
	var owner uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id FROM manager_bank_accounts WHERE account_id=?", accountID).Scan(&owner)
	if err != nil {
		return err
	}
	if owner != userID {
		return ErrForbidden
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		"UPDATE manager_bank_accounts SET is_active=0, updated_at=NOW() WHERE user_id=?", userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE manager_bank_accounts SET is_active=1, updated_at=NOW() WHERE account_id=?", accountID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Delete removes an account owned by the given manager.
func (r *BankAccountRepo) Delete(ctx context.Context, accountID, userID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM manager_bank_accounts WHERE account_id=? AND user_id=?", accountID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
