package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/hungnp/smart-parking-api/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var (
	ErrEmailExists = errors.New("email already exists")
	ErrPhoneExists = errors.New("phone already exists")
	ErrPlateExists = errors.New("license plate already exists")
)

// duplicateErr maps a MySQL 1062 duplicate-key error onto the sentinel
// matching the violated unique key. Unknown keys fall back to the raw error.
func duplicateErr(err error) error {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "1062") {
		return err
	}
	switch {
	case strings.Contains(msg, "email"):
		return ErrEmailExists
	case strings.Contains(msg, "phone"):
		return ErrPhoneExists
	case strings.Contains(msg, "license_plate"):
		return ErrPlateExists
	}
	return err
}

const userCols = "user_id,full_name,email,password,phone,license_plate,role,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	var phone, plate, pass sql.NullString
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &pass, &phone, &plate, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	u.PasswordHash = pass.String
	u.Phone = phone.String
	u.LicensePlate = plate.String
	return u, nil
}

// Create inserts a user and returns its ID. passwordHash is empty for
// federated (Google) accounts. Phone and licensePlate may be empty and
// are stored as NULL so the unique indexes ignore them.
func (r *UserRepo) Create(ctx context.Context, fullName, email, passwordHash, phone, licensePlate, role string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (full_name, email, password, phone, license_plate, role) VALUES (?,?,?,?,?,?)",
		fullName, email, nullStr(passwordHash), nullStr(phone), nullStr(licensePlate), role)
	if err != nil {
		return 0, duplicateErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE user_id=? LIMIT 1", id))
}

// GetByLicensePlate resolves the user owning a plate. The gate camera
// sends raw plate text, so comparison is case-insensitive with
// surrounding whitespace stripped.
func (r *UserRepo) GetByLicensePlate(ctx context.Context, plate string) (model.User, error) {
	plate = strings.ToUpper(strings.TrimSpace(plate))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE UPPER(license_plate)=? LIMIT 1", plate))
}

// UpdateProfile overwrites the mutable profile fields. Empty phone or
// plate clears the column back to NULL.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, fullName, phone, licensePlate string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET full_name=?, phone=?, license_plate=?, updated_at=NOW() WHERE user_id=?",
		fullName, nullStr(phone), nullStr(strings.ToUpper(strings.TrimSpace(licensePlate))), id)
	if err != nil {
		return duplicateErr(err)
	}
	return nil
}

// UpdatePassword stores a new bcrypt hash for the user.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password=?, updated_at=NOW() WHERE user_id=?", passwordHash, id)
	return err
}

// List returns every user, newest first. Admin use only.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userCols+" FROM users ORDER BY user_id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		var phone, plate, pass sql.NullString
		if err := rows.Scan(&u.ID, &u.FullName, &u.Email, &pass, &phone, &plate, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.PasswordHash = pass.String
		u.Phone = phone.String
		u.LicensePlate = plate.String
		users = append(users, u)
	}
	return users, rows.Err()
}

// Delete removes a user. Foreign keys on reservations and logs restrict
// deletion while history exists; that surfaces as ErrConflict.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE user_id=?", id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1451") {
			return ErrConflict
		}
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

func nullStr(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
