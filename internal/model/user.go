package model

import "time"

// Role values stored in users.role.  Managers own parking lots and bank
// accounts; admins can act on every resource.
const (
	RoleUser    = "user"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// User represents an application user record as stored in the `users`
// table.  PasswordHash is empty for accounts created through Google
// federated login.  Phone and LicensePlate are globally unique when set;
// the license plate is what the gate camera resolves a vehicle by.
//
// Fields:
//  ID           – primary key identifier of the user.
//  FullName     – display name.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password ("" for federated accounts).
//  Phone        – contact phone number (nullable).
//  LicensePlate – vehicle plate (nullable, unique when set).
//  Role         – one of user/manager/admin.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.user_id
	FullName     string    // users.full_name
	Email        string    // users.email
	PasswordHash string    // users.password
	Phone        string    // users.phone
	LicensePlate string    // users.license_plate
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
