package model

import "time"

// User represents an application user record as stored in the `users`
// table.  Email acts as the natural unique key for registration and
// login.  Only a bcrypt hash of the password is stored.
//
// Fields:
//  ID           – primary key identifier.
//  Name         – display name.
//  Email        – unique email address, lower-cased on write.
//  Phone        – contact phone number.
//  PasswordHash – bcrypt hashed password.
//  Role         – role name (e.g. CUSTOMER, ADMIN).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    `json:"id"`         // users.id
	Name         string    `json:"name"`       // users.name
	Email        string    `json:"email"`      // users.email
	Phone        string    `json:"phone"`      // users.phone
	PasswordHash string    `json:"-"`          // users.password_hash (never serialized)
	Role         string    `json:"role"`       // users.role
	CreatedAt    time.Time `json:"created_at"` // users.created_at
	UpdatedAt    time.Time `json:"updated_at"` // users.updated_at
}
