package model

import "time"

// User represents an account record as stored in the `users` table.
// PasswordHash never leaves the process: it is excluded from JSON.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Admin        – reserved flag; stored and returned, never enforced.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    `json:"id"`        // users.id
	Username     string    `json:"username"`  // users.username
	Email        string    `json:"email"`     // users.email
	PasswordHash string    `json:"-"`         // users.password_hash
	Admin        bool      `json:"admin"`     // users.admin
	CreatedAt    time.Time `json:"createdAt"` // users.created_at
	UpdatedAt    time.Time `json:"updatedAt"` // users.updated_at
}

// Identity is the subset of a user carried inside a bearer token.
type Identity struct {
	UserID   uint64
	Username string
	Admin    bool
}

// Identity returns the token identity for u.
func (u User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username, Admin: u.Admin}
}
