// internal/domain/user.go
package domain

import "time"

// User represents a registered account.
type User struct {
	ID           int64      `db:"id" json:"id"`                     // Primary key, BIGSERIAL in DB
	Username     string     `db:"username" json:"username"`         // Unique username, also the token subject
	Email        string     `db:"email" json:"email"`               // Unique email
	PasswordHash string     `db:"password_hash" json:"-"`           // bcrypt verifier, never serialized
	FirstName    string     `db:"first_name" json:"firstName"`      // Given name
	LastName     string     `db:"last_name" json:"lastName"`        // Family name
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`      // Timestamp of registration
	LastLoginAt  *time.Time `db:"last_login_at" json:"lastLoginAt"` // Set by successful logins only
}

// NewUser creates a new User instance with an already computed password hash.
func NewUser(username, email, passwordHash, firstName, lastName string) *User {
	return &User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		CreatedAt:    time.Now().UTC(),
	}
}
