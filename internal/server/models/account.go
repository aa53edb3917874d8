// Package models defines server-side data models persisted in the database.
package models

import (
	"database/sql"
	"time"
)

// Account is a registered user account.
//
// Two lifecycle flags govern authentication:
//   - Enabled is false until the verification token is consumed; a disabled
//     account cannot log in.
//   - Active is the soft-delete flag; deactivated accounts are excluded from
//     authentication and from active-filtered lookups. Account rows are never
//     hard-deleted so that role assignments and tokens keep their references.
type Account struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Active       bool
	Enabled      bool

	PhoneNumber sql.NullString
	Bio         sql.NullString
	Website     sql.NullString

	CreatedAt    time.Time
	UpdatedAt    time.Time
	RegisteredAt time.Time
	LastLoginAt  sql.NullTime
}
