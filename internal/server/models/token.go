package models

import "time"

// VerificationToken is a one-time credential proving control of the
// registered email address. Consuming it enables the account and deletes the
// row in the same transaction, so a token can never be used twice.
type VerificationToken struct {
	Token     string
	AccountID string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// RefreshToken is a long-lived opaque credential used solely to mint new
// access tokens. Tokens are single-use: a successful refresh deletes the row
// and stores a replacement.
type RefreshToken struct {
	Token     string
	AccountID string
	ExpiresAt time.Time
	CreatedAt time.Time
}
