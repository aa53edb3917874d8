// Package accounts declares the server-side repository contract for account
// persistence.
package accounts

import (
	"context"
	"time"

	"github.com/verdantlabs/accountd/internal/server/models"
)

// Repository defines the account lookup and mutation operations used by the
// services layer. Implementations should return common.ErrorNotFound when a
// row is absent and common.ErrEmailExists when the email uniqueness
// constraint is violated.
type Repository interface {
	// Create inserts a new account and returns it with the generated ID.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	// GetByEmail looks up an account by email, regardless of lifecycle flags.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// GetByID looks up an account by ID, regardless of lifecycle flags.
	GetByID(ctx context.Context, id string) (*models.Account, error)

	// GetActiveByID looks up an account by ID, excluding soft-deleted rows.
	GetActiveByID(ctx context.Context, id string) (*models.Account, error)

	// ExistsByEmail reports whether any account row holds the given email.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// UpdateProfile persists the mutable profile fields and updated_at.
	UpdateProfile(ctx context.Context, account *models.Account) error

	// SetLastLogin records a successful login at the given instant.
	SetLastLogin(ctx context.Context, id string, at time.Time) error

	// SetEnabled flips the verification flag.
	SetEnabled(ctx context.Context, id string, enabled bool, at time.Time) error

	// Deactivate soft-deletes the account (active=false). The row stays.
	Deactivate(ctx context.Context, id string, at time.Time) error

	// List returns active accounts whose username or email matches search
	// (case-insensitive substring), ordered by registration time.
	List(ctx context.Context, search string, limit, offset int) ([]*models.Account, error)
}
