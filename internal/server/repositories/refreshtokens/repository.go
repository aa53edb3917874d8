// Package refreshtokens declares the server-side repository contract for
// managing refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/verdantlabs/accountd/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking
// refresh tokens.
type Repository interface {
	// Create stores a new refresh token for accountID expiring at expiresAt.
	Create(ctx context.Context, accountID, token string, expiresAt, createdAt time.Time) error

	// Find looks up a refresh token by its opaque token string and returns
	// its metadata. Implementations return common.ErrorNotFound when the
	// token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token by its token string. Deleting a
	// non-existent token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteForAccount revokes every refresh token held by the account.
	DeleteForAccount(ctx context.Context, accountID string) error
}
