// Package verificationtokens declares the server-side repository contract
// for one-time account-verification tokens.
package verificationtokens

import (
	"context"

	"github.com/verdantlabs/accountd/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and consuming
// verification tokens. A token row exists only while the token is pending;
// consumption deletes it.
type Repository interface {
	// Create stores a new pending verification token.
	Create(ctx context.Context, token *models.VerificationToken) error

	// Find looks up a token by its opaque string. Implementations return
	// common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.VerificationToken, error)

	// Delete removes a token by its string. Deleting a non-existent token is
	// not an error.
	Delete(ctx context.Context, token string) error
}
