package verificationtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/verdantlabs/accountd/internal/common"
	"github.com/verdantlabs/accountd/internal/dbx"
	"github.com/verdantlabs/accountd/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new pending verification token.
func (r *PostgresRepository) Create(ctx context.Context, token *models.VerificationToken) error {
	query := `
		INSERT INTO verification_tokens (token, account_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query,
		token.Token, token.AccountID, token.ExpiresAt, token.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Find returns the verification token row for the given token string.
// If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.VerificationToken, error) {
	query := `
		SELECT token, account_id, expires_at, created_at
		FROM verification_tokens
		WHERE token = $1
	`
	vt := &models.VerificationToken{}
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&vt.Token, &vt.AccountID, &vt.ExpiresAt, &vt.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return vt, nil
}

// Delete removes a verification token by its token string.
func (r *PostgresRepository) Delete(ctx context.Context, token string) error {
	query := `
		DELETE FROM verification_tokens
		WHERE token = $1
	`
	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
