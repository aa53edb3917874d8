package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/verdantlabs/accountd/internal/common"
	"github.com/verdantlabs/accountd/internal/dbx"
	"github.com/verdantlabs/accountd/internal/server/models"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint
// violations; it closes the race between concurrent duplicate registrations.
const pgUniqueViolation = "23505"

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, email, username, password_hash, active, enabled,
	phone_number, bio, website, created_at, updated_at, registered_at, last_login_at`

func scanAccount(row interface{ Scan(dest ...any) error }) (*models.Account, error) {
	a := &models.Account{}
	err := row.Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.Active, &a.Enabled,
		&a.PhoneNumber, &a.Bio, &a.Website, &a.CreatedAt, &a.UpdatedAt, &a.RegisteredAt, &a.LastLoginAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query := `
		INSERT INTO accounts (email, username, password_hash, active, enabled,
			created_at, updated_at, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		account.Email, account.Username, account.PasswordHash, account.Active, account.Enabled,
		account.CreatedAt, account.UpdatedAt, account.RegisteredAt).Scan(&account.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrEmailExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return account, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetActiveByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND active`
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, account *models.Account) error {
	query := `
		UPDATE accounts
		SET username = $2, phone_number = $3, bio = $4, website = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		account.ID, account.Username, account.PhoneNumber, account.Bio, account.Website, account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE accounts SET last_login_at = $2, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) SetEnabled(ctx context.Context, id string, enabled bool, at time.Time) error {
	query := `UPDATE accounts SET enabled = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, enabled, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) Deactivate(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE accounts SET active = FALSE, updated_at = $2 WHERE id = $1 AND active`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) List(ctx context.Context, search string, limit, offset int) ([]*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE active AND (username ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
		ORDER BY registered_at
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, search, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// requireRow maps "zero rows affected" to common.ErrorNotFound so callers can
// distinguish a missing account from a driver failure.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
