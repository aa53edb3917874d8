package roles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

// GetRoleByName resolves a role by its symbolic name.
func (r *PostgresRepository) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	query := `SELECT id, name FROM roles WHERE name = $1`
	role := &models.Role{}
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&role.ID, &role.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return role, nil
}

// AssignRole creates an active role assignment for the account.
func (r *PostgresRepository) AssignRole(ctx context.Context, accountID string, roleID int64, at time.Time) error {
	query := `
		INSERT INTO account_roles (account_id, role_id, active, assigned_at)
		VALUES ($1, $2, TRUE, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, accountID, roleID, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ActiveRolesFor returns the account's active role assignments in assignment
// order.
func (r *PostgresRepository) ActiveRolesFor(ctx context.Context, accountID string) ([]models.Role, error) {
	query := `
		SELECT r.id, r.name
		FROM account_roles ar
		JOIN roles r ON r.id = ar.role_id
		WHERE ar.account_id = $1 AND ar.active
		ORDER BY ar.assigned_at
	`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Role
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// PrivilegesForRole returns the privileges mapped to a single role.
func (r *PostgresRepository) PrivilegesForRole(ctx context.Context, roleID int64) ([]models.Privilege, error) {
	query := `
		SELECT p.id, p.name
		FROM role_privileges rp
		JOIN privileges p ON p.id = rp.privilege_id
		WHERE rp.role_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Privilege
	for rows.Next() {
		var p models.Privilege
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// RoleHasCapability reports whether the role carries the named capability.
func (r *PostgresRepository) RoleHasCapability(ctx context.Context, roleID int64, capability string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM role_capabilities
			WHERE role_id = $1 AND capability = $2
		)
	`
	var has bool
	if err := r.db.QueryRowContext(ctx, query, roleID, capability).Scan(&has); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return has, nil
}
