// Package roles declares the repository contract for role assignments, the
// role–privilege mapping, and role capabilities.
package roles

import (
	"context"
	"time"

	"github.com/verdantlabs/accountd/internal/server/models"
)

// Repository defines the role and privilege lookups used for authorization.
type Repository interface {
	// GetRoleByName resolves a role by its symbolic name. Returns
	// common.ErrorNotFound when no such role exists.
	GetRoleByName(ctx context.Context, name string) (*models.Role, error)

	// AssignRole creates an active role assignment for the account.
	AssignRole(ctx context.Context, accountID string, roleID int64, at time.Time) error

	// ActiveRolesFor returns the account's active role assignments in
	// assignment order.
	ActiveRolesFor(ctx context.Context, accountID string) ([]models.Role, error)

	// PrivilegesForRole returns the privileges mapped to a single role.
	PrivilegesForRole(ctx context.Context, roleID int64) ([]models.Privilege, error)

	// RoleHasCapability reports whether the role carries the named
	// administrative capability.
	RoleHasCapability(ctx context.Context, roleID int64, capability string) (bool, error)
}
