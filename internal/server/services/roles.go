package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/verdantlabs/accountd/internal/server/models"
	"github.com/verdantlabs/accountd/internal/server/repositories/repomanager"
)

// RoleService resolves an account's authorization snapshot: its active roles,
// the privileges those roles grant, and whether any of them carries a given
// administrative capability.
type RoleService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewRoleService constructs a RoleService over the given connection.
func NewRoleService(db *sql.DB, m repomanager.RepositoryManager) *RoleService {
	return &RoleService{db: db, repomanager: m}
}

// ActiveRoles returns the account's active role assignments in assignment
// order. An account with no assignments gets an empty slice, not an error.
func (s *RoleService) ActiveRoles(ctx context.Context, accountID string) ([]models.Role, error) {
	repo := s.repomanager.Roles(s.db)
	roles, err := repo.ActiveRolesFor(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("error loading roles: %v", err)
	}
	return roles, nil
}

// PrivilegesFor collects the privileges granted through every active role.
// A privilege reachable through several roles appears once; the result is
// ordered by privilege ID so callers see a stable list.
func (s *RoleService) PrivilegesFor(ctx context.Context, accountID string) ([]models.Privilege, error) {
	repo := s.repomanager.Roles(s.db)

	roles, err := repo.ActiveRolesFor(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("error loading roles: %v", err)
	}

	seen := make(map[models.Privilege]struct{})
	for _, role := range roles {
		privs, err := repo.PrivilegesForRole(ctx, role.ID)
		if err != nil {
			return nil, fmt.Errorf("error loading privileges for role %q: %v", role.Name, err)
		}
		for _, p := range privs {
			seen[p] = struct{}{}
		}
	}

	result := make([]models.Privilege, 0, len(seen))
	for p := range seen {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// HasCapability reports whether any of the account's active roles carries the
// named capability. A single qualifying role is enough.
func (s *RoleService) HasCapability(ctx context.Context, accountID string, capability string) (bool, error) {
	repo := s.repomanager.Roles(s.db)

	roles, err := repo.ActiveRolesFor(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("error loading roles: %v", err)
	}

	for _, role := range roles {
		ok, err := repo.RoleHasCapability(ctx, role.ID, capability)
		if err != nil {
			return false, fmt.Errorf("error checking capability for role %q: %v", role.Name, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// names flattens roles or privileges to their symbolic names for embedding
// into JWT claims.
func roleNames(roles []models.Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.Name)
	}
	return out
}

func privilegeNames(privs []models.Privilege) []string {
	out := make([]string, 0, len(privs))
	for _, p := range privs {
		out = append(out, p.Name)
	}
	return out
}
