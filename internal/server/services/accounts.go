package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/verdantlabs/accountd/internal/common"
	"github.com/verdantlabs/accountd/internal/dbx"
	"github.com/verdantlabs/accountd/internal/server/models"
	"github.com/verdantlabs/accountd/internal/server/repositories/repomanager"
)

// maxPageSize caps ListAccounts page sizes so a single request cannot pull
// the whole table.
const maxPageSize = 100

// AccountPatch carries the optional profile fields of an update. A nil field
// leaves the stored value untouched; a pointer to the empty string clears it.
type AccountPatch struct {
	Username    *string
	PhoneNumber *string
	Bio         *string
	Website     *string
}

// AccountService provides profile operations on existing accounts: lookup,
// profile updates, listing, and permission-guarded deactivation.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	roles       *RoleService
	clock       common.Clock
}

// NewAccountService constructs an AccountService over the given connection.
func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, roles *RoleService, clock common.Clock) *AccountService {
	return &AccountService{db: db, repomanager: m, roles: roles, clock: clock}
}

// GetAccount returns an active account by ID. Deactivated accounts are
// indistinguishable from absent ones.
func (s *AccountService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	repo := s.repomanager.Accounts(s.db)
	account, err := repo.GetActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return account, nil
}

// UpdateAccount applies the patch to the account's profile fields and bumps
// updated_at. Fields left nil in the patch keep their stored values.
func (s *AccountService) UpdateAccount(ctx context.Context, id string, patch AccountPatch) (*models.Account, error) {
	var updated *models.Account
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		account, err := repo.GetActiveByID(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorNotFound
			}
			return fmt.Errorf("error loading account: %v", err)
		}

		if patch.Username != nil {
			account.Username = *patch.Username
		}
		if patch.PhoneNumber != nil {
			account.PhoneNumber = sql.NullString{String: *patch.PhoneNumber, Valid: *patch.PhoneNumber != ""}
		}
		if patch.Bio != nil {
			account.Bio = sql.NullString{String: *patch.Bio, Valid: *patch.Bio != ""}
		}
		if patch.Website != nil {
			account.Website = sql.NullString{String: *patch.Website, Valid: *patch.Website != ""}
		}
		account.UpdatedAt = s.clock.Now()

		if err := repo.UpdateProfile(ctx, account); err != nil {
			return fmt.Errorf("error updating account: %v", err)
		}
		updated = account
		return nil
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

// ListAccounts returns a page of active accounts whose username or email
// matches search (case-insensitive substring; empty matches all). The page
// size is clamped to a sane bound.
func (s *AccountService) ListAccounts(ctx context.Context, search string, limit, offset int) ([]*models.Account, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	repo := s.repomanager.Accounts(s.db)
	accounts, err := repo.List(ctx, search, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error listing accounts: %v", err)
	}
	return accounts, nil
}

// Deactivate soft-deletes the target account on behalf of actingID. The actor
// must hold a role with the accounts:deactivate capability; otherwise the
// call fails with common.ErrForbidden. The row is kept and only flagged
// inactive, so tokens and role assignments stay referentially intact.
func (s *AccountService) Deactivate(ctx context.Context, actingID, targetID string) error {
	allowed, err := s.roles.HasCapability(ctx, actingID, models.CapabilityDeactivateAccounts)
	if err != nil {
		return common.ErrorInternal
	}
	if !allowed {
		return common.ErrForbidden
	}

	now := s.clock.Now()
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		if _, err := repo.GetActiveByID(ctx, targetID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorNotFound
			}
			return fmt.Errorf("error loading account: %v", err)
		}
		if err := repo.Deactivate(ctx, targetID, now); err != nil {
			return fmt.Errorf("error deactivating account: %v", err)
		}
		if err := s.repomanager.RefreshTokens(tx).DeleteForAccount(ctx, targetID); err != nil {
			return fmt.Errorf("error revoking refresh tokens: %v", err)
		}
		return nil
	})
}
