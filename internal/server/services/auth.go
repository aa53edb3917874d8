// Package services contains server-side business logic. This file implements
// AuthService, which handles registration with email verification, login, and
// issuing/refreshing JWTs plus server-stored refresh tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/verdantlabs/accountd/internal/common"
	"github.com/verdantlabs/accountd/internal/dbx"
	"github.com/verdantlabs/accountd/internal/logging"
	"github.com/verdantlabs/accountd/internal/server/auth"
	"github.com/verdantlabs/accountd/internal/server/config"
	"github.com/verdantlabs/accountd/internal/server/mail"
	"github.com/verdantlabs/accountd/internal/server/models"
	"github.com/verdantlabs/accountd/internal/server/repositories/repomanager"
)

// opaqueTokenBytes is the entropy of the opaque token strings; the hex
// encoding doubles the length on the wire.
const opaqueTokenBytes = 32

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthResponse is returned by Login and Refresh: the authenticated identity,
// its authorization snapshot, and a fresh token pair.
type AuthResponse struct {
	Account    *models.Account
	Roles      []string
	Privileges []string
	Tokens     TokenPair
}

// AuthService provides authentication-related operations:
//   - Register: create accounts and issue verification tokens
//   - Login: verify credentials and mint tokens
//   - Refresh: rotate refresh tokens and mint new access tokens
//   - VerifyAccount: consume a verification token and enable the account
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	roles       *RoleService
	mailer      mail.Mailer
	clock       common.Clock
	logger      logging.Logger

	jwtSecret                         []byte
	issuer                            string
	bcryptCost                        int
	accessTokenValidityDuration       time.Duration
	refreshTokenValidityDuration      time.Duration
	verificationTokenValidityDuration time.Duration
	verificationBaseURL               string
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, roles *RoleService,
	mailer mail.Mailer, clock common.Clock, logger logging.Logger, cfg *config.Config) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		roles:       roles,
		mailer:      mailer,
		clock:       clock,
		logger:      logger.With("module", "auth_service"),

		jwtSecret:                         []byte(cfg.SecretKey),
		issuer:                            cfg.Issuer,
		bcryptCost:                        cfg.BcryptCost,
		accessTokenValidityDuration:       cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration:      cfg.RefreshTokenValidityDuration,
		verificationTokenValidityDuration: cfg.VerificationTokenValidityDuration,
		verificationBaseURL:               cfg.VerificationBaseURL,
	}
}

// Register creates a disabled account, assigns the default role, and stores a
// one-time verification token, all in one transaction. The verification email
// is enqueued only after the transaction commits; a broker failure is logged
// and does not undo the registration.
//
// A taken email yields common.ErrEmailExists; policy violations yield
// common.ErrPasswordTooShort or common.ErrPasswordTooWeak.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (*models.Account, error) {
	exists, err := s.repomanager.Accounts(s.db).ExistsByEmail(ctx, email)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if exists {
		return nil, common.ErrEmailExists
	}

	if err := auth.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %v", err)
	}

	tokenString, err := common.MakeRandHexString(opaqueTokenBytes)
	if err != nil {
		return nil, common.ErrorInternal
	}

	now := s.clock.Now()
	var account *models.Account

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		accountsRepo := s.repomanager.Accounts(tx)

		created, err := accountsRepo.Create(ctx, &models.Account{
			Email:        email,
			Username:     username,
			PasswordHash: hash,
			Active:       true,
			Enabled:      false,
			CreatedAt:    now,
			UpdatedAt:    now,
			RegisteredAt: now,
		})
		if err != nil {
			if errors.Is(err, common.ErrEmailExists) {
				return common.ErrEmailExists
			}
			return fmt.Errorf("error creating account: %v", err)
		}

		rolesRepo := s.repomanager.Roles(tx)
		role, err := rolesRepo.GetRoleByName(ctx, models.DefaultRoleName)
		if err != nil {
			return fmt.Errorf("error loading default role: %v", err)
		}
		if err := rolesRepo.AssignRole(ctx, created.ID, role.ID, now); err != nil {
			return fmt.Errorf("error assigning default role: %v", err)
		}

		tokensRepo := s.repomanager.VerificationTokens(tx)
		if err := tokensRepo.Create(ctx, &models.VerificationToken{
			Token:     tokenString,
			AccountID: created.ID,
			ExpiresAt: now.Add(s.verificationTokenValidityDuration),
			CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("error creating verification token: %v", err)
		}

		account = created
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.mailer.Send(ctx, mail.Notification{
		Recipient:       account.Email,
		Subject:         "Verify your account",
		Username:        account.Username,
		VerificationURL: fmt.Sprintf("%s?token=%s", s.verificationBaseURL, tokenString),
	}); err != nil {
		s.logger.Warn(ctx, "failed to enqueue verification email", "account_id", account.ID, "error", err)
	}

	return account, nil
}

// Login verifies the email/password pair and, on success, records the login
// time and returns a fresh AuthResponse whose access token carries the
// account's current roles and privileges.
//
// An unknown email, a deactivated account, and a wrong password all yield
// common.ErrInvalidCredentials so callers cannot probe which accounts exist.
// An unverified account yields common.ErrAccountNotVerified before the
// password is checked.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	repo := s.repomanager.Accounts(s.db)

	account, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, common.ErrorInternal
	}
	if !account.Active {
		return nil, common.ErrInvalidCredentials
	}
	if !account.Enabled {
		return nil, common.ErrAccountNotVerified
	}
	if !auth.VerifyPassword(account.PasswordHash, password) {
		return nil, common.ErrInvalidCredentials
	}

	now := s.clock.Now()
	var resp *AuthResponse
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Accounts(tx).SetLastLogin(ctx, account.ID, now); err != nil {
			return fmt.Errorf("error recording login time: %v", err)
		}
		var genErr error
		resp, genErr = s.buildAuthResponse(ctx, account, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return resp, nil
}

// Refresh validates a refresh token, rotates it transactionally, and returns
// a fresh AuthResponse. The supplied email must belong to the token's account.
// Expired tokens yield common.ErrRefreshTokenExpired; unknown or mismatched
// tokens yield common.ErrInvalidRefreshToken.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, email string) (*AuthResponse, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("error searching refresh token: %v", err)
	}
	if token.ExpiresAt.Before(s.clock.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	account, err := s.repomanager.Accounts(s.db).GetActiveByID(ctx, token.AccountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, common.ErrorInternal
	}
	if account.Email != email {
		return nil, common.ErrInvalidRefreshToken
	}
	if !account.Enabled {
		return nil, common.ErrAccountNotVerified
	}

	var resp *AuthResponse
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %v", err)
		}
		var genErr error
		resp, genErr = s.buildAuthResponse(ctx, account, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return resp, nil
}

// VerifyAccount consumes a verification token: within one transaction the
// account is enabled and the token row deleted, so a second use finds nothing.
// An expired token yields common.ErrVerificationTokenExpired and mutates
// nothing; an unknown one yields common.ErrInvalidVerificationToken.
func (s *AuthService) VerifyAccount(ctx context.Context, tokenString string) error {
	repo := s.repomanager.VerificationTokens(s.db)

	token, err := repo.Find(ctx, tokenString)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidVerificationToken
		}
		return fmt.Errorf("error searching verification token: %v", err)
	}
	if token.ExpiresAt.Before(s.clock.Now()) {
		return common.ErrVerificationTokenExpired
	}

	now := s.clock.Now()
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Accounts(tx).SetEnabled(ctx, token.AccountID, true, now); err != nil {
			return fmt.Errorf("error enabling account: %v", err)
		}
		if err := s.repomanager.VerificationTokens(tx).Delete(ctx, tokenString); err != nil {
			return fmt.Errorf("error deleting verification token: %v", err)
		}
		return nil
	})
}

// --- helpers below ---

func (s *AuthService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(opaqueTokenBytes)
}

// buildAuthResponse resolves the account's authorization snapshot, mints an
// access token from it, and stores a new refresh token via tx.
func (s *AuthService) buildAuthResponse(ctx context.Context, account *models.Account, tx dbx.DBTX) (*AuthResponse, error) {
	roles, err := s.roles.ActiveRoles(ctx, account.ID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	privileges, err := s.roles.PrivilegesFor(ctx, account.ID)
	if err != nil {
		return nil, common.ErrorInternal
	}

	roleList := roleNames(roles)
	privilegeList := privilegeNames(privileges)

	now := s.clock.Now()
	access, err := auth.GenerateToken(account.ID, account.Email, roleList, privilegeList,
		s.jwtSecret, s.issuer, now, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}

	refreshRepo := s.repomanager.RefreshTokens(tx)
	if err := refreshRepo.Create(ctx, account.ID, refresh, now.Add(s.refreshTokenValidityDuration), now); err != nil {
		return nil, common.ErrorInternal
	}

	return &AuthResponse{
		Account:    account,
		Roles:      roleList,
		Privileges: privilegeList,
		Tokens:     TokenPair{AccessToken: access, RefreshToken: refresh},
	}, nil
}
