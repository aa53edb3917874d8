package services

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"

	"github.com/verdantlabs/accountd/internal/common"
	"github.com/verdantlabs/accountd/internal/dbx"
	"github.com/verdantlabs/accountd/internal/logging"
	"github.com/verdantlabs/accountd/internal/server/auth"
	"github.com/verdantlabs/accountd/internal/server/config"
	"github.com/verdantlabs/accountd/internal/server/mail"
	"github.com/verdantlabs/accountd/internal/server/models"
	accountsrepo "github.com/verdantlabs/accountd/internal/server/repositories/accounts"
	refreshtokensrepo "github.com/verdantlabs/accountd/internal/server/repositories/refreshtokens"
	rolesrepo "github.com/verdantlabs/accountd/internal/server/repositories/roles"
	verificationtokensrepo "github.com/verdantlabs/accountd/internal/server/repositories/verificationtokens"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (l nopLogger) With(...any) logging.Logger          { return l }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

type fakeMailer struct {
	sent []mail.Notification
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, n mail.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

type fakeAccountsRepo struct {
	createOut *models.Account
	createErr error

	byEmailOut *models.Account
	byEmailErr error

	existsOut bool
	existsErr error

	byIDOut *models.Account
	byIDErr error

	activeByIDOut *models.Account
	activeByIDErr error

	updateErr error

	lastLoginID  string
	lastLoginErr error

	enabledID  string
	enabledErr error

	deactivatedID string
	deactivateErr error

	listOut    []*models.Account
	listErr    error
	listLimit  int
	listOffset int
}

func (f *fakeAccountsRepo) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	out := *a
	out.ID = "acc-1"
	return &out, nil
}
func (f *fakeAccountsRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if f.byEmailErr != nil {
		return nil, f.byEmailErr
	}
	return f.byEmailOut, nil
}
func (f *fakeAccountsRepo) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	return f.byIDOut, nil
}
func (f *fakeAccountsRepo) GetActiveByID(ctx context.Context, id string) (*models.Account, error) {
	if f.activeByIDErr != nil {
		return nil, f.activeByIDErr
	}
	return f.activeByIDOut, nil
}
func (f *fakeAccountsRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.existsOut, nil
}
func (f *fakeAccountsRepo) UpdateProfile(ctx context.Context, a *models.Account) error {
	return f.updateErr
}
func (f *fakeAccountsRepo) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	if f.lastLoginErr != nil {
		return f.lastLoginErr
	}
	f.lastLoginID = id
	return nil
}
func (f *fakeAccountsRepo) SetEnabled(ctx context.Context, id string, enabled bool, at time.Time) error {
	if f.enabledErr != nil {
		return f.enabledErr
	}
	f.enabledID = id
	return nil
}
func (f *fakeAccountsRepo) Deactivate(ctx context.Context, id string, at time.Time) error {
	if f.deactivateErr != nil {
		return f.deactivateErr
	}
	f.deactivatedID = id
	return nil
}
func (f *fakeAccountsRepo) List(ctx context.Context, search string, limit, offset int) ([]*models.Account, error) {
	f.listLimit, f.listOffset = limit, offset
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listOut, nil
}

type fakeVerificationRepo struct {
	created   []*models.VerificationToken
	createErr error

	findOut *models.VerificationToken
	findErr error

	deleted []string
	delErr  error
}

func (f *fakeVerificationRepo) Create(ctx context.Context, t *models.VerificationToken) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, t)
	return nil
}
func (f *fakeVerificationRepo) Find(ctx context.Context, token string) (*models.VerificationToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}
func (f *fakeVerificationRepo) Delete(ctx context.Context, token string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, token)
	return nil
}

type fakeRefreshRepo struct {
	created   []string
	createErr error

	findOut *models.RefreshToken
	findErr error

	deleted []string
	delErr  error

	deletedForAccount []string
	delForAccountErr  error
}

func (f *fakeRefreshRepo) Create(ctx context.Context, accountID, token string, expiresAt, createdAt time.Time) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, token)
	return nil
}
func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}
func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, token)
	return nil
}
func (f *fakeRefreshRepo) DeleteForAccount(ctx context.Context, accountID string) error {
	if f.delForAccountErr != nil {
		return f.delForAccountErr
	}
	f.deletedForAccount = append(f.deletedForAccount, accountID)
	return nil
}

type fakeRolesRepo struct {
	roleByName    *models.Role
	roleByNameErr error

	assigned  []string
	assignErr error

	activeRoles    []models.Role
	activeRolesErr error

	privsByRole map[int64][]models.Privilege
	privsErr    error

	capsByRole map[int64]bool
	capsErr    error
}

func (f *fakeRolesRepo) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	if f.roleByNameErr != nil {
		return nil, f.roleByNameErr
	}
	return f.roleByName, nil
}
func (f *fakeRolesRepo) AssignRole(ctx context.Context, accountID string, roleID int64, at time.Time) error {
	if f.assignErr != nil {
		return f.assignErr
	}
	f.assigned = append(f.assigned, accountID)
	return nil
}
func (f *fakeRolesRepo) ActiveRolesFor(ctx context.Context, accountID string) ([]models.Role, error) {
	if f.activeRolesErr != nil {
		return nil, f.activeRolesErr
	}
	return f.activeRoles, nil
}
func (f *fakeRolesRepo) PrivilegesForRole(ctx context.Context, roleID int64) ([]models.Privilege, error) {
	if f.privsErr != nil {
		return nil, f.privsErr
	}
	return f.privsByRole[roleID], nil
}
func (f *fakeRolesRepo) RoleHasCapability(ctx context.Context, roleID int64, capability string) (bool, error) {
	if f.capsErr != nil {
		return false, f.capsErr
	}
	return f.capsByRole[roleID], nil
}

type fakeRepoManager struct {
	a *fakeAccountsRepo
	v *fakeVerificationRepo
	r *fakeRefreshRepo
	o *fakeRolesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(db dbx.DBTX) accountsrepo.Repository { return m.a }
func (m *fakeRepoManager) VerificationTokens(db dbx.DBTX) verificationtokensrepo.Repository {
	return m.v
}
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) Roles(db dbx.DBTX) rolesrepo.Repository                 { return m.o }

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		a: &fakeAccountsRepo{},
		v: &fakeVerificationRepo{},
		r: &fakeRefreshRepo{},
		o: &fakeRolesRepo{
			roleByName:  &models.Role{ID: 1, Name: models.DefaultRoleName},
			activeRoles: []models.Role{{ID: 1, Name: models.DefaultRoleName}},
			privsByRole: map[int64][]models.Privilege{1: {{ID: 1, Name: "accounts:read"}}},
		},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                         "k",
		Issuer:                            "accountd-test",
		BcryptCost:                        bcrypt.MinCost,
		AccessTokenValidityDuration:       time.Hour,
		RefreshTokenValidityDuration:      2 * time.Hour,
		VerificationTokenValidityDuration: 24 * time.Hour,
		VerificationBaseURL:               "http://localhost/verify",
	}
}

func newAuthService(t *testing.T, db *sql.DB, rm *fakeRepoManager, mailer mail.Mailer, now time.Time) *AuthService {
	t.Helper()
	roles := NewRoleService(db, rm)
	return NewAuthService(db, rm, roles, mailer, fixedClock{now}, nopLogger{}, testConfig())
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := auth.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	return h
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rm := newFakeRepoManager()
	mailer := &fakeMailer{}
	s := newAuthService(t, db, rm, mailer, now)

	account, err := s.Register(context.Background(), "alice@example.com", "alice", "Abc12345!")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if account.ID == "" || account.Enabled {
		t.Fatalf("expected disabled account with ID, got %+v", account)
	}
	if len(rm.o.assigned) != 1 || rm.o.assigned[0] != account.ID {
		t.Fatalf("default role not assigned: %v", rm.o.assigned)
	}
	if len(rm.v.created) != 1 {
		t.Fatalf("expected one verification token, got %d", len(rm.v.created))
	}
	tok := rm.v.created[0]
	if tok.AccountID != account.ID {
		t.Fatalf("token bound to wrong account: %q", tok.AccountID)
	}
	if want := now.Add(24 * time.Hour); !tok.ExpiresAt.Equal(want) {
		t.Fatalf("token expiry: got %v want %v", tok.ExpiresAt, want)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(mailer.sent))
	}
	if !strings.Contains(mailer.sent[0].VerificationURL, tok.Token) {
		t.Fatalf("verification URL %q missing token", mailer.sent[0].VerificationURL)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRegister_WeakPassword_NoDBActivity(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	s := newAuthService(t, db, rm, &fakeMailer{}, time.Now())

	if _, err := s.Register(context.Background(), "a@x.com", "a", "short"); !errors.Is(err, common.ErrPasswordTooShort) {
		t.Fatalf("want ErrPasswordTooShort, got %v", err)
	}
	if _, err := s.Register(context.Background(), "a@x.com", "a", "abc12345!"); !errors.Is(err, common.ErrPasswordTooWeak) {
		t.Fatalf("want ErrPasswordTooWeak, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no transaction expected: %v", err)
	}
}

func TestRegister_EmailExists(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := newFakeRepoManager()
	rm.a.createErr = common.ErrEmailExists
	mailer := &fakeMailer{}
	s := newAuthService(t, db, rm, mailer, time.Now())

	_, err := s.Register(context.Background(), "taken@example.com", "bob", "Abc12345!")
	if !errors.Is(err, common.ErrEmailExists) {
		t.Fatalf("want ErrEmailExists, got %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("no mail on failed registration, got %d", len(mailer.sent))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRegister_EmailExists_CheckedBeforePasswordPolicy(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	rm.a.existsOut = true
	s := newAuthService(t, db, rm, &fakeMailer{}, time.Now())

	// Even with a password that fails policy, a taken email wins.
	if _, err := s.Register(context.Background(), "taken@example.com", "bob", "short"); !errors.Is(err, common.ErrEmailExists) {
		t.Fatalf("want ErrEmailExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no transaction expected: %v", err)
	}
}

func TestRegister_ExistsCheckError(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	rm.a.existsErr = errBoom{}
	s := newAuthService(t, db, rm, &fakeMailer{}, time.Now())

	if _, err := s.Register(context.Background(), "a@x.com", "a", "Abc12345!"); !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("want ErrorInternal, got %v", err)
	}
}

func TestRegister_MailerFailure_DoesNotUndoRegistration(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := newFakeRepoManager()
	s := newAuthService(t, db, rm, &fakeMailer{err: errBoom{}}, time.Now())

	account, err := s.Register(context.Background(), "carol@example.com", "carol", "Abc12345!")
	if err != nil {
		t.Fatalf("Register must not fail on mailer error, got %v", err)
	}
	if account == nil || account.ID == "" {
		t.Fatalf("expected created account, got %+v", account)
	}
}

// --- Login ---

func TestLogin_Flows(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	hash := mustHash(t, "Abc12345!")

	t.Run("unknown email → invalid credentials", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		defer db.Close()
		rm := newFakeRepoManager()
		rm.a.byEmailErr = common.ErrorNotFound
		s := newAuthService(t, db, rm, &fakeMailer{}, now)

		if _, err := s.Login(context.Background(), "ghost@x.com", "Abc12345!"); !errors.Is(err, common.ErrInvalidCredentials) {
			t.Fatalf("want ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("deactivated account → invalid credentials", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		defer db.Close()
		rm := newFakeRepoManager()
		rm.a.byEmailOut = &models.Account{ID: "a1", Email: "a@x.com", PasswordHash: hash, Active: false, Enabled: true}
		s := newAuthService(t, db, rm, &fakeMailer{}, now)

		if _, err := s.Login(context.Background(), "a@x.com", "Abc12345!"); !errors.Is(err, common.ErrInvalidCredentials) {
			t.Fatalf("want ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("wrong password → invalid credentials", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		defer db.Close()
		rm := newFakeRepoManager()
		rm.a.byEmailOut = &models.Account{ID: "a1", Email: "a@x.com", PasswordHash: hash, Active: true, Enabled: true}
		s := newAuthService(t, db, rm, &fakeMailer{}, now)

		if _, err := s.Login(context.Background(), "a@x.com", "Wrong1234!"); !errors.Is(err, common.ErrInvalidCredentials) {
			t.Fatalf("want ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unverified account → not verified", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		defer db.Close()
		rm := newFakeRepoManager()
		rm.a.byEmailOut = &models.Account{ID: "a1", Email: "a@x.com", PasswordHash: hash, Active: true, Enabled: false}
		s := newAuthService(t, db, rm, &fakeMailer{}, now)

		if _, err := s.Login(context.Background(), "a@x.com", "Abc12345!"); !errors.Is(err, common.ErrAccountNotVerified) {
			t.Fatalf("want ErrAccountNotVerified, got %v", err)
		}
	})

	t.Run("unverified account with wrong password → not verified", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		defer db.Close()
		rm := newFakeRepoManager()
		rm.a.byEmailOut = &models.Account{ID: "a1", Email: "a@x.com", PasswordHash: hash, Active: true, Enabled: false}
		s := newAuthService(t, db, rm, &fakeMailer{}, now)

		if _, err := s.Login(context.Background(), "a@x.com", "Wrong1234!"); !errors.Is(err, common.ErrAccountNotVerified) {
			t.Fatalf("want ErrAccountNotVerified, got %v", err)
		}
	})

	t.Run("success", func(t *testing.T) {
		db, mock := newSQLMockDB(t)
		defer db.Close()
		mock.ExpectBegin()
		mock.ExpectCommit()

		rm := newFakeRepoManager()
		rm.a.byEmailOut = &models.Account{ID: "a1", Email: "a@x.com", PasswordHash: hash, Active: true, Enabled: true}
		// ParseToken validates expiry against the real clock, so the token
		// minted here must be issued at wall-clock time, not the fixed date.
		s := newAuthService(t, db, rm, &fakeMailer{}, time.Now())

		resp, err := s.Login(context.Background(), "a@x.com", "Abc12345!")
		if err != nil {
			t.Fatalf("Login error: %v", err)
		}
		if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
			t.Fatalf("empty tokens: %+v", resp.Tokens)
		}
		if len(resp.Roles) != 1 || resp.Roles[0] != models.DefaultRoleName {
			t.Fatalf("roles mismatch: %v", resp.Roles)
		}
		if len(resp.Privileges) != 1 || resp.Privileges[0] != "accounts:read" {
			t.Fatalf("privileges mismatch: %v", resp.Privileges)
		}
		if rm.a.lastLoginID != "a1" {
			t.Fatalf("last login not recorded")
		}
		if len(rm.r.created) != 1 || rm.r.created[0] != resp.Tokens.RefreshToken {
			t.Fatalf("refresh token not stored: %v", rm.r.created)
		}
		claims, err := auth.ParseToken(resp.Tokens.AccessToken, []byte("k"))
		if err != nil {
			t.Fatalf("ParseToken error: %v", err)
		}
		if claims.Subject != "a1" || claims.Email != "a@x.com" {
			t.Fatalf("claims mismatch: %+v", claims)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("sql expectations: %v", err)
		}
	})
}

// --- Refresh ---

func TestRefresh_Success_RotatesToken(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rm := newFakeRepoManager()
	rm.r.findOut = &models.RefreshToken{Token: "refresh-xyz", AccountID: "a1", ExpiresAt: now.Add(10 * time.Minute)}
	rm.a.activeByIDOut = &models.Account{ID: "a1", Email: "a@x.com", Active: true, Enabled: true}
	s := newAuthService(t, db, rm, &fakeMailer{}, now)

	resp, err := s.Refresh(context.Background(), "refresh-xyz", "a@x.com")
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", resp.Tokens)
	}
	if resp.Tokens.RefreshToken == "refresh-xyz" {
		t.Fatalf("refresh token must be rotated")
	}
	if len(rm.r.deleted) != 1 || rm.r.deleted[0] != "refresh-xyz" {
		t.Fatalf("old token not deleted: %v", rm.r.deleted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRefresh_Expired(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rm := newFakeRepoManager()
	rm.r.findOut = &models.RefreshToken{Token: "r", AccountID: "a1", ExpiresAt: now.Add(-time.Minute)}
	s := newAuthService(t, db, rm, &fakeMailer{}, now)

	if _, err := s.Refresh(context.Background(), "r", "a@x.com"); !errors.Is(err, common.ErrRefreshTokenExpired) {
		t.Fatalf("want ErrRefreshTokenExpired, got %v", err)
	}
}

func TestRefresh_UnknownToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	rm.r.findErr = common.ErrorNotFound
	s := newAuthService(t, db, rm, &fakeMailer{}, time.Now())

	if _, err := s.Refresh(context.Background(), "nope", "a@x.com"); !errors.Is(err, common.ErrInvalidRefreshToken) {
		t.Fatalf("want ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefresh_EmailMismatch(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	now := time.Now()
	rm := newFakeRepoManager()
	rm.r.findOut = &models.RefreshToken{Token: "r", AccountID: "a1", ExpiresAt: now.Add(time.Hour)}
	rm.a.activeByIDOut = &models.Account{ID: "a1", Email: "owner@x.com", Active: true, Enabled: true}
	s := newAuthService(t, db, rm, &fakeMailer{}, now)

	if _, err := s.Refresh(context.Background(), "r", "intruder@x.com"); !errors.Is(err, common.ErrInvalidRefreshToken) {
		t.Fatalf("want ErrInvalidRefreshToken, got %v", err)
	}
	if len(rm.r.deleted) != 0 {
		t.Fatalf("token must not be consumed on mismatch")
	}
}

func TestRefresh_FindErr(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	rm.r.findErr = errBoom{}
	s := newAuthService(t, db, rm, &fakeMailer{}, time.Now())

	_, err := s.Refresh(context.Background(), "r", "a@x.com")
	if err == nil || !regexp.MustCompile(`error searching refresh token: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped find error, got %v", err)
	}
}

// --- VerifyAccount ---

func TestVerifyAccount_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rm := newFakeRepoManager()
	rm.v.findOut = &models.VerificationToken{Token: "v-tok", AccountID: "a1", ExpiresAt: now.Add(time.Hour)}
	s := newAuthService(t, db, rm, &fakeMailer{}, now)

	if err := s.VerifyAccount(context.Background(), "v-tok"); err != nil {
		t.Fatalf("VerifyAccount error: %v", err)
	}
	if rm.a.enabledID != "a1" {
		t.Fatalf("account not enabled")
	}
	if len(rm.v.deleted) != 1 || rm.v.deleted[0] != "v-tok" {
		t.Fatalf("token not consumed: %v", rm.v.deleted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestVerifyAccount_Expired_NoMutation(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rm := newFakeRepoManager()
	rm.v.findOut = &models.VerificationToken{Token: "v-tok", AccountID: "a1", ExpiresAt: now.Add(-time.Minute)}
	s := newAuthService(t, db, rm, &fakeMailer{}, now)

	if err := s.VerifyAccount(context.Background(), "v-tok"); !errors.Is(err, common.ErrVerificationTokenExpired) {
		t.Fatalf("want ErrVerificationTokenExpired, got %v", err)
	}
	if rm.a.enabledID != "" {
		t.Fatalf("expired token must not enable the account")
	}
	if len(rm.v.deleted) != 0 {
		t.Fatalf("expired token must not be deleted")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no transaction expected: %v", err)
	}
}

func TestVerifyAccount_Unknown(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	rm.v.findErr = common.ErrorNotFound
	s := newAuthService(t, db, rm, &fakeMailer{}, time.Now())

	if err := s.VerifyAccount(context.Background(), "nope"); !errors.Is(err, common.ErrInvalidVerificationToken) {
		t.Fatalf("want ErrInvalidVerificationToken, got %v", err)
	}
}
