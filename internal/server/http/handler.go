package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/verdantlabs/accountd/internal/common"
	"github.com/verdantlabs/accountd/internal/server/models"
	"github.com/verdantlabs/accountd/internal/server/services"
)

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
	Email        string `json:"email"`
}

type updateReq struct {
	Username    *string `json:"username"`
	PhoneNumber *string `json:"phone_number"`
	Bio         *string `json:"bio"`
	Website     *string `json:"website"`
}

type accountResp struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	Enabled      bool       `json:"enabled"`
	PhoneNumber  string     `json:"phone_number,omitempty"`
	Bio          string     `json:"bio,omitempty"`
	Website      string     `json:"website,omitempty"`
	RegisteredAt time.Time  `json:"registered_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

type authResp struct {
	Account      accountResp `json:"account"`
	Roles        []string    `json:"roles"`
	Privileges   []string    `json:"privileges"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
}

func toAccountResp(a *models.Account) accountResp {
	resp := accountResp{
		ID:           a.ID,
		Email:        a.Email,
		Username:     a.Username,
		Enabled:      a.Enabled,
		RegisteredAt: a.RegisteredAt,
	}
	if a.PhoneNumber.Valid {
		resp.PhoneNumber = a.PhoneNumber.String
	}
	if a.Bio.Valid {
		resp.Bio = a.Bio.String
	}
	if a.Website.Valid {
		resp.Website = a.Website.String
	}
	if a.LastLoginAt.Valid {
		t := a.LastLoginAt.Time
		resp.LastLoginAt = &t
	}
	return resp
}

func toAuthResp(r *services.AuthResponse) authResp {
	return authResp{
		Account:      toAccountResp(r.Account),
		Roles:        r.Roles,
		Privileges:   r.Privileges,
		AccessToken:  r.Tokens.AccessToken,
		RefreshToken: r.Tokens.RefreshToken,
	}
}

// writeError maps the typed service errors to HTTP statuses. All credential
// failures collapse into one 401 message so callers cannot probe which
// accounts exist.
func (s *HTTPServer) writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	case errors.Is(err, common.ErrPasswordTooShort):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	case errors.Is(err, common.ErrPasswordTooWeak):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must contain upper and lower case letters, a digit, and a symbol"})
	case errors.Is(err, common.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid email or password"})
	case errors.Is(err, common.ErrAccountNotVerified):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account not verified"})
	case errors.Is(err, common.ErrInvalidRefreshToken), errors.Is(err, common.ErrRefreshTokenExpired):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	case errors.Is(err, common.ErrInvalidVerificationToken):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid verification token"})
	case errors.Is(err, common.ErrVerificationTokenExpired):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "verification token expired"})
	case errors.Is(err, common.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, common.ErrorNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	default:
		s.logger.Error(c.Request().Context(), "request failed", "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// ----- auth endpoints -----

func (s *HTTPServer) register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email, username and password are required"})
	}

	account, err := s.auth.Register(c.Request().Context(), req.Email, req.Username, req.Password)
	if err != nil {
		return s.writeError(c, err)
	}

	s.logger.Info(c.Request().Context(), "account registered", "account_id", account.ID)
	return c.JSON(http.StatusCreated, toAccountResp(account))
}

func (s *HTTPServer) login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	resp, err := s.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, toAuthResp(resp))
}

func (s *HTTPServer) refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.RefreshToken == "" || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token and email are required"})
	}

	resp, err := s.auth.Refresh(c.Request().Context(), req.RefreshToken, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, toAuthResp(resp))
}

func (s *HTTPServer) verify(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	}

	if err := s.auth.VerifyAccount(c.Request().Context(), token); err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "verified"})
}

// ----- account endpoints (behind accessTokenMiddleware) -----

func (s *HTTPServer) getSelf(c echo.Context) error {
	claims := requestClaims(c)

	account, err := s.accounts.GetAccount(c.Request().Context(), claims.Subject)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, toAccountResp(account))
}

func (s *HTTPServer) updateSelf(c echo.Context) error {
	claims := requestClaims(c)

	var req updateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	account, err := s.accounts.UpdateAccount(c.Request().Context(), claims.Subject, services.AccountPatch{
		Username:    req.Username,
		PhoneNumber: req.PhoneNumber,
		Bio:         req.Bio,
		Website:     req.Website,
	})
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, toAccountResp(account))
}

func (s *HTTPServer) getAccount(c echo.Context) error {
	account, err := s.accounts.GetAccount(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, toAccountResp(account))
}

func (s *HTTPServer) listAccounts(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	accounts, err := s.accounts.ListAccounts(c.Request().Context(), c.QueryParam("search"), limit, offset)
	if err != nil {
		return s.writeError(c, err)
	}

	out := make([]accountResp, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResp(a))
	}
	return c.JSON(http.StatusOK, echo.Map{"accounts": out})
}

func (s *HTTPServer) deactivate(c echo.Context) error {
	claims := requestClaims(c)

	if err := s.accounts.Deactivate(c.Request().Context(), claims.Subject, c.Param("id")); err != nil {
		return s.writeError(c, err)
	}

	s.logger.Info(c.Request().Context(), "account deactivated", "account_id", c.Param("id"), "actor_id", claims.Subject)
	return c.NoContent(http.StatusNoContent)
}
