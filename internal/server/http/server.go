// Package http exposes the account service over a JSON REST API. It is a
// thin boundary: handlers bind requests, call services, and map the typed
// service errors to HTTP statuses. All business rules live in the services
// layer.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/verdantlabs/accountd/internal/logging"
	"github.com/verdantlabs/accountd/internal/server/models"
	"github.com/verdantlabs/accountd/internal/server/services"
)

// AuthProvider is the slice of AuthService the handlers need.
type AuthProvider interface {
	Register(ctx context.Context, email, username, password string) (*models.Account, error)
	Login(ctx context.Context, email, password string) (*services.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken, email string) (*services.AuthResponse, error)
	VerifyAccount(ctx context.Context, token string) error
}

// AccountProvider is the slice of AccountService the handlers need.
type AccountProvider interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	UpdateAccount(ctx context.Context, id string, patch services.AccountPatch) (*models.Account, error)
	ListAccounts(ctx context.Context, search string, limit, offset int) ([]*models.Account, error)
	Deactivate(ctx context.Context, actingID, targetID string) error
}

type HTTPServer struct {
	address   string
	auth      AuthProvider
	accounts  AccountProvider
	logger    logging.Logger
	jwtSecret []byte
	echo      *echo.Echo
}

func NewHTTPServer(a string, l logging.Logger, as AuthProvider, ac AccountProvider, secretKey string) *HTTPServer {
	s := &HTTPServer{
		address:   a,
		auth:      as,
		accounts:  ac,
		logger:    l.With("module", "http_server"),
		jwtSecret: []byte(secretKey),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/healthz", s.health)

	v1 := e.Group("/api/v1")
	v1.POST("/auth/register", s.register)
	v1.POST("/auth/login", s.login)
	v1.POST("/auth/refresh", s.refresh)
	v1.GET("/auth/verify", s.verify)

	users := v1.Group("/users", s.accessTokenMiddleware)
	users.GET("", s.listAccounts)
	users.GET("/me", s.getSelf)
	users.PATCH("/me", s.updateSelf)
	users.GET("/:id", s.getAccount)
	users.DELETE("/:id", s.deactivate)

	s.echo = e
	return s
}

// Run starts the HTTP listener and shuts it down gracefully when ctx is
// cancelled.
func (s *HTTPServer) Run(ctx context.Context) error {

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := s.echo.Start(s.address); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "OK"})
}
