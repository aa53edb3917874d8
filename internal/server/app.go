// Package server initializes and runs the account service: it opens the
// database, runs migrations, wires repositories and services, and starts the
// HTTP server and the mail delivery worker, handling graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/verdantlabs/accountd/internal/common"
	"github.com/verdantlabs/accountd/internal/logging"
	"github.com/verdantlabs/accountd/internal/server/config"
	"github.com/verdantlabs/accountd/internal/server/mail"
	"github.com/verdantlabs/accountd/internal/server/repositories/repomanager"
	"github.com/verdantlabs/accountd/internal/server/services"

	hs "github.com/verdantlabs/accountd/internal/server/http"
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	mailer         *mail.AMQPPublisher
	mailWorker     *mail.Worker
	authService    *services.AuthService
	accountService *services.AccountService
}

func NewApp(c *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	mailer, err := mail.NewAMQPPublisher(c.AMQPURL, c.MailQueue)
	if err != nil {
		return nil, fmt.Errorf("broker init error: %w", err)
	}

	clock := common.RealClock{}
	roleService := services.NewRoleService(db, rm)
	authService := services.NewAuthService(db, rm, roleService, mailer, clock, logger, c)
	accountService := services.NewAccountService(db, rm, roleService, clock)

	worker := mail.NewWorker(c.AMQPURL, c.MailQueue, c.MailFrom, c.SMTPAddr, logger)

	return &App{
		config:         c,
		logger:         logger,
		db:             db,
		mailer:         mailer,
		mailWorker:     worker,
		authService:    authService,
		accountService: accountService,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := hs.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.authService, app.accountService, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startMailWorker(ctx context.Context) {
	if err := app.mailWorker.Run(ctx); err != nil && ctx.Err() == nil {
		app.logger.Error(ctx, err.Error())
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startMailWorker(ctx)
	}()

	wg.Wait()

	if err := app.mailer.Close(); err != nil {
		app.logger.Warn(ctx, "broker close failed", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close failed", "error", err)
	}
}
