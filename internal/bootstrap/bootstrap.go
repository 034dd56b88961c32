// Package bootstrap wires configuration into a running service.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/vaidyamitra/internal/application"
	apptriage "github.com/bryanwahyu/vaidyamitra/internal/application/triage"
	"github.com/bryanwahyu/vaidyamitra/internal/config"
	"github.com/bryanwahyu/vaidyamitra/internal/domain/history"
	"github.com/bryanwahyu/vaidyamitra/internal/domain/triage"
	"github.com/bryanwahyu/vaidyamitra/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/vaidyamitra/internal/infra/db/mysql"
	"github.com/bryanwahyu/vaidyamitra/internal/infra/db/postgres"
	"github.com/bryanwahyu/vaidyamitra/internal/infra/httpserver"
	"github.com/bryanwahyu/vaidyamitra/internal/infra/secrets"
	minioStore "github.com/bryanwahyu/vaidyamitra/internal/infra/storage"
	"github.com/bryanwahyu/vaidyamitra/internal/middleware"
)

// Credentials returns the lookup chain: process environment, then the config secrets section.
func Credentials(cfg *config.Config) secrets.Chain {
	return secrets.Chain{secrets.Env{}, secrets.Static(cfg.Secrets)}
}

// App holds the wired service and the resources it owns.
type App struct {
	Service *apptriage.Service
	Checks  []middleware.Check
	db      *sql.DB
}

func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// New connects the optional history database and report bucket and builds the service.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	creds := Credentials(cfg)
	secretName := apptriage.SecretName(cfg.AI.SecretName)
	temperature := cfg.Triage.Temperature
	app := &App{
		Service: &apptriage.Service{
			Models: openai.Factory(openai.Options{
				BaseURL:   cfg.AI.BaseURL,
				Model:     cfg.AI.Model,
				MaxTokens: cfg.AI.MaxTokens,
				Timeout:   cfg.AI.Timeout,
			}),
			Credentials: creds,
			SecretName:  secretName,
			Clock:       application.SystemClock{},
			Logger:      log,
			DefaultMode: triage.Mode(cfg.Triage.Mode),
			Temperature: &temperature,
			Language:    cfg.Triage.Language,
		},
	}
	app.Checks = append(app.Checks, middleware.Check{
		Name:     "credential",
		Checker:  &middleware.CredentialHealthChecker{Source: creds, Name: secretName},
		Optional: true,
	})

	if cfg.HistoryEnabled() {
		repo, db, err := connectHistory(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("%s connect error: %w", cfg.Database.Driver, err)
		}
		app.db = db
		app.Service.Repo = repo
		app.Checks = append(app.Checks, middleware.Check{Name: "database", Checker: &middleware.DatabaseHealthChecker{DB: db}})
		log.Info("analysis history enabled", zap.String("driver", cfg.Database.Driver))
	}

	if cfg.ReportsEnabled() {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("minio init error: %w", err)
		}
		app.Service.Reports = store
		app.Checks = append(app.Checks, middleware.Check{Name: "storage", Checker: store})
		log.Info("report archive enabled", zap.String("bucket", cfg.Minio.BucketName))
	}
	return app, nil
}

type migrator interface {
	history.Repository
	Migrate(ctx context.Context) error
}

func connectHistory(ctx context.Context, cfg *config.Config) (history.Repository, *sql.DB, error) {
	var (
		db   *sql.DB
		repo migrator
		err  error
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgres.Connect(ctx, cfg.DSN())
		if err == nil {
			repo = postgres.NewHistoryRepository(db)
		}
	default:
		db, err = mysqlp.Connect(ctx, cfg.DSN())
		if err == nil {
			repo = mysqlp.NewHistoryRepository(db)
		}
	}
	if err != nil {
		return nil, nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return repo, db, nil
}

// Serve runs the HTTP API until SIGINT/SIGTERM.
func Serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	app, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate)
	defer limiter.Stop()

	handler := httpserver.NewRouter(app.Service, httpserver.Options{
		Logger:         log,
		AuthKeys:       cfg.Auth.Keys,
		Limiter:        limiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		HealthChecks:   app.Checks,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		log.Info("shutting down server", zap.String("signal", sig.String()))
	case <-ctx.Done():
		log.Info("shutting down server", zap.Error(ctx.Err()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}
