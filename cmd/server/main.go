// Command facegate-server starts the face-first kiosk banking API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/centbank/facegate/internal/account"
	"github.com/centbank/facegate/internal/auth"
	"github.com/centbank/facegate/internal/biometric"
	"github.com/centbank/facegate/internal/config"
	"github.com/centbank/facegate/internal/enroll"
	"github.com/centbank/facegate/internal/ledger"
	"github.com/centbank/facegate/internal/limiter"
	"github.com/centbank/facegate/internal/match"
	"github.com/centbank/facegate/internal/migrate"
	"github.com/centbank/facegate/internal/repository/postgres"
	httpserver "github.com/centbank/facegate/internal/server/http"
	"github.com/centbank/facegate/internal/session"

	pkgcrypto "github.com/centbank/facegate/internal/crypto"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, builds the service graph, and
// serves HTTP until a shutdown signal.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("metric", cfg.Metric),
	)

	metric, err := match.ParseMetric(cfg.Metric)
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.PostgresDSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("postgres", zap.Error(err))
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURI)
	if err != nil {
		logger.Fatal("redis uri", zap.Error(err))
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis ping", zap.Error(err))
	}

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	templateRepo := postgres.NewTemplateRepo(db)
	ledgerRepo := postgres.NewLedgerRepo(db)

	// Warm the in-process template snapshot for the match scan.
	templates, err := templateRepo.All(ctx)
	if err != nil {
		logger.Fatal("load templates", zap.Error(err))
	}
	store := match.NewStore(templates)
	logger.Info("templates loaded", zap.Int("users", len(templates)))

	engine, err := match.NewLinearEngine(metric, match.Policy{
		Threshold: cfg.Threshold,
		Margin:    cfg.Margin,
	}, cfg.EmbeddingDim)
	if err != nil {
		logger.Fatal("match engine", zap.Error(err))
	}

	source := biometric.NewHTTPSource(cfg.ExtractorURL, cfg.EmbeddingDim, 10*time.Second)
	lim := limiter.NewPGWithQuerier(db.Pool, cfg.LimiterWindow, cfg.LimiterMaxFails, cfg.LimiterBlockFor)

	sessions := session.NewStore(rdb, []byte(cfg.JWTKey), cfg.AccessSessionTTL)
	registry := auth.NewRegistry(cfg.LoginSessionTTL)

	authSvc := auth.NewService(
		source, engine, store, userRepo,
		pkgcrypto.Verifier{}, sessions, lim, registry,
		cfg.MaxAttempts, logger,
	)
	enrollSvc := enroll.NewService(source, templateRepo, store, cfg.MinEnrollSamples, logger)
	accountSvc := account.NewService(userRepo, logger)
	ledgerSvc := ledger.NewService(ledgerRepo, userRepo, logger)

	srv := httpserver.New(accountSvc, authSvc, enrollSvc, ledgerSvc, sessions, logger)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(cfg.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Expired login sessions are swept here; the registry itself runs no
	// timers.
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := registry.PurgeExpired(); n > 0 {
					logger.Debug("login sessions purged", zap.Int("count", n))
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
