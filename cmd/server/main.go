// Command tg-server starts the talentgate authentication API.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/talentgate/internal/cache"
	"github.com/and161185/talentgate/internal/config"
	pkgcrypto "github.com/and161185/talentgate/internal/crypto"
	"github.com/and161185/talentgate/internal/limiter"
	"github.com/and161185/talentgate/internal/metrics"
	"github.com/and161185/talentgate/internal/migrate"
	"github.com/and161185/talentgate/internal/repository/postgres"
	grpcserver "github.com/and161185/talentgate/internal/server/grpc"
	"github.com/and161185/talentgate/internal/server/httpapi"
	"github.com/and161185/talentgate/internal/service"
	"github.com/and161185/talentgate/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations and serves HTTP plus the gRPC health side-car.
func main() {
	envFile := flag.String("env-file", ".env", "optional dotenv file")
	addr := flag.String("addr", "", "HTTP listen address (overrides APP_ADDR)")
	dsn := flag.String("dsn", "", "PostgreSQL DSN (overrides PG_DSN)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(2)
	}
	if *addr != "" {
		cfg.AppAddr = *addr
	}
	if *dsn != "" {
		cfg.PGDSN = *dsn
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.AppAddr),
		zap.String("grpc_addr", cfg.GRPCAddr),
	)
	cfg.WarnInsecure(logger)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := migrate.Up(ctx, cfg.PGDSN); err != nil {
			logger.Fatal("migrate up", zap.Error(err))
		}
	}

	db, err := postgres.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Fatal("postgres", zap.Error(err))
	}
	defer db.Close()

	var store cache.Store
	if cfg.RedisAddr != "" {
		client, err := cache.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("redis unreachable, session cache degraded until it recovers", zap.Error(err))
		}
		defer func() { _ = client.Close() }()
		store = cache.NewRedisStore(client)
	}
	sessions := cache.NewSessionCache(store, logger.Named("cache"), cfg.UserCacheTTL, cfg.BlacklistRetention())

	m := metrics.New()
	lim := limiter.NewPG(db.Pool, limiter.Policy{
		Window:   cfg.LoginWindow,
		MaxFails: cfg.LoginMaxFails,
		BlockFor: cfg.LoginBlockFor,
	})
	authSvc := service.NewAuthService(service.Deps{
		Users:   postgres.NewUserRepo(db),
		Hasher:  pkgcrypto.NewHasher(cfg.BcryptCost),
		Tokens:  token.NewCodec([]byte(cfg.JWTSecret), cfg.JWTExpiration),
		Cache:   sessions,
		Limiter: lim,
		Logger:  logger.Named("auth"),
		Metrics: m,
	})

	router := httpapi.NewRouter(httpapi.RouterParams{
		Logger:     logger.Named("http"),
		Service:    authSvc,
		Metrics:    m,
		Production: cfg.IsProduction(),
		Health:     func(r *http.Request) error { return db.Ping(r.Context()) },
	})
	httpSrv := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	side := grpcserver.New(grpcserver.Options{
		Logger:     logger.Named("grpc"),
		Reflection: !cfg.IsProduction(),
	})
	go side.Watch(ctx, 10*time.Second, db.Ping)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("listen grpc", zap.Error(err))
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.AppAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("grpc listening", zap.String("addr", cfg.GRPCAddr))
		if err := side.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	// Wait for stop
	exit := 0
	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		exit = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	side.Shutdown(5 * time.Second)

	logger.Info("shutdown complete")
	if exit != 0 {
		cancel()
		db.Close()
		_ = logger.Sync()
		os.Exit(exit)
	}
}
