package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"cafepos/backend/internal/auth"
	"cafepos/backend/internal/cache"
	"cafepos/backend/internal/catalog"
	"cafepos/backend/internal/config"
	"cafepos/backend/internal/httpapi"
	"cafepos/backend/internal/logger"
	"cafepos/backend/internal/metrics"
	"cafepos/backend/internal/service"
	"cafepos/backend/internal/store"
	"cafepos/backend/internal/store/memory"
	pgstore "cafepos/backend/internal/store/postgres"
	"cafepos/backend/internal/upstream"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "read .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Setup(logger.Options{
		ServiceName: "cafepos",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	if err := validateSecurityConfig(cfg); err != nil {
		return fmt.Errorf("invalid security configuration: %w", err)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var closers []func() error

	repo, repoClose, err := openRepository(startCtx, cfg, log)
	if err != nil {
		return err
	}
	if repoClose != nil {
		closers = append(closers, repoClose)
	}

	catalogCache := cache.CatalogCache(cache.NoopCatalogCache{})
	if cfg.Redis.Address != "" {
		redisCache := cache.NewRedisCatalogCache(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err := redisCache.Ping(startCtx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, catalog lists are not cached")
			_ = redisCache.Close()
		} else {
			catalogCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Info().Str("addr", cfg.Redis.Address).Msg("cache: redis")
		}
	} else {
		log.Info().Msg("cache: noop")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	client := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout)
	loader := catalog.NewLoader(upstream.NewCatalogClient(client), catalogCache, cfg.Catalog.TTL)

	var pins auth.PINVerifier = upstream.NewPINClient(client)
	if cfg.UsesLocalPIN() {
		local, err := auth.NewLocalPINVerifier(cfg.Auth.ManagerUsername, cfg.Auth.ManagerPIN)
		if err != nil {
			return fmt.Errorf("local PIN verifier: %w", err)
		}
		pins = local
		log.Warn().Msg("CAFEPOS_API_BASE_URL is not set, manager PINs are checked locally")
	}

	svc := service.New(service.Dependencies{
		Repo:         repo,
		Catalog:      loader,
		Inventory:    upstream.NewPermissiveInventory(upstream.NewInventoryClient(client), m),
		Sales:        upstream.NewSalesClient(client),
		PINs:         pins,
		Metrics:      m,
		RefundWindow: cfg.Refund.Window,
		PINLimiter:   auth.NewAttemptLimiter(cfg.Auth.PINAttemptMax, cfg.Auth.PINAttemptWindow),
	})

	api := httpapi.New(svc, auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.TokenTTL), httpapi.Options{
		AllowedOrigins: cfg.App.AllowedOrigins,
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	server := &http.Server{
		Addr:              cfg.App.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("cafepos backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
	case err := <-serveErr:
		runErr = fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		runErr = multierr.Append(runErr, fmt.Errorf("shutdown: %w", err))
	}
	for _, closeFn := range closers {
		runErr = multierr.Append(runErr, closeFn())
	}
	return runErr
}

// openRepository refuses to fall back to memory when a database is
// configured but unreachable.
func openRepository(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Repository, func() error, error) {
	if cfg.DB.DatabaseURL == "" {
		log.Info().Msg("repository: in-memory")
		return memory.New(), nil, nil
	}

	pg, err := pgstore.New(ctx, cfg.DB.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres unavailable and CAFEPOS_DATABASE_URL is set: %w", err)
	}
	if err := pg.Migrate(ctx); err != nil {
		return nil, nil, multierr.Append(fmt.Errorf("migrate: %w", err), pg.Close())
	}
	log.Info().Msg("repository: postgres")
	return pg, pg.Close, nil
}

func validateSecurityConfig(cfg *config.Config) error {
	if len(cfg.Auth.Secret) < 32 {
		return errors.New("CAFEPOS_AUTH_SECRET must be set and at least 32 characters")
	}
	if !cfg.UsesLocalPIN() {
		return nil
	}
	if err := auth.ValidatePINInput(cfg.Auth.ManagerPIN); err != nil {
		return fmt.Errorf("CAFEPOS_MANAGER_PIN: %w", err)
	}
	// A bcrypt hash cannot be judged for strength.
	if isBcryptHash(cfg.Auth.ManagerPIN) {
		return nil
	}
	if err := auth.ValidatePINStrength(cfg.Auth.ManagerPIN); err != nil {
		return fmt.Errorf("CAFEPOS_MANAGER_PIN is too weak: %w", err)
	}
	return nil
}

func isBcryptHash(value string) bool {
	return len(value) == 60 && value[0] == '$' && value[1] == '2'
}
