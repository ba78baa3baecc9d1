package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/questlog/questlog/pkg/api"
	"github.com/questlog/questlog/pkg/auth"
	"github.com/questlog/questlog/pkg/config"
	"github.com/questlog/questlog/pkg/httputil"
	"github.com/questlog/questlog/pkg/middleware"
	"github.com/questlog/questlog/pkg/observability"
	"github.com/questlog/questlog/pkg/sso"
	"github.com/questlog/questlog/pkg/storage"
	"github.com/questlog/questlog/pkg/users"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout).
		WithField("service", cfg.Observability.OTelServiceName)

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("QuestLog server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelCfg := cfg.Observability.OTel()
	if otelCfg.ServiceVersion == "" {
		otelCfg.ServiceVersion = version
	}
	providers, err := observability.InitOTel(ctx, otelCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	// Users
	db, err := storage.OpenDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	sqlStore, err := users.NewSQLStore(ctx, db, cfg.Database.Driver)
	if err != nil {
		return err
	}
	logger.WithField("driver", cfg.Database.Driver).Info("User store ready")

	var registry *prometheus.Registry
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		metrics = observability.NewMetrics(registry)
	}

	store := users.NewCachedStore(sqlStore, cfg.Auth.PrincipalCacheSize, cfg.Auth.PrincipalCacheTTL, metrics)

	// Tokens
	codec, err := auth.NewCodec([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenLifetime)
	if err != nil {
		return err
	}
	if codec.GeneratedKey() {
		logger.Warn("No JWT secret configured; using a random signing key. Tokens will not survive a restart.")
	}

	var redisClient *redis.Client
	var revocations auth.RevocationRegistry
	var invalidator *users.RedisInvalidator
	if cfg.Redis.URL != "" {
		redisClient, err = storage.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		revocations = auth.NewRedisRegistry(redisClient, auth.DefaultRevocationKey, codec)
		logger.Info("Using Redis revocation registry")

		invalidator = users.NewRedisInvalidator(redisClient, users.DefaultInvalidationChannel)
		if err := invalidator.Start(ctx, store); err != nil {
			return err
		}
		store.SetInvalidator(invalidator)
	} else {
		revocations = auth.NewMemoryRegistry(codec)
		logger.Info("Using in-process revocation registry")
	}

	authn := auth.NewAuthenticator(store, codec, revocations, logger, metrics)
	audit := auth.NewAuditLogger(logger)

	// HTTP
	proxies, err := httputil.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}
	opts := api.Options{
		Store:             store,
		Authenticator:     authn,
		Audit:             audit,
		Logger:            logger,
		Metrics:           metrics,
		CredentialLimiter: newCredentialLimiter(ctx, cfg, redisClient),
		TrustedProxies:    proxies,
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
	}
	if cfg.SSO.Enabled() {
		google, err := sso.NewProvider(ctx, sso.GoogleConfig(
			cfg.SSO.GoogleClientID,
			cfg.SSO.GoogleClientSecret,
			cfg.SSO.GoogleIssuer,
			cfg.SSO.RedirectBaseURL,
		))
		if err != nil {
			return fmt.Errorf("failed to configure Google sign-on: %w", err)
		}
		opts.SSO = sso.NewHandlers(sso.NewUserProvisioner(store, logger), authn, audit, cfg.SSO.FrontendURL, logger, google)
		logger.Info("Google sign-on enabled")
	}

	server := api.NewServer(opts)

	sweeper := auth.NewSweeper(revocations, cfg.Auth.SweepInterval, codec.Now, logger, metrics)
	sweeper.Start(ctx)

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      otelhttp.NewHandler(server, "questlog-api"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	opsServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: api.NewOpsHandler(observability.NewHealthChecker(db, redisClient, version), registry),
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, opsServer)
	shutdown.RegisterShutdownFunc("revocation sweeper", sweeper.Stop)
	if invalidator != nil {
		shutdown.RegisterShutdownFunc("principal cache invalidation", func(context.Context) error {
			return invalidator.Close()
		})
	}
	shutdown.RegisterShutdownFunc("opentelemetry", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers)
	})

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{apiServer, opsServer} {
		g.Go(func() error {
			logger.WithField("addr", srv.Addr).Info("HTTP server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return shutdown.Shutdown()
	})

	return g.Wait()
}

// newCredentialLimiter throttles login and signup per client address. The
// limit is shared through Redis when it is configured.
func newCredentialLimiter(ctx context.Context, cfg *config.Config, client *redis.Client) middleware.Limiter {
	if cfg.Auth.LoginRateLimit <= 0 {
		return nil
	}
	limitCfg := &middleware.RateLimitConfig{
		RequestsPerWindow: cfg.Auth.LoginRateLimit,
		WindowDuration:    cfg.Auth.LoginRateWindow,
	}
	if client != nil {
		return middleware.NewDistributedRateLimiter(client, limitCfg, "questlog:ratelimit:credentials")
	}
	limiter := middleware.NewRateLimiter(limitCfg)
	limiter.StartCleanup(ctx)
	return limiter
}
