package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/critique/pkg/api"
	"github.com/platinummonkey/critique/pkg/audit"
	"github.com/platinummonkey/critique/pkg/auth"
	"github.com/platinummonkey/critique/pkg/catalog"
	"github.com/platinummonkey/critique/pkg/config"
	"github.com/platinummonkey/critique/pkg/enrollment"
	"github.com/platinummonkey/critique/pkg/mail"
	"github.com/platinummonkey/critique/pkg/middleware"
	"github.com/platinummonkey/critique/pkg/observability"
	"github.com/platinummonkey/critique/pkg/reviews"
	"github.com/platinummonkey/critique/pkg/storage"
	"github.com/platinummonkey/critique/pkg/storage/postgres"
	"github.com/platinummonkey/critique/pkg/users"
)

const dbMonitorInterval = 30 * time.Second

func newServeCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Long: `Run the HTTP API together with a separate health and metrics server.

The process shuts down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)

	providers, err := observability.InitOTel(ctx, cfg.OTelConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	cm, err := postgres.Open(cfg.StorageConfig(), logger)
	if err != nil {
		return err
	}

	if cfg.Database.AutoMigrate {
		if err := postgres.RunMigrations(ctx, cm.Primary(), logger); err != nil {
			cm.Close()
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = storage.NewRedisClient(cfg.StorageConfig())
		if err != nil {
			cm.Close()
			return err
		}
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	userStore := users.NewPostgresStore(cm)

	services := api.Services{
		Catalog: catalog.NewService(catalog.NewPostgresStore(cm)),
		Reviews: reviews.NewService(reviews.NewPostgresStore(cm), reviews.WithMetrics(metrics)),
		Users:   users.NewService(userStore),
		Enrollment: enrollment.NewService(userStore,
			auth.NewCodeGenerator(cfg.Auth.ConfirmationCodeTTL), tokens, newMailer(cfg, logger), logger,
			enrollment.WithMetrics(metrics)),
	}

	opts := api.Options{
		Logger:         logger,
		Metrics:        metrics,
		AuditLogger:    audit.NewLogrusLogger(logger.Logrus()),
		AuditAll:       cfg.Observability.AuditAllRequests,
		Tokens:         tokens,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		ServiceName:    cfg.Observability.OTelServiceName,
	}
	if cfg.RateLimit.Enabled {
		opts.RateLimitConfig = rateLimitConfig(cfg)
		opts.RateLimiter = newLimiter(cfg, opts.RateLimitConfig, redisClient)
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewServer(services, opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	metricsRegistry := registry
	if !cfg.Observability.MetricsEnabled {
		metricsRegistry = nil
	}
	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           api.NewHealthHandler(observability.NewHealthChecker(cm.Primary().DB, redisClient), metricsRegistry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cm.StartMonitor(runCtx, dbMonitorInterval, metrics.RecordDBStats)

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return redisClient.Close()
		})
	}
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		return cm.Close()
	})

	serverErr := make(chan error, 2)
	for _, srv := range []*http.Server{apiServer, healthServer} {
		go func(srv *http.Server) {
			defer observability.RecoverPanic(logger, "http server "+srv.Addr)
			logger.Infof("Listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- fmt.Errorf("server %s failed: %w", srv.Addr, err)
				cancel()
			}
		}(srv)
	}

	shutdownErr := shutdown.WaitForSignal(runCtx)

	select {
	case err := <-serverErr:
		return errors.Join(err, shutdownErr)
	default:
		return shutdownErr
	}
}

func newMailer(cfg *config.Config, logger *observability.Logger) mail.Mailer {
	if cfg.Mail.Backend == config.MailBackendSMTP {
		return mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.Mail.SMTPHost,
			Port:     cfg.Mail.SMTPPort,
			Username: cfg.Mail.SMTPUsername,
			Password: cfg.Mail.SMTPPassword,
			From:     cfg.Mail.From,
		})
	}
	return mail.NewLogMailer(logger)
}

func rateLimitConfig(cfg *config.Config) *middleware.RateLimitConfig {
	return &middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
		WindowDuration:    cfg.RateLimit.Window,
		BurstSize:         cfg.RateLimit.Burst,
		MaxKeys:           cfg.RateLimit.MaxKeys,
		TrustForwardedFor: cfg.RateLimit.TrustProxy,
	}
}

// newLimiter shares limits across replicas through Redis when configured
func newLimiter(cfg *config.Config, rl *middleware.RateLimitConfig, redisClient *redis.Client) middleware.Limiter {
	if cfg.RateLimit.Backend == config.RateLimitBackendRedis && redisClient != nil {
		return middleware.NewDistributedRateLimiter(redisClient, rl, "critique:ratelimit")
	}
	return middleware.NewRateLimiter(rl)
}
