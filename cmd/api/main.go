package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/kitewire/messaging-platform/cmd/awsconfig"
	"github.com/kitewire/messaging-platform/internal/api/router"
	appconfig "github.com/kitewire/messaging-platform/internal/config"
	"github.com/kitewire/messaging-platform/internal/http/handlers"
	"github.com/kitewire/messaging-platform/internal/messaging"
	"github.com/kitewire/messaging-platform/internal/observability/metrics"
	"github.com/kitewire/messaging-platform/internal/tenants"
	"github.com/kitewire/messaging-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting messaging-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	awsCfg, err := awsconfig.Load(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	dynamoClient := dynamodb.NewFromConfig(awsCfg)
	store := messaging.NewDynamoStore(dynamoClient, cfg.MessagesTable, logger)

	resolver := messaging.NewResolver(messaging.CredentialSet{
		AccountID:    cfg.TwilioAccountSID,
		AuthSecret:   cfg.TwilioAuthToken,
		SenderNumber: cfg.TwilioFromNumber,
	})
	if !resolver.PlatformConfigured() {
		logger.Warn("platform provider credentials not configured; tenants without overrides cannot send")
	}

	tenantSource := buildTenantSource(cfg, logger)

	provider := messaging.NewTwilioProvider(cfg.PublicBaseURL, logger)
	if cfg.PublicBaseURL == "" {
		logger.Warn("PUBLIC_BASE_URL not set; delivery status callbacks will not be registered")
	}
	messagingMetrics := metrics.NewMessagingMetrics(nil)
	service := messaging.NewService(resolver, tenantSource, provider, store, messagingMetrics, logger)

	r := router.New(&router.Config{
		Logger:           logger,
		MessagesHandler:  handlers.NewMessagesHandler(service, logger),
		ProviderWebhooks: handlers.NewProviderWebhookHandler(cfg.TwilioWebhookSecret, service, messagingMetrics, logger),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited")
}

// buildTenantSource wires the per-tenant credential override lookup: pgx
// repository when DATABASE_URL is set, fronted by a Redis cache when one is
// reachable. Returning nil leaves the service in platform-only mode.
func buildTenantSource(cfg *appconfig.Config, logger *logging.Logger) messaging.TenantConfigSource {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set; tenant provider overrides disabled")
		return nil
	}
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	repo := tenants.NewRepository(pool)

	if cfg.RedisAddr == "" {
		return repo
	}
	opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available; tenant config cache disabled", "error", err)
		return repo
	}
	return tenants.NewCachedRepository(repo, client, cfg.TenantConfigCacheTTL, logger)
}
