package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	cloudstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/flowershop/admin-api/internal/di"
	"github.com/flowershop/admin-api/internal/handlers"
	"github.com/flowershop/admin-api/internal/platform/config"
	"github.com/flowershop/admin-api/internal/platform/idempotency"
	pmongo "github.com/flowershop/admin-api/internal/platform/mongodb"
	"github.com/flowershop/admin-api/internal/platform/observability"
	"github.com/flowershop/admin-api/internal/platform/secrets"
	platformstorage "github.com/flowershop/admin-api/internal/platform/storage"
	"github.com/flowershop/admin-api/internal/repositories"
	mongorepo "github.com/flowershop/admin-api/internal/repositories/mongo"
	"github.com/flowershop/admin-api/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecretNames(envValues)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.Names()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(envValues, cfg, startedAt)

	storageClient, err := cloudstorage.NewClient(ctx, di.GCPClientOptions(cfg)...)
	if err != nil {
		logger.Fatal("failed to initialise storage client", zap.Error(err))
	}
	defer func() {
		if err := storageClient.Close(); err != nil {
			logger.Warn("storage close error", zap.Error(err))
		}
	}()
	assetStore, err := platformstorage.NewAssetStore(storageClient, cfg.Storage)
	if err != nil {
		logger.Fatal("failed to initialise asset store", zap.Error(err))
	}

	mailSender, closeMail, err := di.NewMailSender(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialise mail sender", zap.Error(err))
	}
	defer closeMail()

	idemStore, closeIdem, err := di.NewIdempotencyStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialise idempotency store", zap.Error(err))
	}
	defer closeIdem()

	mongoProvider := pmongo.NewProvider(cfg.Mongo)
	registry, err := mongorepo.NewRegistry(ctx, mongoProvider,
		mongorepo.WithHealthChecks(repositories.DependencyCheck{
			Name: "storage",
			Check: func(ctx context.Context) error {
				_, err := storageClient.Bucket(cfg.Storage.AssetsBucket).Attrs(ctx)
				return err
			},
		}),
	)
	if err != nil {
		logger.Fatal("failed to initialise mongo repositories", zap.Error(err))
	}

	container, err := di.NewContainer(ctx, cfg, registry, di.Infrastructure{
		Assets: assetStore,
		Mail:   mailSender,
		Logger: logger,
		Build:  buildInfo,
	})
	if err != nil {
		logger.Fatal("failed to build container", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("mongo close error", zap.Error(err))
		}
	}()

	idempotencyMiddleware := idempotency.Middleware(
		idemStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithMethods(http.MethodPost),
		idempotency.WithLogger(logger.Named("idempotency")),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	startIdempotencyCleanup(cleanupCtx, &cleanupWG, idemStore, cfg.Idempotency, logger.Named("idempotency"))

	svc := container.Services
	router := handlers.NewRouter(
		handlers.WithRequestTimeout(cfg.Server.RequestTimeout),
		handlers.WithMiddlewares(
			observability.TraceMiddleware(),
			observability.InjectLoggerMiddleware(logger),
			handlers.ActorMiddleware(cfg.Security.ActorHeader),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(logger),
			idempotencyMiddleware,
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(
			handlers.WithHealthSystemService(svc.System),
			handlers.WithHealthBuildInfo(buildInfo),
		)),
		handlers.WithFlowerRoutes(handlers.NewFlowerHandlers(svc.Flowers, svc.Orders).Routes),
		handlers.WithCategoryRoutes(handlers.NewCategoryHandlers(svc.Categories).Routes),
		handlers.WithAccountRoutes(handlers.NewAccountHandlers(svc.Accounts,
			handlers.WithPasswordResetLimit(cfg.Security.ResetLimit, cfg.Security.ResetWindow, time.Now),
		).Routes),
		handlers.WithOrderRoutes(handlers.NewOrderHandlers(svc.Orders).Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("flowershop admin api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildInfoFromEnv(env map[string]string, cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(env["API_BUILD_VERSION"])
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(env["API_BUILD_COMMIT_SHA"])
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		return strings.TrimSpace(env[key])
	}

	defaultProject := lookup("API_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("API_GCP_PROJECT_ID")
	}
	fallbackPath := lookup("API_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if credentialsFile := lookup("API_GCP_CREDENTIALS_FILE"); credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}
	return secrets.NewFetcher(ctx, opts...)
}

// requiredSecretNames lists the secrets that must resolve for the selected drivers.
func requiredSecretNames(env map[string]string) []string {
	required := []string{"Mongo.URI"}
	driver := strings.ToLower(strings.TrimSpace(env["API_MAIL_DRIVER"]))
	if (driver == "" || driver == config.MailDriverSMTP) && strings.TrimSpace(env["API_MAIL_SMTP_USERNAME"]) != "" {
		required = append(required, "Mail.SMTP.Password")
	}
	return required
}

func startIdempotencyCleanup(ctx context.Context, wg *sync.WaitGroup, store idempotency.Store, cfg config.IdempotencyConfig, logger *zap.Logger) {
	if cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.CleanupInterval)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				runCtx, cancel := context.WithTimeout(ctx, time.Minute)
				removed, err := store.CleanupExpired(runCtx, time.Now().UTC(), cfg.CleanupBatchSize)
				cancel()
				if err != nil {
					logger.Error("idempotency cleanup error", zap.Error(err))
					continue
				}
				if removed > 0 {
					logger.Info("idempotency cleanup removed records", zap.Int("count", removed))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
