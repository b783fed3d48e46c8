package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flowershop/admin-api/internal/di"
	"github.com/flowershop/admin-api/internal/platform/config"
	"github.com/flowershop/admin-api/internal/platform/mail"
	pmongo "github.com/flowershop/admin-api/internal/platform/mongodb"
	"github.com/flowershop/admin-api/internal/platform/observability"
	"github.com/flowershop/admin-api/internal/platform/secrets"
	"github.com/flowershop/admin-api/internal/platform/validation"
	mongorepo "github.com/flowershop/admin-api/internal/repositories/mongo"
	"github.com/flowershop/admin-api/internal/services"
)

// runtime holds the connections one command invocation needs.
type runtime struct {
	cfg      config.Config
	logger   *zap.Logger
	provider *pmongo.Provider
	registry *mongorepo.Registry
	closers  []func()
}

func openRuntime(ctx context.Context) (*runtime, error) {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := observability.NewLoggerWithLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	logger = logger.Named("flowershopctl")

	env, err := config.EnvironmentValues(config.WithEnvFile(envFile))
	if err != nil {
		return nil, err
	}
	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(".secrets.local"),
	}
	if project := strings.TrimSpace(env["API_GCP_PROJECT_ID"]); project != "" {
		opts = append(opts, secrets.WithDefaultProject(project))
	}
	fetcher, err := secrets.NewFetcher(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("secret fetcher: %w", err)
	}

	rt := &runtime{logger: logger}
	rt.closers = append(rt.closers, func() { _ = fetcher.Close() })

	cfg, err := config.Load(ctx,
		config.WithEnvFile(envFile),
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets("Mongo.URI"),
	)
	if err != nil {
		rt.close()
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("missing required secrets: %s", strings.Join(missing.Names(), ", "))
		}
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	rt.cfg = cfg

	rt.provider = pmongo.NewProvider(cfg.Mongo)
	rt.closers = append(rt.closers, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.provider.Close(closeCtx)
	})
	registry, err := mongorepo.NewRegistry(ctx, rt.provider)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("mongo registry: %w", err)
	}
	rt.registry = registry
	return rt, nil
}

// close releases resources in reverse acquisition order.
func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	_ = rt.logger.Sync()
}

func (rt *runtime) events() func(context.Context, string, map[string]any) {
	return observability.EventLogger(rt.logger.Named("services"))
}

func (rt *runtime) categoryService() (services.CategoryService, error) {
	return services.NewCategoryService(services.CategoryServiceDeps{
		Categories: rt.registry.Categories(),
		UnitOfWork: rt.registry,
		Validator:  validation.New(),
		Clock:      time.Now,
		Logger:     rt.events(),
	})
}

func (rt *runtime) orderService() (services.OrderAggregationService, error) {
	return services.NewOrderAggregationService(services.OrderAggregationServiceDeps{
		Flowers:      rt.registry.Flowers(),
		Orders:       rt.registry.Orders(),
		OrderDetails: rt.registry.OrderDetails(),
		UnitOfWork:   rt.registry,
		Clock:        time.Now,
		Logger:       rt.events(),
	})
}

func (rt *runtime) accountService(ctx context.Context) (services.AccountService, error) {
	sender, release, err := di.NewMailSender(ctx, rt.cfg)
	if err != nil {
		return nil, fmt.Errorf("mail sender: %w", err)
	}
	rt.closers = append(rt.closers, release)
	composer, err := mail.NewComposer(rt.cfg.Mail.LoginPageURL)
	if err != nil {
		return nil, fmt.Errorf("mail composer: %w", err)
	}
	return services.NewAccountService(services.AccountServiceDeps{
		Users:          rt.registry.Users(),
		Accounts:       rt.registry.Accounts(),
		UnitOfWork:     rt.registry,
		Mailer:         composer,
		Sender:         sender,
		Validator:      validation.New(),
		PasswordLength: rt.cfg.Security.PasswordLength,
		BcryptCost:     rt.cfg.Security.BcryptCost,
		Clock:          time.Now,
		Logger:         rt.events(),
	})
}

// withRuntime opens a runtime under the --timeout deadline and runs fn with it.
func withRuntime(parent context.Context, fn func(ctx context.Context, rt *runtime) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()
	return fn(ctx, rt)
}
