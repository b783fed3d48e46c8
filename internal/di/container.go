package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/flowershop/admin-api/internal/platform/config"
	"github.com/flowershop/admin-api/internal/platform/mail"
	"github.com/flowershop/admin-api/internal/platform/observability"
	"github.com/flowershop/admin-api/internal/platform/validation"
	"github.com/flowershop/admin-api/internal/repositories"
	"github.com/flowershop/admin-api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Flowers    services.FlowerService
	Categories services.CategoryService
	Orders     services.OrderAggregationService
	Accounts   services.AccountService
	System     services.SystemService
}

// Infrastructure carries the external collaborators that are not repositories.
type Infrastructure struct {
	Assets services.AssetStore
	Mail   mail.Sender
	Mailer services.CredentialMailer
	Logger *zap.Logger
	Build  services.BuildInfo
	Clock  func() time.Time
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, infra Infrastructure) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(ctx, reg, cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases the repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, reg repositories.Registry, cfg config.Config, infra Infrastructure) (Services, error) {
	var svc Services

	clock := infra.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := infra.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	events := observability.EventLogger(logger.Named("services"))
	validator := validation.New()

	if infra.Assets == nil {
		return Services{}, errors.New("asset store is required")
	}
	flowerSvc, err := services.NewFlowerService(services.FlowerServiceDeps{
		Flowers:          reg.Flowers(),
		Categories:       reg.Categories(),
		FlowerCategories: reg.FlowerCategories(),
		Orders:           reg.Orders(),
		OrderDetails:     reg.OrderDetails(),
		Feedback:         reg.Feedback(),
		Assets:           infra.Assets,
		UnitOfWork:       reg,
		Validator:        validator,
		Clock:            clock,
		Logger:           events,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build flower service: %w", err)
	}
	svc.Flowers = flowerSvc

	categorySvc, err := services.NewCategoryService(services.CategoryServiceDeps{
		Categories: reg.Categories(),
		UnitOfWork: reg,
		Validator:  validator,
		Clock:      clock,
		Logger:     events,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build category service: %w", err)
	}
	svc.Categories = categorySvc

	orderSvc, err := services.NewOrderAggregationService(services.OrderAggregationServiceDeps{
		Flowers:      reg.Flowers(),
		Orders:       reg.Orders(),
		OrderDetails: reg.OrderDetails(),
		UnitOfWork:   reg,
		Clock:        clock,
		Logger:       events,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order aggregation service: %w", err)
	}
	svc.Orders = orderSvc

	mailer := infra.Mailer
	if mailer == nil {
		composer, err := mail.NewComposer(cfg.Mail.LoginPageURL)
		if err != nil {
			return Services{}, fmt.Errorf("build mail composer: %w", err)
		}
		mailer = composer
	}
	accountSvc, err := services.NewAccountService(services.AccountServiceDeps{
		Users:          reg.Users(),
		Accounts:       reg.Accounts(),
		UnitOfWork:     reg,
		Mailer:         mailer,
		Sender:         infra.Mail,
		Validator:      validator,
		PasswordLength: cfg.Security.PasswordLength,
		BcryptCost:     cfg.Security.BcryptCost,
		Clock:          clock,
		Logger:         events,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build account service: %w", err)
	}
	svc.Accounts = accountSvc

	if healthRepo := reg.Health(); healthRepo != nil {
		build := infra.Build
		if build.Environment == "" {
			build.Environment = cfg.Security.Environment
		}
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            clock,
			Build:            build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}
