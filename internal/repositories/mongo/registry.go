// Package mongo implements the repositories on MongoDB. Every method uses the ctx it is
// given, so calls made inside Registry.RunInTx join the open session transaction.
package mongo

import (
	"context"
	"errors"

	pmongo "github.com/flowershop/admin-api/internal/platform/mongodb"
	"github.com/flowershop/admin-api/internal/repositories"
)

// RegistryOption customises the Registry.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	extraChecks []repositories.DependencyCheck
}

// WithHealthChecks adds readiness probes reported next to the Mongo ping.
func WithHealthChecks(checks ...repositories.DependencyCheck) RegistryOption {
	return func(cfg *registryConfig) {
		cfg.extraChecks = append(cfg.extraChecks, checks...)
	}
}

// Registry implements repositories.Registry on one Mongo database.
type Registry struct {
	provider *pmongo.Provider

	flowers          *FlowerRepository
	categories       *CategoryRepository
	flowerCategories *FlowerCategoryRepository
	orders           *OrderRepository
	orderDetails     *OrderDetailRepository
	feedback         *FeedbackRepository
	users            *UserRepository
	accounts         *AccountRepository
	health           repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry connects through provider and builds every repository.
func NewRegistry(ctx context.Context, provider *pmongo.Provider, opts ...RegistryOption) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("mongo registry: provider is required")
	}
	var cfg registryConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	db, err := provider.Database(ctx)
	if err != nil {
		return nil, err
	}

	checks := append([]repositories.DependencyCheck{{Name: "mongo", Check: provider.Ping}}, cfg.extraChecks...)
	health, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:         provider,
		flowers:          NewFlowerRepository(db),
		categories:       NewCategoryRepository(db),
		flowerCategories: NewFlowerCategoryRepository(db),
		orders:           NewOrderRepository(db),
		orderDetails:     NewOrderDetailRepository(db),
		feedback:         NewFeedbackRepository(db),
		users:            NewUserRepository(db),
		accounts:         NewAccountRepository(db),
		health:           health,
	}, nil
}

func (r *Registry) Flowers() repositories.FlowerRepository      { return r.flowers }
func (r *Registry) Categories() repositories.CategoryRepository { return r.categories }
func (r *Registry) FlowerCategories() repositories.FlowerCategoryRepository {
	return r.flowerCategories
}
func (r *Registry) Orders() repositories.OrderRepository             { return r.orders }
func (r *Registry) OrderDetails() repositories.OrderDetailRepository { return r.orderDetails }
func (r *Registry) Feedback() repositories.FeedbackRepository        { return r.feedback }
func (r *Registry) Users() repositories.UserRepository               { return r.users }
func (r *Registry) Accounts() repositories.AccountRepository         { return r.accounts }
func (r *Registry) Health() repositories.HealthRepository            { return r.health }

// RunInTx implements repositories.UnitOfWork.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.provider.RunInTx(ctx, fn)
}

// Close disconnects the underlying client.
func (r *Registry) Close(ctx context.Context) error {
	return r.provider.Close(ctx)
}
