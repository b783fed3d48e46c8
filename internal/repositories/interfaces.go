package repositories

import (
	"context"
	"time"

	"github.com/flowershop/admin-api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Flowers() FlowerRepository
	Categories() CategoryRepository
	FlowerCategories() FlowerCategoryRepository
	Orders() OrderRepository
	OrderDetails() OrderDetailRepository
	Feedback() FeedbackRepository
	Users() UserRepository
	Accounts() AccountRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork groups repository operations in one transaction. Repositories called with the
// ctx passed to fn participate in that transaction.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SoftDelete carries the audit stamp written when a record is soft deleted.
type SoftDelete struct {
	Actor string
	At    time.Time
}

// FlowerRepository persists flowers. Finders only return non-deleted flowers.
type FlowerRepository interface {
	Insert(ctx context.Context, flower domain.Flower) (domain.Flower, error)
	Update(ctx context.Context, flower domain.Flower) error
	FindByID(ctx context.Context, flowerID string) (domain.Flower, error)
	// NameTaken reports whether a non-deleted flower other than excludeID uses name.
	NameTaken(ctx context.Context, name, excludeID string) (bool, error)
	SoftDelete(ctx context.Context, flowerID string, stamp SoftDelete) error
	// SoftDeleteMany ignores unknown ids and returns the number of flowers marked deleted.
	SoftDeleteMany(ctx context.Context, flowerIDs []string, stamp SoftDelete) (int64, error)
	List(ctx context.Context, query domain.ListQuery) (domain.Page[domain.FlowerListItem], error)
	// FindByIDs returns the non-deleted flowers among ids in the order of ids.
	FindByIDs(ctx context.Context, flowerIDs []string) ([]domain.Flower, error)
	Sample(ctx context.Context, size int) ([]domain.Flower, error)
	Count(ctx context.Context) (int64, error)
	// ListByCategoryNames returns non-deleted flowers linked to any non-deleted category named in names.
	ListByCategoryNames(ctx context.Context, names []string) ([]domain.Flower, error)
}

// CategoryRepository persists categories. Finders only return non-deleted categories.
type CategoryRepository interface {
	Insert(ctx context.Context, category domain.Category) (domain.Category, error)
	Update(ctx context.Context, category domain.Category) error
	FindByID(ctx context.Context, categoryID string) (domain.Category, error)
	FindByIDs(ctx context.Context, categoryIDs []string) ([]domain.Category, error)
	NameTaken(ctx context.Context, name, excludeID string) (bool, error)
	SoftDelete(ctx context.Context, categoryID string, stamp SoftDelete) error
	SoftDeleteMany(ctx context.Context, categoryIDs []string, stamp SoftDelete) (int64, error)
	List(ctx context.Context, query domain.ListQuery) (domain.Page[domain.Category], error)
	// ListForFlower returns the non-deleted categories linked to flowerID.
	ListForFlower(ctx context.Context, flowerID string) ([]domain.CategoryRef, error)
}

// FlowerCategoryRepository maintains flower to category links.
type FlowerCategoryRepository interface {
	// Replace deletes every link of flowerID and inserts one per category id.
	Replace(ctx context.Context, flowerID string, categoryIDs []string) error
	CategoryIDs(ctx context.Context, flowerID string) ([]string, error)
}

// OrderRepository reads orders and persists recomputed totals.
type OrderRepository interface {
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	// FindByIDs returns the non-deleted orders among ids.
	FindByIDs(ctx context.Context, orderIDs []string) ([]domain.Order, error)
	// IDsByStatus returns ids of non-deleted orders whose status is one of statuses.
	IDsByStatus(ctx context.Context, statuses []domain.OrderStatus) ([]string, error)
	UpdateTotal(ctx context.Context, orderID string, total float64, actor string, at time.Time) error
}

// OrderDetailRepository reads and reprices order lines.
type OrderDetailRepository interface {
	ListByOrder(ctx context.Context, orderID string) ([]domain.OrderDetail, error)
	// Reprice sets unitPrice and discount on the lines of flowerID that belong to orderIDs and
	// returns the distinct ids of orders that had such a line.
	Reprice(ctx context.Context, flowerID string, orderIDs []string, unitPrice, discount float64) ([]string, error)
	// SalesByFlower sums numberOfFlowers per flower across orderIDs, highest first, ties by
	// flower id ascending. limit <= 0 returns every flower.
	SalesByFlower(ctx context.Context, orderIDs []string, limit int) ([]domain.FlowerSales, error)
}

// FeedbackRepository reads comments left on order lines.
type FeedbackRepository interface {
	ListByFlower(ctx context.Context, flowerID string) ([]domain.Feedback, error)
}

// UserRepository persists users. FindByID only returns non-deleted users.
type UserRepository interface {
	Insert(ctx context.Context, user domain.User) (domain.User, error)
	Update(ctx context.Context, user domain.User) (domain.User, error)
	FindByID(ctx context.Context, userID string) (domain.User, error)
	// EmailTaken matches the lowercase email against every user other than excludeID.
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	SoftDelete(ctx context.Context, userID string, stamp SoftDelete) error
}

// AccountRepository persists accounts keyed by their owning user.
type AccountRepository interface {
	Insert(ctx context.Context, account domain.Account) (domain.Account, error)
	FindByUserID(ctx context.Context, userID string) (domain.Account, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	SetActive(ctx context.Context, userID string, active bool, actor string, at time.Time) (domain.Account, error)
	SetPassword(ctx context.Context, userID, passwordHash, actor string, at time.Time) error
	SoftDeleteByUser(ctx context.Context, userID string, stamp SoftDelete) error
	List(ctx context.Context, query domain.ListQuery) (domain.Page[domain.AccountView], error)
	View(ctx context.Context, userID string) (domain.AccountView, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.HealthReport, error)
}
