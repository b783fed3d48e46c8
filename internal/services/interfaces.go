package services

import (
	"context"

	"github.com/flowershop/admin-api/internal/domain"
	"github.com/flowershop/admin-api/internal/platform/mail"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Flower               = domain.Flower
	FlowerWithCategories = domain.FlowerWithCategories
	FlowerDetail         = domain.FlowerDetail
	FlowerListItem       = domain.FlowerListItem
	FlowerFeedItem       = domain.FlowerFeedItem
	Feedback             = domain.Feedback
	Category             = domain.Category
	CategoryRef          = domain.CategoryRef
	Order                = domain.Order
	User                 = domain.User
	Account              = domain.Account
	AccountView          = domain.AccountView
	Asset                = domain.Asset
	RawAsset             = domain.RawAsset
	AssetInput           = domain.AssetInput
	ListQuery            = domain.ListQuery
	HealthReport         = domain.HealthReport
)

// AssetStore uploads and removes binary media.
type AssetStore interface {
	Upload(ctx context.Context, raw RawAsset) (Asset, error)
	DeleteByPublicID(ctx context.Context, publicID string) error
}

// CredentialMailer renders the emails that carry generated passwords.
type CredentialMailer interface {
	AccountCreated(to, username, password string) (mail.Message, error)
	PasswordReset(to, password string) (mail.Message, error)
}

// FlowerService keeps flowers, their category links, their media and the lines of
// cancelled orders consistent with each other.
type FlowerService interface {
	CreateFlower(ctx context.Context, cmd CreateFlowerCommand) (FlowerWithCategories, error)
	UpdateFlower(ctx context.Context, cmd UpdateFlowerCommand) (FlowerWithCategories, error)
	DeleteFlower(ctx context.Context, cmd DeleteFlowerCommand) error
	DeleteFlowers(ctx context.Context, cmd DeleteFlowersCommand) error
	ListFlowers(ctx context.Context, query ListQuery) (domain.Page[FlowerListItem], error)
	GetFlowerDetail(ctx context.Context, flowerID string) (FlowerDetail, error)
	GetFlowerFeedback(ctx context.Context, flowerID string) ([]Feedback, error)
}

// CategoryService manages flower categories.
type CategoryService interface {
	ListCategories(ctx context.Context, query ListQuery) (domain.Page[Category], error)
	GetCategory(ctx context.Context, categoryID string) (Category, error)
	CreateCategory(ctx context.Context, cmd CategoryCommand) (Category, error)
	UpdateCategory(ctx context.Context, cmd CategoryCommand) (Category, error)
	DeleteCategory(ctx context.Context, cmd DeleteCategoryCommand) error
	DeleteCategories(ctx context.Context, cmd DeleteCategoriesCommand) error
}

// OrderAggregationService computes the storefront flower feeds and order totals.
type OrderAggregationService interface {
	BestSellers(ctx context.Context, limit int) ([]FlowerFeedItem, error)
	Suggested(ctx context.Context, limit int) ([]FlowerFeedItem, error)
	Decoration(ctx context.Context, limit int) ([]FlowerFeedItem, error)
	Gifts(ctx context.Context, limit int) ([]FlowerFeedItem, error)
	RecalculateOrderTotal(ctx context.Context, cmd RecalculateOrderCommand) (Order, error)
}

// AccountService pairs users with login accounts across their lifecycle.
type AccountService interface {
	ListAccounts(ctx context.Context, query ListQuery) (domain.Page[AccountView], error)
	GetAccount(ctx context.Context, userID string) (AccountView, error)
	CreateAccount(ctx context.Context, cmd CreateAccountCommand) (User, error)
	UpdateAccount(ctx context.Context, cmd UpdateAccountCommand) (User, error)
	SetAccountActive(ctx context.Context, cmd SetAccountActiveCommand) (Account, error)
	DeleteAccount(ctx context.Context, cmd DeleteAccountCommand) error
	ResetPassword(ctx context.Context, cmd ResetPasswordCommand) error
}

// SystemService exposes operational metadata.
type SystemService interface {
	HealthReport(ctx context.Context) (HealthReport, error)
}

// CreateFlowerCommand carries a new flower. Media entries must be data URLs.
type CreateFlowerCommand struct {
	Name         string       `json:"name" validate:"required,flowername"`
	Habitat      string       `json:"habitat"`
	GrowthTime   string       `json:"growthTime"`
	Care         string       `json:"care"`
	Description  string       `json:"description"`
	UnitPrice    float64      `json:"unitPrice" validate:"gte=0"`
	Discount     float64      `json:"discount" validate:"gte=0,lte=100"`
	Quantity     int          `json:"quantity" validate:"gte=0"`
	SoldQuantity int          `json:"soldQuantity" validate:"gte=0,ltefield=Quantity"`
	Status       string       `json:"status"`
	CategoryIDs  []string     `json:"category" validate:"unique,dive,objectid"`
	Media        []AssetInput `json:"-"`
	ActorID      string       `json:"-"`
}

// UpdateFlowerCommand replaces every editable field of a flower. Media entries carrying a
// PublicID keep an existing asset; entries with a DataURL are uploaded.
type UpdateFlowerCommand struct {
	FlowerID string `json:"-"`
	CreateFlowerCommand
}

// DeleteFlowerCommand soft deletes one flower.
type DeleteFlowerCommand struct {
	FlowerID string
	ActorID  string
}

// DeleteFlowersCommand soft deletes several flowers. Unknown ids are ignored.
type DeleteFlowersCommand struct {
	FlowerIDs []string `json:"ids" validate:"required,min=1,unique,dive,objectid"`
	ActorID   string   `json:"-"`
}

// CategoryCommand creates a category, or updates CategoryID when it is set.
type CategoryCommand struct {
	CategoryID   string `json:"-"`
	CategoryName string `json:"categoryName" validate:"required,categoryname"`
	Description  string `json:"description"`
	ActorID      string `json:"-"`
}

// DeleteCategoryCommand soft deletes one category.
type DeleteCategoryCommand struct {
	CategoryID string
	ActorID    string
}

// DeleteCategoriesCommand soft deletes several categories.
type DeleteCategoriesCommand struct {
	CategoryIDs []string `json:"ids" validate:"required,min=1,unique,dive,objectid"`
	ActorID     string   `json:"-"`
}

// RecalculateOrderCommand recomputes and stores one order's total.
type RecalculateOrderCommand struct {
	OrderID string
	ActorID string
}

// CreateAccountCommand registers a user and generates its account credentials.
type CreateAccountCommand struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Role        string `json:"role" validate:"required"`
	Avatar      string `json:"avatar"`
	CitizenID   string `json:"citizenId"`
	PhoneNumber string `json:"phoneNumber"`
	IsActived   bool   `json:"isActived"`
	ActorID     string `json:"-"`
}

// UpdateAccountCommand replaces the profile fields of a user.
type UpdateAccountCommand struct {
	UserID      string `json:"-"`
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Role        string `json:"role" validate:"required"`
	Avatar      string `json:"avatar"`
	CitizenID   string `json:"citizenId"`
	PhoneNumber string `json:"phoneNumber"`
	ActorID     string `json:"-"`
}

// SetAccountActiveCommand locks (IsActived false) or unlocks an account.
type SetAccountActiveCommand struct {
	UserID    string
	IsActived bool
	ActorID   string
}

// DeleteAccountCommand soft deletes a user and its account.
type DeleteAccountCommand struct {
	UserID  string
	ActorID string
}

// ResetPasswordCommand generates and mails a new password.
type ResetPasswordCommand struct {
	UserID  string
	ActorID string
}
