package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flowershop/admin-api/internal/domain"
	"github.com/flowershop/admin-api/internal/platform/validation"
	"github.com/flowershop/admin-api/internal/repositories"
)

const (
	msgCategoryNameExists = "Category name already exists!"
	msgCategoryNotFound   = "Category not found!"
)

var (
	// ErrCategoryInvalidInput signals the caller provided invalid data.
	ErrCategoryInvalidInput = errors.New("category: invalid input")
	// ErrCategoryNotFound indicates the category is missing or soft deleted.
	ErrCategoryNotFound = errors.New("category: not found")
	// ErrCategoryConflict indicates another live category already uses the name.
	ErrCategoryConflict = errors.New("category: conflict")
	// ErrCategoryUnavailable indicates the store failed.
	ErrCategoryUnavailable = errors.New("category: unavailable")
)

var categoryRepoErrors = repoErrorMapping{
	notFound:    ErrCategoryNotFound,
	conflict:    ErrCategoryConflict,
	unavailable: ErrCategoryUnavailable,
}

// CategoryServiceDeps bundles collaborators required to construct the category service.
type CategoryServiceDeps struct {
	Categories repositories.CategoryRepository
	UnitOfWork repositories.UnitOfWork
	Validator  *validation.Validator
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type categoryService struct {
	categories repositories.CategoryRepository
	unitOfWork repositories.UnitOfWork
	validator  *validation.Validator
	clock      func() time.Time
	logger     logFunc
}

var _ CategoryService = (*categoryService)(nil)

// NewCategoryService wires dependencies into a concrete CategoryService implementation.
func NewCategoryService(deps CategoryServiceDeps) (CategoryService, error) {
	if deps.Categories == nil {
		return nil, errors.New("category service: category repository is required")
	}
	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}
	validator := deps.Validator
	if validator == nil {
		validator = validation.New()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &categoryService{
		categories: deps.Categories,
		unitOfWork: unit,
		validator:  validator,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *categoryService) ListCategories(ctx context.Context, query ListQuery) (domain.Page[Category], error) {
	query.Keyword = strings.TrimSpace(query.Keyword)
	page, err := s.categories.List(ctx, query)
	if err != nil {
		return domain.Page[Category]{}, categoryRepoErrors.translate(err, "")
	}
	return page, nil
}

func (s *categoryService) GetCategory(ctx context.Context, categoryID string) (Category, error) {
	category, err := s.categories.FindByID(ctx, strings.TrimSpace(categoryID))
	if err != nil {
		return Category{}, categoryRepoErrors.translate(err, msgCategoryNotFound)
	}
	return category, nil
}

func (s *categoryService) CreateCategory(ctx context.Context, cmd CategoryCommand) (Category, error) {
	cmd.CategoryName = strings.TrimSpace(cmd.CategoryName)
	cmd.Description = strings.TrimSpace(cmd.Description)
	if err := validateInput(s.validator, ErrCategoryInvalidInput, cmd); err != nil {
		return Category{}, err
	}
	actor := actorOrSystem(ctx, cmd.ActorID)
	var created Category
	err := s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureNameFree(txCtx, cmd.CategoryName, ""); err != nil {
			return err
		}
		inserted, err := s.categories.Insert(txCtx, Category{
			CategoryName: cmd.CategoryName,
			Description:  cmd.Description,
			Audit:        domain.Audit{CreatedAt: s.clock(), CreatedBy: actor},
		})
		if err != nil {
			return categoryRepoErrors.translate(err, "")
		}
		created = inserted
		return nil
	})
	if err != nil {
		return Category{}, err
	}
	s.logger(ctx, "category.created", map[string]any{"categoryId": created.ID, "actor": actor})
	return created, nil
}

func (s *categoryService) UpdateCategory(ctx context.Context, cmd CategoryCommand) (Category, error) {
	cmd.CategoryID = strings.TrimSpace(cmd.CategoryID)
	cmd.CategoryName = strings.TrimSpace(cmd.CategoryName)
	cmd.Description = strings.TrimSpace(cmd.Description)
	if cmd.CategoryID == "" {
		return Category{}, fmt.Errorf("%w: category id is required", ErrCategoryInvalidInput)
	}
	if err := validateInput(s.validator, ErrCategoryInvalidInput, cmd); err != nil {
		return Category{}, err
	}
	actor := actorOrSystem(ctx, cmd.ActorID)
	now := s.clock()
	var updated Category
	err := s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.categories.FindByID(txCtx, cmd.CategoryID)
		if err != nil {
			return categoryRepoErrors.translate(err, msgCategoryNotFound)
		}
		if err := s.ensureNameFree(txCtx, cmd.CategoryName, current.ID); err != nil {
			return err
		}
		current.CategoryName = cmd.CategoryName
		current.Description = cmd.Description
		current.UpdatedAt = &now
		current.UpdatedBy = actor
		if err := s.categories.Update(txCtx, current); err != nil {
			return categoryRepoErrors.translate(err, msgCategoryNotFound)
		}
		updated = current
		return nil
	})
	if err != nil {
		return Category{}, err
	}
	s.logger(ctx, "category.updated", map[string]any{"categoryId": updated.ID, "actor": actor})
	return updated, nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, cmd DeleteCategoryCommand) error {
	categoryID := strings.TrimSpace(cmd.CategoryID)
	if categoryID == "" {
		return fmt.Errorf("%w: category id is required", ErrCategoryInvalidInput)
	}
	actor := actorOrSystem(ctx, cmd.ActorID)
	stamp := repositories.SoftDelete{Actor: actor, At: s.clock()}
	err := s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		return categoryRepoErrors.translate(s.categories.SoftDelete(txCtx, categoryID, stamp), msgCategoryNotFound)
	})
	if err != nil {
		return err
	}
	s.logger(ctx, "category.deleted", map[string]any{"categoryId": categoryID, "actor": actor})
	return nil
}

func (s *categoryService) DeleteCategories(ctx context.Context, cmd DeleteCategoriesCommand) error {
	if err := validateInput(s.validator, ErrCategoryInvalidInput, cmd); err != nil {
		return err
	}
	actor := actorOrSystem(ctx, cmd.ActorID)
	stamp := repositories.SoftDelete{Actor: actor, At: s.clock()}
	var deleted int64
	err := s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		n, err := s.categories.SoftDeleteMany(txCtx, cmd.CategoryIDs, stamp)
		if err != nil {
			return categoryRepoErrors.translate(err, "")
		}
		deleted = n
		return nil
	})
	if err != nil {
		return err
	}
	s.logger(ctx, "category.bulk_deleted", map[string]any{
		"requested": len(cmd.CategoryIDs),
		"deleted":   deleted,
		"actor":     actor,
	})
	return nil
}

func (s *categoryService) ensureNameFree(ctx context.Context, name, excludeID string) error {
	taken, err := s.categories.NameTaken(ctx, name, excludeID)
	if err != nil {
		return categoryRepoErrors.translate(err, "")
	}
	if taken {
		return fmt.Errorf("%w: %s", ErrCategoryConflict, msgCategoryNameExists)
	}
	return nil
}
