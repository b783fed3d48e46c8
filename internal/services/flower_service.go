package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/flowershop/admin-api/internal/domain"
	"github.com/flowershop/admin-api/internal/platform/storage"
	"github.com/flowershop/admin-api/internal/platform/validation"
	"github.com/flowershop/admin-api/internal/repositories"
)

const (
	flowerEventCreated      = "flower.created"
	flowerEventUpdated      = "flower.updated"
	flowerEventDeleted      = "flower.deleted"
	flowerEventBulkDeleted  = "flower.bulk_deleted"
	flowerEventRepriced     = "flower.cancelled_orders.repriced"
	flowerEventAssetCleanup = "flower.asset.cleanup_failed"

	msgFlowerNameExists   = "Flower name already exists!"
	msgFlowerNotFound     = "Flower not found!"
	msgFlowerDetailAbsent = "Not found flower"
	msgFeedbackAbsent     = "Not found feedback of this flower"
)

var (
	// ErrFlowerInvalidInput signals the caller provided invalid data.
	ErrFlowerInvalidInput = errors.New("flower: invalid input")
	// ErrFlowerNotFound indicates the flower is missing or soft deleted.
	ErrFlowerNotFound = errors.New("flower: not found")
	// ErrFlowerConflict indicates another live flower already uses the name.
	ErrFlowerConflict = errors.New("flower: conflict")
	// ErrFlowerUnavailable indicates the store or asset storage failed.
	ErrFlowerUnavailable = errors.New("flower: unavailable")
)

var flowerRepoErrors = repoErrorMapping{
	notFound:    ErrFlowerNotFound,
	conflict:    ErrFlowerConflict,
	unavailable: ErrFlowerUnavailable,
}

// FlowerServiceDeps bundles collaborators required to construct the flower service.
type FlowerServiceDeps struct {
	Flowers          repositories.FlowerRepository
	Categories       repositories.CategoryRepository
	FlowerCategories repositories.FlowerCategoryRepository
	Orders           repositories.OrderRepository
	OrderDetails     repositories.OrderDetailRepository
	Feedback         repositories.FeedbackRepository
	Assets           AssetStore
	UnitOfWork       repositories.UnitOfWork
	Validator        *validation.Validator
	// DecodeAsset turns an incoming data URL into an upload. Defaults to storage.DecodeDataURL.
	DecodeAsset func(string) (RawAsset, error)
	// Sanitize cleans rich-text descriptions. Defaults to the bluemonday UGC policy.
	Sanitize func(string) string
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type flowerService struct {
	flowers      repositories.FlowerRepository
	categories   repositories.CategoryRepository
	links        repositories.FlowerCategoryRepository
	orders       repositories.OrderRepository
	orderDetails repositories.OrderDetailRepository
	feedback     repositories.FeedbackRepository
	assets       AssetStore
	unitOfWork   repositories.UnitOfWork
	validator    *validation.Validator
	decodeAsset  func(string) (RawAsset, error)
	sanitize     func(string) string
	clock        func() time.Time
	logger       logFunc
}

var _ FlowerService = (*flowerService)(nil)

// NewFlowerService wires dependencies into a concrete FlowerService implementation.
func NewFlowerService(deps FlowerServiceDeps) (FlowerService, error) {
	switch {
	case deps.Flowers == nil:
		return nil, errors.New("flower service: flower repository is required")
	case deps.Categories == nil:
		return nil, errors.New("flower service: category repository is required")
	case deps.FlowerCategories == nil:
		return nil, errors.New("flower service: flower category repository is required")
	case deps.Orders == nil || deps.OrderDetails == nil:
		return nil, errors.New("flower service: order repositories are required")
	case deps.Feedback == nil:
		return nil, errors.New("flower service: feedback repository is required")
	case deps.Assets == nil:
		return nil, errors.New("flower service: asset store is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}
	validator := deps.Validator
	if validator == nil {
		validator = validation.New()
	}
	decode := deps.DecodeAsset
	if decode == nil {
		decode = storage.DecodeDataURL
	}
	sanitize := deps.Sanitize
	if sanitize == nil {
		sanitize = bluemonday.UGCPolicy().Sanitize
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}

	return &flowerService{
		flowers:      deps.Flowers,
		categories:   deps.Categories,
		links:        deps.FlowerCategories,
		orders:       deps.Orders,
		orderDetails: deps.OrderDetails,
		feedback:     deps.Feedback,
		assets:       deps.Assets,
		unitOfWork:   unit,
		validator:    validator,
		decodeAsset:  decode,
		sanitize:     sanitize,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *flowerService) CreateFlower(ctx context.Context, cmd CreateFlowerCommand) (FlowerWithCategories, error) {
	cmd = s.normalize(cmd)
	if err := validateInput(s.validator, ErrFlowerInvalidInput, cmd); err != nil {
		return FlowerWithCategories{}, err
	}
	uploads := make([]RawAsset, 0, len(cmd.Media))
	for i, in := range cmd.Media {
		if in.DataURL == "" {
			return FlowerWithCategories{}, fmt.Errorf("%w: imageVideoFiles[%d] must be a data url", ErrFlowerInvalidInput, i)
		}
		raw, err := s.decodeAsset(in.DataURL)
		if err != nil {
			return FlowerWithCategories{}, fmt.Errorf("%w: imageVideoFiles[%d]: %v", ErrFlowerInvalidInput, i, err)
		}
		uploads = append(uploads, raw)
	}

	actor := actorOrSystem(ctx, cmd.ActorID)
	now := s.clock()
	var (
		created  Flower
		uploaded []Asset
	)
	err := s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureNameFree(txCtx, cmd.Name, ""); err != nil {
			return err
		}
		if err := s.ensureCategoriesExist(txCtx, cmd.CategoryIDs); err != nil {
			return err
		}
		for _, raw := range uploads {
			asset, err := s.assets.Upload(txCtx, raw)
			if err != nil {
				return fmt.Errorf("%w: upload asset: %v", ErrFlowerUnavailable, err)
			}
			uploaded = append(uploaded, asset)
		}

		flower := flowerFromCommand(cmd)
		flower.Media = uploaded
		flower.Audit = domain.Audit{CreatedAt: now, CreatedBy: actor}
		inserted, err := s.flowers.Insert(txCtx, flower)
		if err != nil {
			return flowerRepoErrors.translate(err, "")
		}
		if err := s.links.Replace(txCtx, inserted.ID, cmd.CategoryIDs); err != nil {
			return flowerRepoErrors.translate(err, "")
		}
		created = inserted
		return nil
	})
	if err != nil {
		s.discardAssets(ctx, uploaded)
		return FlowerWithCategories{}, err
	}

	s.logger(ctx, flowerEventCreated, map[string]any{
		"flowerId": created.ID,
		"actor":    actor,
		"assets":   len(created.Media),
	})
	return FlowerWithCategories{Flower: created, CategoryIDs: cmd.CategoryIDs}, nil
}

func (s *flowerService) UpdateFlower(ctx context.Context, cmd UpdateFlowerCommand) (FlowerWithCategories, error) {
	cmd.FlowerID = strings.TrimSpace(cmd.FlowerID)
	if cmd.FlowerID == "" {
		return FlowerWithCategories{}, fmt.Errorf("%w: flower id is required", ErrFlowerInvalidInput)
	}
	cmd.CreateFlowerCommand = s.normalize(cmd.CreateFlowerCommand)
	if err := validateInput(s.validator, ErrFlowerInvalidInput, cmd); err != nil {
		return FlowerWithCategories{}, err
	}
	pending := make(map[int]RawAsset)
	kept := make(map[string]int, len(cmd.Media))
	for i, in := range cmd.Media {
		if in.PublicID != "" {
			if first, dup := kept[in.PublicID]; dup {
				return FlowerWithCategories{}, fmt.Errorf("%w: imageVideoFiles[%d] repeats asset %s from imageVideoFiles[%d]", ErrFlowerInvalidInput, i, in.PublicID, first)
			}
			kept[in.PublicID] = i
			continue
		}
		if in.DataURL == "" {
			continue
		}
		raw, err := s.decodeAsset(in.DataURL)
		if err != nil {
			return FlowerWithCategories{}, fmt.Errorf("%w: imageVideoFiles[%d]: %v", ErrFlowerInvalidInput, i, err)
		}
		pending[i] = raw
	}

	actor := actorOrSystem(ctx, cmd.ActorID)
	now := s.clock()
	var (
		updated  Flower
		uploaded []Asset
		dropped  []Asset
		repriced []string
	)
	err := s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.flowers.FindByID(txCtx, cmd.FlowerID)
		if err != nil {
			return flowerRepoErrors.translate(err, msgFlowerNotFound)
		}
		if err := s.ensureNameFree(txCtx, cmd.Name, current.ID); err != nil {
			return err
		}
		if err := s.ensureCategoriesExist(txCtx, cmd.CategoryIDs); err != nil {
			return err
		}

		existing := make(map[string]Asset, len(current.Media))
		for _, a := range current.Media {
			existing[a.PublicID] = a
		}
		media := make([]Asset, 0, len(cmd.Media))
		for i, in := range cmd.Media {
			if in.PublicID != "" {
				asset, ok := existing[in.PublicID]
				if !ok {
					return fmt.Errorf("%w: imageVideoFiles[%d] references unknown asset %s", ErrFlowerInvalidInput, i, in.PublicID)
				}
				delete(existing, in.PublicID)
				media = append(media, asset)
				continue
			}
			raw, ok := pending[i]
			if !ok {
				return fmt.Errorf("%w: imageVideoFiles[%d] needs a publicId or a data url", ErrFlowerInvalidInput, i)
			}
			asset, err := s.assets.Upload(txCtx, raw)
			if err != nil {
				return fmt.Errorf("%w: upload asset: %v", ErrFlowerUnavailable, err)
			}
			uploaded = append(uploaded, asset)
			media = append(media, asset)
		}
		for _, a := range current.Media {
			if _, ok := existing[a.PublicID]; ok {
				dropped = append(dropped, a)
			}
		}

		next := flowerFromCommand(cmd.CreateFlowerCommand)
		next.ID = current.ID
		next.StarsTotal = current.StarsTotal
		next.Media = media
		next.Audit = current.Audit
		next.UpdatedAt = &now
		next.UpdatedBy = actor

		if current.PriceChanged(next) {
			repriced, err = s.repriceCancelledOrders(txCtx, next, actor, now)
			if err != nil {
				return err
			}
		}
		if err := s.flowers.Update(txCtx, next); err != nil {
			return flowerRepoErrors.translate(err, msgFlowerNotFound)
		}
		if err := s.links.Replace(txCtx, next.ID, cmd.CategoryIDs); err != nil {
			return flowerRepoErrors.translate(err, "")
		}
		updated = next
		return nil
	})
	if err != nil {
		s.discardAssets(ctx, uploaded)
		return FlowerWithCategories{}, err
	}
	s.discardAssets(ctx, dropped)

	if len(repriced) > 0 {
		s.logger(ctx, flowerEventRepriced, map[string]any{
			"flowerId": updated.ID,
			"orders":   repriced,
		})
	}
	s.logger(ctx, flowerEventUpdated, map[string]any{
		"flowerId": updated.ID,
		"actor":    actor,
		"uploaded": len(uploaded),
		"dropped":  len(dropped),
	})
	return FlowerWithCategories{Flower: updated, CategoryIDs: cmd.CategoryIDs}, nil
}

// repriceCancelledOrders copies the new price onto lines of this flower in cancelled orders
// and stores each affected order's recomputed total. It must run inside the flower update
// transaction.
func (s *flowerService) repriceCancelledOrders(ctx context.Context, flower Flower, actor string, now time.Time) ([]string, error) {
	cancelled, err := s.orders.IDsByStatus(ctx, []domain.OrderStatus{domain.OrderStatusCancelled})
	if err != nil {
		return nil, flowerRepoErrors.translate(err, "")
	}
	if len(cancelled) == 0 {
		return nil, nil
	}
	affected, err := s.orderDetails.Reprice(ctx, flower.ID, cancelled, flower.UnitPrice, flower.Discount)
	if err != nil {
		return nil, flowerRepoErrors.translate(err, "")
	}
	for _, orderID := range affected {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("%w: reload order %s: %v", ErrFlowerUnavailable, orderID, err)
		}
		details, err := s.orderDetails.ListByOrder(ctx, orderID)
		if err != nil {
			return nil, flowerRepoErrors.translate(err, "")
		}
		total := domain.RecomputeOrderTotal(order, details)
		if err := s.orders.UpdateTotal(ctx, orderID, total, actor, now); err != nil {
			return nil, fmt.Errorf("%w: update order %s: %v", ErrFlowerUnavailable, orderID, err)
		}
	}
	return affected, nil
}

func (s *flowerService) DeleteFlower(ctx context.Context, cmd DeleteFlowerCommand) error {
	flowerID := strings.TrimSpace(cmd.FlowerID)
	if flowerID == "" {
		return fmt.Errorf("%w: flower id is required", ErrFlowerInvalidInput)
	}
	actor := actorOrSystem(ctx, cmd.ActorID)
	stamp := repositories.SoftDelete{Actor: actor, At: s.clock()}
	err := s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.flowers.FindByID(txCtx, flowerID); err != nil {
			return flowerRepoErrors.translate(err, msgFlowerNotFound)
		}
		if err := s.flowers.SoftDelete(txCtx, flowerID, stamp); err != nil {
			return flowerRepoErrors.translate(err, msgFlowerNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger(ctx, flowerEventDeleted, map[string]any{"flowerId": flowerID, "actor": actor})
	return nil
}

func (s *flowerService) DeleteFlowers(ctx context.Context, cmd DeleteFlowersCommand) error {
	if err := validateInput(s.validator, ErrFlowerInvalidInput, cmd); err != nil {
		return err
	}
	actor := actorOrSystem(ctx, cmd.ActorID)
	stamp := repositories.SoftDelete{Actor: actor, At: s.clock()}
	var deleted int64
	err := s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		n, err := s.flowers.SoftDeleteMany(txCtx, cmd.FlowerIDs, stamp)
		if err != nil {
			return flowerRepoErrors.translate(err, "")
		}
		deleted = n
		return nil
	})
	if err != nil {
		return err
	}
	s.logger(ctx, flowerEventBulkDeleted, map[string]any{
		"requested": len(cmd.FlowerIDs),
		"deleted":   deleted,
		"actor":     actor,
	})
	return nil
}

func (s *flowerService) ListFlowers(ctx context.Context, query ListQuery) (domain.Page[FlowerListItem], error) {
	query.Keyword = strings.TrimSpace(query.Keyword)
	page, err := s.flowers.List(ctx, query)
	if err != nil {
		return domain.Page[FlowerListItem]{}, flowerRepoErrors.translate(err, "")
	}
	return page, nil
}

func (s *flowerService) GetFlowerDetail(ctx context.Context, flowerID string) (FlowerDetail, error) {
	flower, err := s.flowers.FindByID(ctx, strings.TrimSpace(flowerID))
	if err != nil {
		return FlowerDetail{}, flowerRepoErrors.translate(err, msgFlowerDetailAbsent)
	}
	categories, err := s.categories.ListForFlower(ctx, flower.ID)
	if err != nil {
		return FlowerDetail{}, flowerRepoErrors.translate(err, "")
	}
	return FlowerDetail{Flower: flower, Categories: categories}, nil
}

func (s *flowerService) GetFlowerFeedback(ctx context.Context, flowerID string) ([]Feedback, error) {
	flower, err := s.flowers.FindByID(ctx, strings.TrimSpace(flowerID))
	if err != nil {
		return nil, flowerRepoErrors.translate(err, msgFlowerDetailAbsent)
	}
	feedback, err := s.feedback.ListByFlower(ctx, flower.ID)
	if err != nil {
		return nil, flowerRepoErrors.translate(err, "")
	}
	if len(feedback) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrFlowerNotFound, msgFeedbackAbsent)
	}
	return feedback, nil
}

func (s *flowerService) normalize(cmd CreateFlowerCommand) CreateFlowerCommand {
	cmd.Name = strings.TrimSpace(cmd.Name)
	cmd.Habitat = strings.TrimSpace(cmd.Habitat)
	cmd.GrowthTime = strings.TrimSpace(cmd.GrowthTime)
	cmd.Care = strings.TrimSpace(cmd.Care)
	cmd.Status = strings.TrimSpace(cmd.Status)
	cmd.Description = s.sanitize(cmd.Description)
	ids := make([]string, 0, len(cmd.CategoryIDs))
	for _, id := range cmd.CategoryIDs {
		ids = append(ids, strings.TrimSpace(id))
	}
	cmd.CategoryIDs = ids
	media := make([]AssetInput, 0, len(cmd.Media))
	for _, in := range cmd.Media {
		in.PublicID = strings.TrimSpace(in.PublicID)
		in.DataURL = strings.TrimSpace(in.DataURL)
		media = append(media, in)
	}
	cmd.Media = media
	return cmd
}

func (s *flowerService) ensureNameFree(ctx context.Context, name, excludeID string) error {
	taken, err := s.flowers.NameTaken(ctx, name, excludeID)
	if err != nil {
		return flowerRepoErrors.translate(err, "")
	}
	if taken {
		return fmt.Errorf("%w: %s", ErrFlowerConflict, msgFlowerNameExists)
	}
	return nil
}

// ensureCategoriesExist reports the first id, in request order, that is not a live category.
func (s *flowerService) ensureCategoriesExist(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.categories.FindByIDs(ctx, ids)
	if err != nil {
		return flowerRepoErrors.translate(err, "")
	}
	live := make(map[string]struct{}, len(found))
	for _, c := range found {
		live[c.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := live[id]; !ok {
			return fmt.Errorf("%w: Category id %s don't exists!", ErrFlowerInvalidInput, id)
		}
	}
	return nil
}

// discardAssets removes assets from storage. Failures are logged and otherwise ignored.
func (s *flowerService) discardAssets(ctx context.Context, assets []Asset) {
	for _, a := range assets {
		if a.PublicID == "" {
			continue
		}
		if err := s.assets.DeleteByPublicID(context.WithoutCancel(ctx), a.PublicID); err != nil {
			s.logger(ctx, flowerEventAssetCleanup, map[string]any{
				"publicId": a.PublicID,
				"error":    err.Error(),
			})
		}
	}
}

func flowerFromCommand(cmd CreateFlowerCommand) Flower {
	return Flower{
		Name:         cmd.Name,
		Habitat:      cmd.Habitat,
		GrowthTime:   cmd.GrowthTime,
		Care:         cmd.Care,
		Description:  cmd.Description,
		UnitPrice:    cmd.UnitPrice,
		Discount:     cmd.Discount,
		Quantity:     cmd.Quantity,
		SoldQuantity: cmd.SoldQuantity,
		Status:       cmd.Status,
	}
}
