package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flowershop/admin-api/internal/domain"
	"github.com/flowershop/admin-api/internal/repositories"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderConflict indicates a write conflict while storing a total.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderUnavailable indicates the store failed.
	ErrOrderUnavailable = errors.New("order: unavailable")
)

var orderRepoErrors = repoErrorMapping{
	notFound:    ErrOrderNotFound,
	conflict:    ErrOrderConflict,
	unavailable: ErrOrderUnavailable,
}

// OrderAggregationServiceDeps bundles collaborators required to construct the order aggregation service.
type OrderAggregationServiceDeps struct {
	Flowers      repositories.FlowerRepository
	Orders       repositories.OrderRepository
	OrderDetails repositories.OrderDetailRepository
	UnitOfWork   repositories.UnitOfWork
	Clock        func() time.Time
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

type orderAggregationService struct {
	flowers      repositories.FlowerRepository
	orders       repositories.OrderRepository
	orderDetails repositories.OrderDetailRepository
	unitOfWork   repositories.UnitOfWork
	clock        func() time.Time
	logger       logFunc
}

var _ OrderAggregationService = (*orderAggregationService)(nil)

// NewOrderAggregationService wires dependencies into a concrete OrderAggregationService implementation.
func NewOrderAggregationService(deps OrderAggregationServiceDeps) (OrderAggregationService, error) {
	if deps.Flowers == nil {
		return nil, errors.New("order aggregation service: flower repository is required")
	}
	if deps.Orders == nil || deps.OrderDetails == nil {
		return nil, errors.New("order aggregation service: order repositories are required")
	}
	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &orderAggregationService{
		flowers:      deps.Flowers,
		orders:       deps.Orders,
		orderDetails: deps.OrderDetails,
		unitOfWork:   unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// BestSellers ranks flowers by quantity sold in orders that count as sales. Flowers deleted
// since they were sold are skipped, so fewer than limit rows may come back.
func (s *orderAggregationService) BestSellers(ctx context.Context, limit int) ([]FlowerFeedItem, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrOrderInvalidInput)
	}
	orderIDs, err := s.orders.IDsByStatus(ctx, domain.SalesStatuses)
	if err != nil {
		return nil, orderRepoErrors.translate(err, "")
	}
	if len(orderIDs) == 0 {
		return []FlowerFeedItem{}, nil
	}
	sales, err := s.orderDetails.SalesByFlower(ctx, orderIDs, limit)
	if err != nil {
		return nil, orderRepoErrors.translate(err, "")
	}
	ranked := make([]string, 0, len(sales))
	for _, row := range sales {
		ranked = append(ranked, row.FlowerID)
	}
	flowers, err := s.flowers.FindByIDs(ctx, ranked)
	if err != nil {
		return nil, orderRepoErrors.translate(err, "")
	}
	return feedItems(flowers, 0), nil
}

// Suggested samples limit flowers at random, or the whole catalog when limit is 0.
func (s *orderAggregationService) Suggested(ctx context.Context, limit int) ([]FlowerFeedItem, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrOrderInvalidInput)
	}
	size := int64(limit)
	if size == 0 {
		count, err := s.flowers.Count(ctx)
		if err != nil {
			return nil, orderRepoErrors.translate(err, "")
		}
		size = count
	}
	if size == 0 {
		return []FlowerFeedItem{}, nil
	}
	flowers, err := s.flowers.Sample(ctx, int(size))
	if err != nil {
		return nil, orderRepoErrors.translate(err, "")
	}
	return feedItems(flowers, 0), nil
}

func (s *orderAggregationService) Decoration(ctx context.Context, limit int) ([]FlowerFeedItem, error) {
	return s.byCategories(ctx, []string{domain.DecorationCategory}, limit)
}

func (s *orderAggregationService) Gifts(ctx context.Context, limit int) ([]FlowerFeedItem, error) {
	return s.byCategories(ctx, domain.GiftCategories, limit)
}

func (s *orderAggregationService) byCategories(ctx context.Context, names []string, limit int) ([]FlowerFeedItem, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrOrderInvalidInput)
	}
	flowers, err := s.flowers.ListByCategoryNames(ctx, names)
	if err != nil {
		return nil, orderRepoErrors.translate(err, "")
	}
	return feedItems(flowers, limit), nil
}

func (s *orderAggregationService) RecalculateOrderTotal(ctx context.Context, cmd RecalculateOrderCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	actor := actorOrSystem(ctx, cmd.ActorID)
	now := s.clock()
	var (
		result   Order
		previous float64
	)
	err := s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orders.FindByID(txCtx, orderID)
		if err != nil {
			return orderRepoErrors.translate(err, "Order not found!")
		}
		details, err := s.orderDetails.ListByOrder(txCtx, orderID)
		if err != nil {
			return orderRepoErrors.translate(err, "")
		}
		previous = order.TotalPrice
		order.TotalPrice = domain.RecomputeOrderTotal(order, details)
		if err := s.orders.UpdateTotal(txCtx, orderID, order.TotalPrice, actor, now); err != nil {
			return orderRepoErrors.translate(err, "Order not found!")
		}
		order.UpdatedAt = &now
		order.UpdatedBy = actor
		result = order
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.logger(ctx, "order.total.recalculated", map[string]any{
		"orderId":  orderID,
		"previous": previous,
		"total":    result.TotalPrice,
		"actor":    actor,
	})
	return result, nil
}

// feedItems projects flowers into feed rows, keeping at most limit when limit > 0.
func feedItems(flowers []Flower, limit int) []FlowerFeedItem {
	if limit > 0 && len(flowers) > limit {
		flowers = flowers[:limit]
	}
	items := make([]FlowerFeedItem, 0, len(flowers))
	for _, f := range flowers {
		items = append(items, domain.FeedItemFromFlower(f))
	}
	return items
}
