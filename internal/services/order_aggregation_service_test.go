package services

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/flowershop/admin-api/internal/domain"
)

func newOrderAggregationFixture(t *testing.T) (OrderAggregationService, *stubFlowerRepository, *stubOrderStore) {
	t.Helper()
	flowers := &stubFlowerRepository{flowers: map[string]domain.Flower{
		"f1": {ID: "f1", Name: "Hoa hồng", UnitPrice: 100, StarsTotal: 4, Media: []domain.Asset{{URL: "https://cdn.example/f1.png", PublicID: "f1"}}},
		"f2": {ID: "f2", Name: "Hoa cúc", UnitPrice: 50},
		"f3": {ID: "f3", Name: "Hoa lan", UnitPrice: 80},
	}}
	store := &stubOrderStore{orders: map[string]domain.Order{
		"o-shipped":    {ID: "o-shipped", Status: domain.OrderStatusShipped},
		"o-delivered":  {ID: "o-delivered", Status: domain.OrderStatusDelivered},
		"o-pending":    {ID: "o-pending", Status: domain.OrderStatusPendingPayment},
		"o-cancelled":  {ID: "o-cancelled", Status: domain.OrderStatusCancelled},
		"o-processing": {ID: "o-processing", Status: domain.OrderStatusProcessing},
	}}
	svc, err := NewOrderAggregationService(OrderAggregationServiceDeps{
		Flowers:      flowers,
		Orders:       store.ordersRepo(),
		OrderDetails: store.detailsRepo(),
		Clock:        func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewOrderAggregationService: %v", err)
	}
	return svc, flowers, store
}

func TestOrderAggregationBestSellersCountsSalesStatusesOnly(t *testing.T) {
	svc, _, store := newOrderAggregationFixture(t)
	store.sales = []domain.FlowerSales{
		{FlowerID: "f2", Quantity: 9},
		{FlowerID: "gone", Quantity: 7},
		{FlowerID: "f1", Quantity: 3},
	}

	items, err := svc.BestSellers(context.Background(), 3)
	if err != nil {
		t.Fatalf("BestSellers: %v", err)
	}
	if !reflect.DeepEqual(store.statusesSeen[0], domain.SalesStatuses) {
		t.Fatalf("expected sales statuses, got %v", store.statusesSeen[0])
	}
	got := append([]string(nil), store.salesOrders...)
	sort.Strings(got)
	if want := []string{"o-delivered", "o-pending", "o-shipped"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected sales orders %v, got %v", want, got)
	}
	if store.salesLimit != 3 {
		t.Fatalf("expected limit forwarded, got %d", store.salesLimit)
	}
	if len(items) != 2 || items[0].ID != "f2" || items[1].ID != "f1" {
		t.Fatalf("expected ranked live flowers [f2 f1], got %+v", items)
	}
	if items[1].Image != "https://cdn.example/f1.png" || items[1].Stars != 4 {
		t.Fatalf("expected feed projection, got %+v", items[1])
	}
}

func TestOrderAggregationBestSellersWithoutSales(t *testing.T) {
	svc, _, store := newOrderAggregationFixture(t)
	store.orders = map[string]domain.Order{"o-cancelled": {ID: "o-cancelled", Status: domain.OrderStatusCancelled}}

	items, err := svc.BestSellers(context.Background(), 5)
	if err != nil {
		t.Fatalf("BestSellers: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil feed, got %#v", items)
	}
}

func TestOrderAggregationRejectsNegativeLimit(t *testing.T) {
	svc, _, _ := newOrderAggregationFixture(t)
	feeds := map[string]func(context.Context, int) ([]FlowerFeedItem, error){
		"best":       svc.BestSellers,
		"suggested":  svc.Suggested,
		"decoration": svc.Decoration,
		"gifts":      svc.Gifts,
	}
	for name, feed := range feeds {
		if _, err := feed(context.Background(), -1); !errors.Is(err, ErrOrderInvalidInput) {
			t.Fatalf("%s: expected invalid input, got %v", name, err)
		}
	}
}

func TestOrderAggregationSuggested(t *testing.T) {
	svc, flowers, _ := newOrderAggregationFixture(t)
	flowers.count = 3

	items, err := svc.Suggested(context.Background(), 2)
	if err != nil {
		t.Fatalf("Suggested: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	if _, err := svc.Suggested(context.Background(), 0); err != nil {
		t.Fatalf("Suggested(0): %v", err)
	}
	if want := []int{2, 3}; !reflect.DeepEqual(flowers.sampleSizes, want) {
		t.Fatalf("expected sample sizes %v, got %v", want, flowers.sampleSizes)
	}
}

func TestOrderAggregationCategoryFeedsTruncate(t *testing.T) {
	svc, flowers, _ := newOrderAggregationFixture(t)
	flowers.byCategories = []domain.Flower{{ID: "f1"}, {ID: "f2"}, {ID: "f3"}}

	items, err := svc.Gifts(context.Background(), 2)
	if err != nil {
		t.Fatalf("Gifts: %v", err)
	}
	if len(items) != 2 || items[0].ID != "f1" {
		t.Fatalf("expected first two flowers, got %+v", items)
	}
	if !reflect.DeepEqual(flowers.categoryNames, domain.GiftCategories) {
		t.Fatalf("expected gift categories, got %v", flowers.categoryNames)
	}

	items, err = svc.Decoration(context.Background(), 0)
	if err != nil {
		t.Fatalf("Decoration: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected every decoration flower when limit is 0, got %d", len(items))
	}
	if !reflect.DeepEqual(flowers.categoryNames, []string{domain.DecorationCategory}) {
		t.Fatalf("expected decoration category, got %v", flowers.categoryNames)
	}
}

func TestOrderAggregationRecalculateOrderTotal(t *testing.T) {
	svc, _, store := newOrderAggregationFixture(t)
	store.orders["o-shipped"] = domain.Order{ID: "o-shipped", Status: domain.OrderStatusShipped, ShipPrice: 30000, Discount: 10, TotalPrice: 1}
	store.details = []domain.OrderDetail{
		{OrderID: "o-shipped", FlowerID: "f1", UnitPrice: 100000, Discount: 50, NumberOfFlowers: 2},
		{OrderID: "o-other", FlowerID: "f1", UnitPrice: 999999, NumberOfFlowers: 9},
	}

	order, err := svc.RecalculateOrderTotal(context.Background(), RecalculateOrderCommand{OrderID: " o-shipped ", ActorID: "ops"})
	if err != nil {
		t.Fatalf("RecalculateOrderTotal: %v", err)
	}
	// (30000 + 100000*2*0.5) * 0.9
	if math.Abs(order.TotalPrice-117000) > 1e-6 {
		t.Fatalf("expected 117000, got %v", order.TotalPrice)
	}
	if store.totals["o-shipped"] != order.TotalPrice {
		t.Fatalf("expected stored total to match, got %v", store.totals["o-shipped"])
	}
	if order.UpdatedBy != "ops" || order.UpdatedAt == nil {
		t.Fatalf("expected update stamps, got %+v", order.Audit)
	}

	_, err = svc.RecalculateOrderTotal(context.Background(), RecalculateOrderCommand{OrderID: "missing"})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err = svc.RecalculateOrderTotal(context.Background(), RecalculateOrderCommand{})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
