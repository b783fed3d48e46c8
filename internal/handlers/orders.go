package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flowershop/admin-api/internal/platform/httpx"
	"github.com/flowershop/admin-api/internal/platform/requestctx"
	"github.com/flowershop/admin-api/internal/services"
)

// OrderHandlers exposes order maintenance endpoints.
type OrderHandlers struct {
	orders services.OrderAggregationService
}

// NewOrderHandlers constructs order handlers.
func NewOrderHandlers(orders services.OrderAggregationService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes registers order endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/{orderID}/recalculate", h.recalculate)
}

func (h *OrderHandlers) recalculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	order, err := h.orders.RecalculateOrderTotal(ctx, services.RecalculateOrderCommand{
		OrderID: strings.TrimSpace(chi.URLParam(r, "orderID")),
		ActorID: requestctx.Actor(ctx),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, newOrderResponse(order))
}

type orderResponse struct {
	ID            string     `json:"id"`
	OrderUserID   string     `json:"orderUserId"`
	OrderDate     time.Time  `json:"orderDate"`
	ShipAddress   string     `json:"shipAddress"`
	ShipPrice     float64    `json:"shipPrice"`
	Discount      float64    `json:"discount"`
	TotalPrice    float64    `json:"totalPrice"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"paymentMethod"`
	Note          string     `json:"note,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
	UpdatedBy     string     `json:"updatedBy,omitempty"`
}

func newOrderResponse(o services.Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		OrderUserID:   o.OrderUserID,
		OrderDate:     o.OrderDate.UTC(),
		ShipAddress:   o.ShipAddress,
		ShipPrice:     o.ShipPrice,
		Discount:      o.Discount,
		TotalPrice:    o.TotalPrice,
		Status:        string(o.Status),
		PaymentMethod: o.PaymentMethod,
		Note:          o.Note,
		UpdatedBy:     o.UpdatedBy,
	}
	if o.UpdatedAt != nil {
		at := o.UpdatedAt.UTC()
		resp.UpdatedAt = &at
	}
	return resp
}
