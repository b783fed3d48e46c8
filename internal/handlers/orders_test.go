package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowershop/admin-api/internal/domain"
	"github.com/flowershop/admin-api/internal/services"
)

func TestOrderHandlers_Recalculate(t *testing.T) {
	svc := &stubFeedService{order: services.Order{ID: "o1", TotalPrice: 236000, Status: domain.OrderStatusProcessing}}
	router := newTestRouter(NewOrderHandlers(svc).Routes)

	req := httptest.NewRequest(http.MethodPost, "/o1/recalculate", nil)
	req.Header.Set("X-Actor-ID", "admin01")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.recalculate.OrderID != "o1" || svc.recalculate.ActorID != "admin01" {
		t.Fatalf("unexpected command %+v", svc.recalculate)
	}
	data, _ := decodeBody(t, rr)["data"].(map[string]any)
	if data["totalPrice"] != float64(236000) {
		t.Fatalf("unexpected total %v", data["totalPrice"])
	}
	if data["status"] != string(domain.OrderStatusProcessing) {
		t.Fatalf("unexpected status %v", data["status"])
	}
}

func TestOrderHandlers_RecalculateNotFound(t *testing.T) {
	svc := &stubFeedService{err: fmt.Errorf("%w: %s", services.ErrOrderNotFound, "Order not found!")}
	router := newTestRouter(NewOrderHandlers(svc).Routes)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/o9/recalculate", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestOrderHandlers_NilService(t *testing.T) {
	router := newTestRouter(NewOrderHandlers(nil).Routes)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/o1/recalculate", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}
