package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flowershop/admin-api/internal/domain"
	"github.com/flowershop/admin-api/internal/services"
)

func TestAccountHandlers_CreateAccount(t *testing.T) {
	svc := &stubAccountService{}
	router := newTestRouter(NewAccountHandlers(svc).Routes)

	body := `{"name":"Nguyen Van An","email":"an@example.com","role":"Staff","isActived":true}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("X-Actor-ID", "admin01")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.created.Email != "an@example.com" || !svc.created.IsActived || svc.created.ActorID != "admin01" {
		t.Fatalf("unexpected command %+v", svc.created)
	}
}

func TestAccountHandlers_NotificationFailure(t *testing.T) {
	svc := &stubAccountService{err: fmt.Errorf("%w: smtp refused", services.ErrAccountNotification)}
	router := newTestRouter(NewAccountHandlers(svc).Routes)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"A","email":"a@example.com","role":"Staff"}`)))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["error"] != "notification_failed" {
		t.Fatalf("unexpected code %v", body["error"])
	}
	if strings.Contains(fmt.Sprint(body["message"]), "smtp") {
		t.Fatalf("server error detail leaked: %v", body["message"])
	}
}

func TestAccountHandlers_SetActive(t *testing.T) {
	svc := &stubAccountService{account: domain.Account{ID: "acc1", Username: "AnNV", PasswordHash: "$2a$10$secret"}}
	router := newTestRouter(NewAccountHandlers(svc).Routes)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, "/u1/lock", strings.NewReader(`{"isActived":false}`)))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.active.UserID != "u1" || svc.active.IsActived {
		t.Fatalf("unexpected command %+v", svc.active)
	}
	if strings.Contains(rr.Body.String(), "secret") {
		t.Fatalf("password hash must not be serialised: %s", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, "/u1/lock", strings.NewReader(`{}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without isActived, got %d", rr.Code)
	}
}

func TestAccountHandlers_ListUsesUsernameDefault(t *testing.T) {
	created := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	svc := &stubAccountService{
		page: domain.Page[services.AccountView]{
			Items: []services.AccountView{{UserID: "u1", Username: "AnNV", IsActived: true, CreatedAt: created}},
			Total: 1,
		},
	}
	router := newTestRouter(NewAccountHandlers(svc).Routes)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if len(svc.listQuery.Sort) == 0 || svc.listQuery.Sort[0].Field != "username" {
		t.Fatalf("expected username sort, got %+v", svc.listQuery.Sort)
	}
	rows, _ := decodeBody(t, rr)["data"].([]any)
	if row, _ := rows[0].(map[string]any); row["id"] != "u1" || row["username"] != "AnNV" {
		t.Fatalf("unexpected row %v", rows[0])
	}
}

func TestAccountHandlers_ResetPasswordThrottle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc := &stubAccountService{}
	router := newTestRouter(NewAccountHandlers(svc, WithPasswordResetLimit(2, time.Minute, clock)).Routes)

	reset := func(userID string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, "/"+userID+"/reset-password", nil))
		return rr
	}

	for i := 0; i < 2; i++ {
		if rr := reset("u1"); rr.Code != http.StatusNoContent {
			t.Fatalf("attempt %d: expected status 204, got %d", i+1, rr.Code)
		}
	}

	rr := reset("u1")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("expected Retry-After 60, got %q", got)
	}
	if details, _ := decodeBody(t, rr)["details"].(map[string]any); details["retryAfterSeconds"] != float64(60) {
		t.Fatalf("expected details.retryAfterSeconds 60, got %v", details)
	}
	if len(svc.resets) != 2 {
		t.Fatalf("expected two resets to reach the service, got %d", len(svc.resets))
	}

	if rr := reset("u2"); rr.Code != http.StatusNoContent {
		t.Fatalf("other users should not be throttled, got %d", rr.Code)
	}

	now = now.Add(time.Minute)
	if rr := reset("u1"); rr.Code != http.StatusNoContent {
		t.Fatalf("expected reset after window, got %d", rr.Code)
	}
}

func TestAccountHandlers_ResetPasswordNotFound(t *testing.T) {
	svc := &stubAccountService{err: fmt.Errorf("%w: %s", services.ErrAccountNotFound, "Account not found!")}
	router := newTestRouter(NewAccountHandlers(svc).Routes)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, "/u9/reset-password", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["message"] != "Account not found!" {
		t.Fatalf("unexpected message %v", body["message"])
	}
}
