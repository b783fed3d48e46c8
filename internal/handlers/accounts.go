package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flowershop/admin-api/internal/domain"
	"github.com/flowershop/admin-api/internal/platform/httpx"
	"github.com/flowershop/admin-api/internal/platform/pagination"
	"github.com/flowershop/admin-api/internal/platform/requestctx"
	"github.com/flowershop/admin-api/internal/services"
)

var accountListOptions = pagination.Options{
	DefaultOrderBy:     "username:1",
	AllowedOrderFields: []string{"username", "name", "email", "role", "isActived", "createdAt"},
}

// AccountHandlers exposes user and account lifecycle endpoints.
type AccountHandlers struct {
	accounts services.AccountService
	resets   resetThrottle
}

// AccountHandlerOption customises account handlers.
type AccountHandlerOption func(*AccountHandlers)

// WithPasswordResetLimit caps password reset emails per user within window. A zero limit
// disables the cap.
func WithPasswordResetLimit(limit int, window time.Duration, clock func() time.Time) AccountHandlerOption {
	return func(h *AccountHandlers) {
		h.resets = newWindowThrottle(limit, window, clock)
	}
}

// NewAccountHandlers constructs account handlers.
func NewAccountHandlers(accounts services.AccountService, opts ...AccountHandlerOption) *AccountHandlers {
	h := &AccountHandlers{accounts: accounts}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers account endpoints.
func (h *AccountHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listAccounts)
	r.Post("/", h.createAccount)
	r.Get("/{userID}", h.getAccount)
	r.Put("/{userID}", h.updateAccount)
	r.Delete("/{userID}", h.deleteAccount)
	r.Patch("/{userID}/lock", h.setActive)
	r.Patch("/{userID}/reset-password", h.resetPassword)
}

func (h *AccountHandlers) available(w http.ResponseWriter, r *http.Request) bool {
	if h.accounts == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("service_unavailable", "account service unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func (h *AccountHandlers) listAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}
	query, err := pagination.FromRequest(r, accountListOptions)
	if err != nil {
		writeListQueryError(ctx, w, err)
		return
	}
	page, err := h.accounts.ListAccounts(ctx, query)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	rows := make([]accountViewResponse, 0, len(page.Items))
	for _, v := range page.Items {
		rows = append(rows, newAccountViewResponse(v))
	}
	httpx.WritePage(w, http.StatusOK, rows, page.Total)
}

func (h *AccountHandlers) getAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}
	view, err := h.accounts.GetAccount(ctx, strings.TrimSpace(chi.URLParam(r, "userID")))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, newAccountViewResponse(view))
}

func (h *AccountHandlers) createAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}
	var cmd services.CreateAccountCommand
	if err := decodeJSONBody(r, maxRequestBody, &cmd); err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}
	cmd.ActorID = requestctx.Actor(ctx)
	user, err := h.accounts.CreateAccount(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusCreated, newUserResponse(user))
}

func (h *AccountHandlers) updateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}
	var cmd services.UpdateAccountCommand
	if err := decodeJSONBody(r, maxRequestBody, &cmd); err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}
	cmd.UserID = strings.TrimSpace(chi.URLParam(r, "userID"))
	cmd.ActorID = requestctx.Actor(ctx)
	user, err := h.accounts.UpdateAccount(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, newUserResponse(user))
}

func (h *AccountHandlers) deleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}
	err := h.accounts.DeleteAccount(ctx, services.DeleteAccountCommand{
		UserID:  strings.TrimSpace(chi.URLParam(r, "userID")),
		ActorID: requestctx.Actor(ctx),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setActiveRequest struct {
	IsActived *bool `json:"isActived"`
}

func (h *AccountHandlers) setActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}
	var req setActiveRequest
	if err := decodeJSONBody(r, maxRequestBody, &req); err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}
	if req.IsActived == nil {
		writeBadRequest(ctx, w, "isActived field is required")
		return
	}
	account, err := h.accounts.SetAccountActive(ctx, services.SetAccountActiveCommand{
		UserID:    strings.TrimSpace(chi.URLParam(r, "userID")),
		IsActived: *req.IsActived,
		ActorID:   requestctx.Actor(ctx),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, newAccountResponse(account))
}

func (h *AccountHandlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if h.resets != nil {
		if ok, retryAfter := h.resets.Allow(userID); !ok {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			httpx.WriteError(ctx, w, httpx.NewError("too_many_requests", "password was reset recently, try again later", http.StatusTooManyRequests).
				WithDetails(map[string]any{"retryAfterSeconds": seconds}))
			return
		}
	}
	err := h.accounts.ResetPassword(ctx, services.ResetPasswordCommand{
		UserID:  userID,
		ActorID: requestctx.Actor(ctx),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type accountViewResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Avatar      string    `json:"avatar"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	CitizenID   string    `json:"citizenId"`
	PhoneNumber string    `json:"phoneNumber"`
	IsActived   bool      `json:"isActived"`
	CreatedAt   time.Time `json:"createdAt"`
	CreatedBy   string    `json:"createdBy"`
}

func newAccountViewResponse(v domain.AccountView) accountViewResponse {
	return accountViewResponse{
		ID:          v.UserID,
		Username:    v.Username,
		Avatar:      v.Avatar,
		Name:        v.Name,
		Email:       v.Email,
		Role:        v.Role,
		CitizenID:   v.CitizenID,
		PhoneNumber: v.PhoneNumber,
		IsActived:   v.IsActived,
		CreatedAt:   v.CreatedAt.UTC(),
		CreatedBy:   v.CreatedBy,
	}
}

type userResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	Avatar      string     `json:"avatar"`
	CitizenID   string     `json:"citizenId"`
	PhoneNumber string     `json:"phoneNumber"`
	CreatedAt   time.Time  `json:"createdAt"`
	CreatedBy   string     `json:"createdBy"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	UpdatedBy   string     `json:"updatedBy,omitempty"`
}

func newUserResponse(u domain.User) userResponse {
	resp := userResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		Avatar:      u.Avatar,
		CitizenID:   u.CitizenID,
		PhoneNumber: u.PhoneNumber,
		CreatedAt:   u.CreatedAt.UTC(),
		CreatedBy:   u.CreatedBy,
		UpdatedBy:   u.UpdatedBy,
	}
	if u.UpdatedAt != nil {
		at := u.UpdatedAt.UTC()
		resp.UpdatedAt = &at
	}
	return resp
}

// accountResponse never carries the password hash.
type accountResponse struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Username  string     `json:"username"`
	IsActived bool       `json:"isActived"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	UpdatedBy string     `json:"updatedBy,omitempty"`
}

func newAccountResponse(a domain.Account) accountResponse {
	resp := accountResponse{
		ID:        a.ID,
		UserID:    a.UserID,
		Username:  a.Username,
		IsActived: a.IsActived,
		UpdatedBy: a.UpdatedBy,
	}
	if a.UpdatedAt != nil {
		at := a.UpdatedAt.UTC()
		resp.UpdatedAt = &at
	}
	return resp
}
