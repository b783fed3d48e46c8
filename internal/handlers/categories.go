package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flowershop/admin-api/internal/domain"
	"github.com/flowershop/admin-api/internal/platform/httpx"
	"github.com/flowershop/admin-api/internal/platform/pagination"
	"github.com/flowershop/admin-api/internal/platform/requestctx"
	"github.com/flowershop/admin-api/internal/services"
)

var categoryListOptions = pagination.Options{
	DefaultOrderBy:     "categoryName:1",
	AllowedOrderFields: []string{"categoryName", "description", "createdAt"},
}

// CategoryHandlers exposes category CRUD endpoints.
type CategoryHandlers struct {
	categories services.CategoryService
}

// NewCategoryHandlers constructs category handlers.
func NewCategoryHandlers(categories services.CategoryService) *CategoryHandlers {
	return &CategoryHandlers{categories: categories}
}

// Routes registers category endpoints.
func (h *CategoryHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listCategories)
	r.Post("/", h.createCategory)
	r.Delete("/", h.deleteCategories)
	r.Get("/{categoryID}", h.getCategory)
	r.Put("/{categoryID}", h.updateCategory)
	r.Delete("/{categoryID}", h.deleteCategory)
}

func (h *CategoryHandlers) available(w http.ResponseWriter, r *http.Request) bool {
	if h.categories == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("service_unavailable", "category service unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func (h *CategoryHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}
	query, err := pagination.FromRequest(r, categoryListOptions)
	if err != nil {
		writeListQueryError(ctx, w, err)
		return
	}
	page, err := h.categories.ListCategories(ctx, query)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	rows := make([]categoryResponse, 0, len(page.Items))
	for _, c := range page.Items {
		rows = append(rows, newCategoryResponse(c))
	}
	httpx.WritePage(w, http.StatusOK, rows, page.Total)
}

func (h *CategoryHandlers) getCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}
	category, err := h.categories.GetCategory(ctx, chi.URLParam(r, "categoryID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, newCategoryResponse(category))
}

func (h *CategoryHandlers) createCategory(w http.ResponseWriter, r *http.Request) {
	h.saveCategory(w, r, "")
}

func (h *CategoryHandlers) updateCategory(w http.ResponseWriter, r *http.Request) {
	h.saveCategory(w, r, strings.TrimSpace(chi.URLParam(r, "categoryID")))
}

func (h *CategoryHandlers) saveCategory(w http.ResponseWriter, r *http.Request, categoryID string) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}
	var cmd services.CategoryCommand
	if err := decodeJSONBody(r, maxRequestBody, &cmd); err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}
	cmd.CategoryID = categoryID
	cmd.ActorID = requestctx.Actor(ctx)

	var (
		saved services.Category
		err   error
	)
	status := http.StatusOK
	if categoryID == "" {
		saved, err = h.categories.CreateCategory(ctx, cmd)
		status = http.StatusCreated
	} else {
		saved, err = h.categories.UpdateCategory(ctx, cmd)
	}
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteData(w, status, newCategoryResponse(saved))
}

func (h *CategoryHandlers) deleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}
	err := h.categories.DeleteCategory(ctx, services.DeleteCategoryCommand{
		CategoryID: strings.TrimSpace(chi.URLParam(r, "categoryID")),
		ActorID:    requestctx.Actor(ctx),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CategoryHandlers) deleteCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}
	var cmd services.DeleteCategoriesCommand
	if err := decodeJSONBody(r, maxRequestBody, &cmd); err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}
	cmd.ActorID = requestctx.Actor(ctx)
	if err := h.categories.DeleteCategories(ctx, cmd); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoryResponse struct {
	ID           string     `json:"id"`
	CategoryName string     `json:"categoryName"`
	Description  string     `json:"description"`
	CreatedAt    time.Time  `json:"createdAt"`
	CreatedBy    string     `json:"createdBy"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	UpdatedBy    string     `json:"updatedBy,omitempty"`
}

func newCategoryResponse(c domain.Category) categoryResponse {
	resp := categoryResponse{
		ID:           c.ID,
		CategoryName: c.CategoryName,
		Description:  c.Description,
		CreatedAt:    c.CreatedAt.UTC(),
		CreatedBy:    c.CreatedBy,
		UpdatedBy:    c.UpdatedBy,
	}
	if c.UpdatedAt != nil {
		at := c.UpdatedAt.UTC()
		resp.UpdatedAt = &at
	}
	return resp
}
