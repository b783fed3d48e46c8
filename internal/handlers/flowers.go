package handlers

import (
	"context"
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

var flowerListOptions = pagination.Options{
	DefaultOrderBy:     "name:1",
	AllowedOrderFields: []string{"name", "habitat", "unitPrice", "discount", "quantity", "soldQuantity", "status", "createdAt"},
}

// FlowerHandlers exposes the flower catalog and the storefront feeds.
type FlowerHandlers struct {
	flowers services.FlowerService
	feeds   services.OrderAggregationService
}

// NewFlowerHandlers constructs flower handlers.
func NewFlowerHandlers(flowers services.FlowerService, feeds services.OrderAggregationService) *FlowerHandlers {
	return &FlowerHandlers{flowers: flowers, feeds: feeds}
}

// Routes registers flower endpoints.
func (h *FlowerHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listFlowers)
	r.Post("/", h.createFlower)
	r.Delete("/", h.deleteFlowers)

	r.Get("/best-seller", h.feed(func(s services.OrderAggregationService) feedFunc { return s.BestSellers }))
	r.Get("/suggested", h.feed(func(s services.OrderAggregationService) feedFunc { return s.Suggested }))
	r.Get("/decoration", h.feed(func(s services.OrderAggregationService) feedFunc { return s.Decoration }))
	r.Get("/gift", h.feed(func(s services.OrderAggregationService) feedFunc { return s.Gifts }))

	r.Get("/{flowerID}", h.getFlower)
	r.Get("/{flowerID}/feedback", h.getFeedback)
	r.Put("/{flowerID}", h.updateFlower)
	r.Delete("/{flowerID}", h.deleteFlower)
}

func (h *FlowerHandlers) available(w http.ResponseWriter, r *http.Request) bool {
	if h.flowers == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("service_unavailable", "flower service unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func (h *FlowerHandlers) listFlowers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}
	query, err := pagination.FromRequest(r, flowerListOptions)
	if err != nil {
		writeListQueryError(ctx, w, err)
		return
	}
	page, err := h.flowers.ListFlowers(ctx, query)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	rows := make([]flowerListItemResponse, 0, len(page.Items))
	for _, item := range page.Items {
		rows = append(rows, newFlowerListItemResponse(item))
	}
	httpx.WritePage(w, http.StatusOK, rows, page.Total)
}

func (h *FlowerHandlers) createFlower(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}
	var req flowerRequest
	if err := decodeJSONBody(r, maxFlowerRequestBody, &req); err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}
	cmd := req.command()
	cmd.ActorID = requestctx.Actor(ctx)
	created, err := h.flowers.CreateFlower(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusCreated, newFlowerWithCategoriesResponse(created))
}

func (h *FlowerHandlers) updateFlower(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}
	var req flowerRequest
	if err := decodeJSONBody(r, maxFlowerRequestBody, &req); err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}
	cmd := req.command()
	cmd.ActorID = requestctx.Actor(ctx)
	updated, err := h.flowers.UpdateFlower(ctx, services.UpdateFlowerCommand{
		FlowerID:            strings.TrimSpace(chi.URLParam(r, "flowerID")),
		CreateFlowerCommand: cmd,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, newFlowerWithCategoriesResponse(updated))
}

func (h *FlowerHandlers) deleteFlower(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}
	err := h.flowers.DeleteFlower(ctx, services.DeleteFlowerCommand{
		FlowerID: strings.TrimSpace(chi.URLParam(r, "flowerID")),
		ActorID:  requestctx.Actor(ctx),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FlowerHandlers) deleteFlowers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}
	var cmd services.DeleteFlowersCommand
	if err := decodeJSONBody(r, maxRequestBody, &cmd); err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}
	cmd.ActorID = requestctx.Actor(ctx)
	if err := h.flowers.DeleteFlowers(ctx, cmd); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FlowerHandlers) getFlower(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}
	detail, err := h.flowers.GetFlowerDetail(ctx, chi.URLParam(r, "flowerID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, newFlowerDetailResponse(detail))
}

func (h *FlowerHandlers) getFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(w, r) {
		return
	}
	feedback, err := h.flowers.GetFlowerFeedback(ctx, chi.URLParam(r, "flowerID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	rows := make([]feedbackResponse, 0, len(feedback))
	for _, f := range feedback {
		rows = append(rows, feedbackResponse{
			Content:         f.Content,
			NumberOfStars:   f.NumberOfStars,
			NumberOfLikes:   f.NumberOfLikes,
			FeedbackBy:      f.FeedbackBy,
			CommentDate:     f.CommentDate.UTC(),
			ImageVideoFiles: newAssetResponses(f.Media),
		})
	}
	httpx.WriteData(w, http.StatusOK, rows)
}

type feedFunc func(ctx context.Context, limit int) ([]services.FlowerFeedItem, error)

func (h *FlowerHandlers) feed(pick func(services.OrderAggregationService) feedFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if h.feeds == nil {
			httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "feed service unavailable", http.StatusServiceUnavailable))
			return
		}
		limit, err := pagination.ParseLimit(r.URL.Query().Get("limit"))
		if err != nil {
			writeBadRequest(ctx, w, "limit "+err.Error())
			return
		}
		items, err := pick(h.feeds)(ctx, limit)
		if err != nil {
			writeServiceError(ctx, w, err)
			return
		}
		rows := make([]flowerFeedItemResponse, 0, len(items))
		for _, item := range items {
			rows = append(rows, flowerFeedItemResponse(item))
		}
		httpx.WriteData(w, http.StatusOK, rows)
	}
}

type assetPayload struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
	Data     string `json:"data"`
}

type flowerRequest struct {
	services.CreateFlowerCommand
	ImageVideoFiles []assetPayload `json:"imageVideoFiles"`
}

func (req flowerRequest) command() services.CreateFlowerCommand {
	cmd := req.CreateFlowerCommand
	cmd.Media = make([]services.AssetInput, 0, len(req.ImageVideoFiles))
	for _, f := range req.ImageVideoFiles {
		cmd.Media = append(cmd.Media, services.AssetInput{PublicID: f.PublicID, URL: f.URL, DataURL: f.Data})
	}
	return cmd
}

type assetResponse struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

func newAssetResponses(assets []domain.Asset) []assetResponse {
	out := make([]assetResponse, 0, len(assets))
	for _, a := range assets {
		out = append(out, assetResponse{URL: a.URL, PublicID: a.PublicID})
	}
	return out
}

type flowerResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Habitat         string          `json:"habitat"`
	GrowthTime      string          `json:"growthTime"`
	Care            string          `json:"care"`
	Description     string          `json:"description"`
	UnitPrice       float64         `json:"unitPrice"`
	Discount        float64         `json:"discount"`
	Quantity        int             `json:"quantity"`
	SoldQuantity    int             `json:"soldQuantity"`
	Status          string          `json:"status"`
	StarsTotal      float64         `json:"starsTotal"`
	ImageVideoFiles []assetResponse `json:"imageVideoFiles"`
	CreatedAt       time.Time       `json:"createdAt"`
	CreatedBy       string          `json:"createdBy"`
	UpdatedAt       *time.Time      `json:"updatedAt,omitempty"`
	UpdatedBy       string          `json:"updatedBy,omitempty"`
}

func newFlowerResponse(f domain.Flower) flowerResponse {
	resp := flowerResponse{
		ID:              f.ID,
		Name:            f.Name,
		Habitat:         f.Habitat,
		GrowthTime:      f.GrowthTime,
		Care:            f.Care,
		Description:     f.Description,
		UnitPrice:       f.UnitPrice,
		Discount:        f.Discount,
		Quantity:        f.Quantity,
		SoldQuantity:    f.SoldQuantity,
		Status:          f.Status,
		StarsTotal:      f.StarsTotal,
		ImageVideoFiles: newAssetResponses(f.Media),
		CreatedAt:       f.CreatedAt.UTC(),
		CreatedBy:       f.CreatedBy,
		UpdatedBy:       f.UpdatedBy,
	}
	if f.UpdatedAt != nil {
		at := f.UpdatedAt.UTC()
		resp.UpdatedAt = &at
	}
	return resp
}

type flowerWithCategoriesResponse struct {
	flowerResponse
	Category []string `json:"category"`
}

func newFlowerWithCategoriesResponse(f services.FlowerWithCategories) flowerWithCategoriesResponse {
	ids := f.CategoryIDs
	if ids == nil {
		ids = []string{}
	}
	return flowerWithCategoriesResponse{flowerResponse: newFlowerResponse(f.Flower), Category: ids}
}

type categoryRefResponse struct {
	ID           string `json:"id"`
	CategoryName string `json:"categoryName"`
}

type flowerDetailResponse struct {
	flowerResponse
	Categories []categoryRefResponse `json:"categories"`
}

func newFlowerDetailResponse(d services.FlowerDetail) flowerDetailResponse {
	refs := make([]categoryRefResponse, 0, len(d.Categories))
	for _, c := range d.Categories {
		refs = append(refs, categoryRefResponse(c))
	}
	return flowerDetailResponse{flowerResponse: newFlowerResponse(d.Flower), Categories: refs}
}

type flowerListItemResponse struct {
	ID           string    `json:"id"`
	Image        string    `json:"image"`
	Name         string    `json:"name"`
	Habitat      string    `json:"habitat"`
	UnitPrice    float64   `json:"unitPrice"`
	Discount     float64   `json:"discount"`
	Quantity     int       `json:"quantity"`
	SoldQuantity int       `json:"soldQuantity"`
	Status       string    `json:"status"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"createdAt"`
	CreatedBy    string    `json:"createdBy"`
}

func newFlowerListItemResponse(item domain.FlowerListItem) flowerListItemResponse {
	resp := flowerListItemResponse(item)
	resp.CreatedAt = resp.CreatedAt.UTC()
	return resp
}

type flowerFeedItemResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Stars     float64 `json:"stars"`
	UnitPrice float64 `json:"unitPrice"`
	Status    string  `json:"status"`
	Discount  float64 `json:"discount"`
	Image     string  `json:"image"`
}

type feedbackResponse struct {
	Content         string          `json:"content"`
	NumberOfStars   float64         `json:"numberOfStars"`
	NumberOfLikes   int             `json:"numberOfLikes"`
	FeedbackBy      string          `json:"feedbackBy"`
	CommentDate     time.Time       `json:"commentDate"`
	ImageVideoFiles []assetResponse `json:"imageVideoFiles"`
}
