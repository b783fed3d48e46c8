package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/flowershop/admin-api/internal/platform/httpx"
	"github.com/flowershop/admin-api/internal/platform/pagination"
	"github.com/flowershop/admin-api/internal/platform/requestctx"
	"github.com/flowershop/admin-api/internal/services"
)

const maxRequestBody = 1 << 20

// maxFlowerRequestBody leaves room for base64 encoded images.
const maxFlowerRequestBody = 32 << 20

// ActorMiddleware places the operator named by header on the request context. Requests
// without the header act as requestctx.SystemActor.
func ActorMiddleware(header string) func(http.Handler) http.Handler {
	header = strings.TrimSpace(header)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ""
			if header != "" {
				actor = strings.TrimSpace(r.Header.Get(header))
			}
			if actor == "" {
				actor = requestctx.SystemActor
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithActor(r.Context(), actor)))
		})
	}
}

func decodeJSONBody(r *http.Request, limit int64, dst any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(io.LimitReader(r.Body, limit))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body required")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeBadRequest(ctx context.Context, w http.ResponseWriter, message string) {
	httpx.WriteError(ctx, w, httpx.NewError("invalid_request", message, http.StatusBadRequest))
}

func writeListQueryError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, pagination.ErrInvalidOrderBy) {
		writeBadRequest(ctx, w, "Order by field don't follow valid format!")
		return
	}
	writeBadRequest(ctx, w, err.Error())
}

type errorMapping struct {
	sentinel error
	code     string
	status   int
}

var serviceErrorMappings = []errorMapping{
	{services.ErrFlowerInvalidInput, "invalid_request", http.StatusBadRequest},
	{services.ErrFlowerNotFound, "flower_not_found", http.StatusNotFound},
	{services.ErrFlowerConflict, "flower_conflict", http.StatusConflict},
	{services.ErrFlowerUnavailable, "flower_unavailable", http.StatusServiceUnavailable},

	{services.ErrCategoryInvalidInput, "invalid_request", http.StatusBadRequest},
	{services.ErrCategoryNotFound, "category_not_found", http.StatusNotFound},
	{services.ErrCategoryConflict, "category_conflict", http.StatusConflict},
	{services.ErrCategoryUnavailable, "category_unavailable", http.StatusServiceUnavailable},

	{services.ErrOrderInvalidInput, "invalid_request", http.StatusBadRequest},
	{services.ErrOrderNotFound, "order_not_found", http.StatusNotFound},
	{services.ErrOrderConflict, "order_conflict", http.StatusConflict},
	{services.ErrOrderUnavailable, "order_unavailable", http.StatusServiceUnavailable},

	{services.ErrAccountInvalidInput, "invalid_request", http.StatusBadRequest},
	{services.ErrAccountNotFound, "account_not_found", http.StatusNotFound},
	{services.ErrAccountConflict, "account_conflict", http.StatusConflict},
	{services.ErrAccountNotification, "notification_failed", http.StatusInternalServerError},
	{services.ErrAccountUnavailable, "account_unavailable", http.StatusServiceUnavailable},
}

// writeServiceError maps service sentinels onto the error envelope. Client errors carry the
// detail after the sentinel prefix; server errors are logged and replaced with a generic message.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		httpx.WriteError(ctx, w, httpx.NewError("request_timeout", "request cancelled or timed out", http.StatusGatewayTimeout))
		return
	}
	for _, m := range serviceErrorMappings {
		if !errors.Is(err, m.sentinel) {
			continue
		}
		if m.status >= http.StatusInternalServerError {
			requestctx.Logger(ctx).Error("service failure", zap.String("code", m.code), zap.Error(err))
			httpx.WriteError(ctx, w, httpx.NewError(m.code, http.StatusText(m.status), m.status))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError(m.code, errorDetail(err, m.sentinel), m.status))
		return
	}
	requestctx.Logger(ctx).Error("unexpected failure", zap.Error(err))
	httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unexpected error", http.StatusInternalServerError))
}

// errorDetail returns the text a service appended to sentinel, or the sentinel text itself.
func errorDetail(err, sentinel error) string {
	msg := err.Error()
	if detail, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok && detail != "" {
		return detail
	}
	return msg
}
