package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/flowershop/admin-api/internal/platform/requestctx"
)

func TestEventLoggerPrefersRequestLogger(t *testing.T) {
	fallbackCore, fallbackLogs := observer.New(zapcore.InfoLevel)
	requestCore, requestLogs := observer.New(zapcore.InfoLevel)
	hook := EventLogger(zap.New(fallbackCore))

	hook(context.Background(), "flower.created", map[string]any{"flowerId": "f1"})
	ctx := requestctx.WithLogger(context.Background(), zap.New(requestCore))
	hook(ctx, "order.total_recalculated", map[string]any{"orderId": "o1"})

	require.Equal(t, 1, fallbackLogs.Len())
	entry := fallbackLogs.All()[0]
	assert.Equal(t, "flower.created", entry.Message)
	assert.Equal(t, "f1", entry.ContextMap()["flowerId"])

	require.Equal(t, 1, requestLogs.Len())
	assert.Equal(t, "o1", requestLogs.All()[0].ContextMap()["orderId"])
}

func TestRequestLoggerMiddlewareLevelsByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := InjectLoggerMiddleware(zap.New(core))(RequestLoggerMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/flowers", nil)
	req = req.WithContext(requestctx.WithActor(req.Context(), "admin\n01"))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(http.StatusCreated), entries[0].ContextMap()["status"])
	assert.Equal(t, "admin01", entries[0].ContextMap()["actor"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestRecoveryMiddlewareWritesEnvelope(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	handler := RecoveryMiddleware(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), `"error":"internal_server_error"`)
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestSanitizeHelpers(t *testing.T) {
	assert.Equal(t, "/", SanitizeRoute(""))
	assert.Equal(t, "GET", SanitizeMethod("GE\x00T"))
	assert.Len(t, SanitizeActor(string(make([]byte, 100))), 0)
	long := make([]rune, 100)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, SanitizeActor(string(long)), 64)
}
