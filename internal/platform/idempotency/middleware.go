package idempotency

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flowershop/admin-api/internal/platform/httpx"
	"github.com/flowershop/admin-api/internal/platform/requestctx"
)

const (
	defaultHeaderName = "Idempotency-Key"
	replayHeaderName  = "X-Idempotent-Replay"
)

// MiddlewareOption customises middleware behaviour.
type MiddlewareOption func(*guard)

// WithHeader overrides the header carrying the idempotency key.
func WithHeader(name string) MiddlewareOption {
	return func(g *guard) {
		if name = strings.TrimSpace(name); name != "" {
			g.header = name
		}
	}
}

// WithTTL configures how long completed records are retained.
func WithTTL(ttl time.Duration) MiddlewareOption {
	return func(g *guard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithMethods restricts the HTTP methods guarded by the middleware.
func WithMethods(methods ...string) MiddlewareOption {
	return func(g *guard) {
		set := make(map[string]bool, len(methods))
		for _, m := range methods {
			if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
				set[m] = true
			}
		}
		if len(set) > 0 {
			g.methods = set
		}
	}
}

// WithLogger sets the logger used for store failures.
func WithLogger(logger *zap.Logger) MiddlewareOption {
	return func(g *guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithRequiredKey rejects guarded requests that omit the key. Without it such requests
// run without deduplication.
func WithRequiredKey(required bool) MiddlewareOption {
	return func(g *guard) {
		g.required = required
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) MiddlewareOption {
	return func(g *guard) {
		if clock != nil {
			g.clock = clock
		}
	}
}

type guard struct {
	store    Store
	next     http.Handler
	header   string
	ttl      time.Duration
	methods  map[string]bool
	required bool
	clock    func() time.Time
	logger   *zap.Logger
}

// Middleware makes retried create requests safe: the first response for a key is stored and
// replayed to later requests carrying the same key and payload. Keys are scoped to the acting
// operator. Server errors are not stored, so a retry after a 5xx runs the handler again.
func Middleware(store Store, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		g := &guard{
			store:   store,
			next:    next,
			header:  defaultHeaderName,
			ttl:     DefaultTTL,
			methods: map[string]bool{http.MethodPost: true, http.MethodPut: true, http.MethodPatch: true, http.MethodDelete: true},
			clock:   time.Now,
			logger:  zap.NewNop(),
		}
		for _, opt := range opts {
			if opt != nil {
				opt(g)
			}
		}
		return g
	}
}

func (g *guard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !g.methods[r.Method] {
		g.next.ServeHTTP(w, r)
		return
	}
	key := strings.TrimSpace(r.Header.Get(g.header))
	if key == "" {
		if g.required {
			respondError(w, r, http.StatusBadRequest, "idempotency_key_required", "missing idempotency key header")
			return
		}
		g.next.ServeHTTP(w, r)
		return
	}

	body, err := bufferBody(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "idempotency_read_body_failed", "unable to read request body")
		return
	}

	actor := requestctx.Actor(r.Context())
	scoped := scopeKey(key, actor)
	fingerprint := fingerprintRequest(r, body, actor)
	log := g.logger.With(zap.String("key", key), zap.String("actor", actor))

	reservation, err := g.store.Reserve(r.Context(), scoped, fingerprint, g.clock().UTC(), g.ttl)
	switch {
	case errors.Is(err, ErrFingerprintMismatch):
		respondError(w, r, http.StatusConflict, "idempotency_key_conflict", "idempotency key already used for a different request")
		return
	case err != nil:
		log.Error("idempotency reserve failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "idempotency_store_error", "unable to process idempotency key")
		return
	}

	switch reservation.State {
	case ReservationStateCompleted:
		replay(w, reservation.Record)
		return
	case ReservationStatePending:
		respondError(w, r, http.StatusConflict, "idempotency_in_progress", "another request is processing this idempotency key")
		return
	}

	rec := &capture{header: make(http.Header)}
	g.next.ServeHTTP(rec, r)

	if rec.status >= http.StatusInternalServerError {
		if err := g.store.Release(r.Context(), scoped, fingerprint); err != nil {
			log.Warn("idempotency release failed", zap.Error(err))
		}
		rec.flush(w)
		return
	}

	resp := Response{Status: rec.statusOrOK(), Headers: rec.header.Clone(), Body: rec.body.Bytes()}
	if err := g.store.SaveResponse(r.Context(), scoped, fingerprint, resp, g.clock().UTC(), g.ttl); err != nil {
		log.Error("idempotency save failed", zap.Error(err))
		if err := g.store.Release(r.Context(), scoped, fingerprint); err != nil {
			log.Warn("idempotency release failed", zap.Error(err))
		}
		respondError(w, r, http.StatusInternalServerError, "idempotency_store_error", "unable to persist idempotency state")
		return
	}
	rec.flush(w)
}

// bufferBody reads the body and puts an identical reader back on the request.
func bufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

func fingerprintRequest(r *http.Request, body []byte, actor string) string {
	bodyHash := ""
	if len(body) > 0 {
		bodyHash = sha256Hex(body)
	}
	parts := []string{
		r.Method,
		r.URL.Path,
		r.URL.RawQuery,
		r.Header.Get("Content-Type"),
		actor,
		bodyHash,
	}
	return sha256Hex([]byte(strings.Join(parts, "|")))
}

func scopeKey(key, actor string) string {
	if actor = strings.TrimSpace(actor); actor == "" {
		actor = requestctx.SystemActor
	}
	return strings.TrimSpace(key) + "|" + actor
}

func replay(w http.ResponseWriter, record Record) {
	for name, values := range headersFromRecord(record.ResponseHeaders) {
		w.Header()[name] = values
	}
	w.Header().Set(replayHeaderName, "true")
	status := record.ResponseStatus
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(record.ResponseBody)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	httpx.WriteError(r.Context(), w, httpx.NewError(code, message, status))
}

// capture buffers a handler's response until the middleware decides whether to store it.
type capture struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (c *capture) Header() http.Header { return c.header }

func (c *capture) WriteHeader(status int) {
	if c.status == 0 {
		c.status = status
	}
}

func (c *capture) Write(p []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	return c.body.Write(p)
}

func (c *capture) statusOrOK() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func (c *capture) flush(w http.ResponseWriter) {
	for name, values := range c.header {
		w.Header()[name] = values
	}
	w.WriteHeader(c.statusOrOK())
	_, _ = w.Write(c.body.Bytes())
}
