package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/flowershop/admin-api/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	apiPrefix      = "/api/v1"
	defaultTimeout = 60 * time.Second
)

// resource groups mounted under apiPrefix, in mount order.
var resources = []string{"flowers", "categories", "accounts", "orders"}

type routerConfig struct {
	timeout     time.Duration
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers
	groups      map[string]RouteRegistrar
}

// NewRouter builds the admin API router. Resource groups without a registrar answer 501 so
// that partial deployments fail loudly instead of returning 404.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{timeout: defaultTimeout, groups: map[string]RouteRegistrar{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Timeout(cfg.timeout))
	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("route_not_found", "no route for "+req.URL.Path, http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", req.Method+" is not allowed on "+req.URL.Path, http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(apiPrefix, func(api chi.Router) {
		for _, name := range resources {
			registrar := cfg.groups[name]
			if registrar == nil {
				registrar = notImplemented(name)
			}
			api.Route("/"+name, registrar)
		}
	})
	return r
}

// WithMiddlewares appends global middleware, run after the request id and timeout.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) { cfg.middlewares = append(cfg.middlewares, mw...) }
}

// WithRequestTimeout bounds every request's context. Non-positive values keep the default.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *routerConfig) {
		if d > 0 {
			cfg.timeout = d
		}
	}
}

// WithHealthHandlers overrides the handlers used for /healthz and /readyz.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) { cfg.health = h }
}

// WithFlowerRoutes mounts reg at /api/v1/flowers.
func WithFlowerRoutes(reg RouteRegistrar) Option { return withGroup("flowers", reg) }

// WithCategoryRoutes mounts reg at /api/v1/categories.
func WithCategoryRoutes(reg RouteRegistrar) Option { return withGroup("categories", reg) }

// WithAccountRoutes mounts reg at /api/v1/accounts.
func WithAccountRoutes(reg RouteRegistrar) Option { return withGroup("accounts", reg) }

// WithOrderRoutes mounts reg at /api/v1/orders.
func WithOrderRoutes(reg RouteRegistrar) Option { return withGroup("orders", reg) }

func withGroup(name string, reg RouteRegistrar) Option {
	return func(cfg *routerConfig) { cfg.groups[name] = reg }
}

func notImplemented(name string) RouteRegistrar {
	handler := func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", name+" routes not implemented", http.StatusNotImplemented))
	}
	return func(r chi.Router) {
		r.HandleFunc("/", handler)
		r.HandleFunc("/*", handler)
		r.NotFound(handler)
		r.MethodNotAllowed(handler)
	}
}
