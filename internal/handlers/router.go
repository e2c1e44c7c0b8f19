package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/franchisehub/api/internal/platform/auth"
	"github.com/franchisehub/api/internal/platform/httpx"
	"github.com/franchisehub/api/internal/platform/idempotency"
	"github.com/franchisehub/api/internal/platform/observability"
)

// RouterDeps collects everything the HTTP router needs.
type RouterDeps struct {
	Logger *zap.Logger
	Orders *OrdersHandler
	Health *HealthHandler

	// Idempotency guards POST /orders when a store is provided.
	IdempotencyStore  idempotency.Store
	IdempotencyHeader string
	IdempotencyTTL    time.Duration

	RequestTimeout time.Duration
}

// NewRouter assembles the chi router with the shared middleware stack, probe
// endpoints, and the authenticated /api/v1 surface.
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.InjectLoggerMiddleware(deps.Logger))
	r.Use(observability.RequestLoggerMiddleware())

	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	r.Use(middleware.Timeout(timeout))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_found", "resource not found", http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", "method not allowed", http.StatusMethodNotAllowed))
	})

	if deps.Health != nil {
		r.Get("/healthz", deps.Health.Live)
		r.Get("/readyz", deps.Health.Ready)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(auth.RequireIdentity())
		if deps.IdempotencyStore != nil {
			api.Use(idempotency.Middleware(deps.IdempotencyStore,
				idempotency.WithHeader(deps.IdempotencyHeader),
				idempotency.WithTTL(deps.IdempotencyTTL),
				idempotency.WithMethods(http.MethodPost),
				idempotency.WithLogger(deps.Logger),
			))
		}

		if deps.Orders != nil {
			api.Route("/orders", deps.Orders.Mount)
		}
	})

	return r
}
