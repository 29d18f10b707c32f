package presentation

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Routes is a handler group that mounts itself on a router.
type Routes interface {
	Register(r chi.Router)
}

// NewRouter mounts the order routes and any extra groups behind the standard
// middleware stack and wraps the result in an otel server handler.
func NewRouter(h *OrdersHandler, timeout time.Duration, extra ...Routes) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	h.Register(r)
	for _, g := range extra {
		g.Register(r)
	}
	return otelhttp.NewHandler(r, "storefront-orders")
}
