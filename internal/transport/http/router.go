package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"guardian/internal/platform/metrics"
	"guardian/internal/platform/middleware"
)

// RouterDeps carries everything the HTTP surface needs. The chat endpoint is
// device-scoped and unauthenticated; the parent dashboard routes sit behind
// the parent token middleware.
type RouterDeps struct {
	Chat      ChatService
	Consents  ConsentService
	Children  *ChildrenDeps
	Events    SafetyEvents
	Usage     UsageStats
	Retention RetentionService

	TokenValidator middleware.TokenValidator
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Registry       *prometheus.Registry
}

// ChildrenDeps groups the two views of the children service the handlers
// need.
type ChildrenDeps struct {
	Service   ChildrenService
	Ownership Ownership
}

// NewRouter wires all public endpoints with the middleware chain.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.Latency(deps.Metrics))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	// Device-scoped conversation path. Requests carry a child id but no
	// parent token; consent checks happen inside the chat service.
	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.Timeout(60 * time.Second))
		NewChatHandler(deps.Chat, deps.Logger).Register(r)
	})

	// Parent dashboard and COPPA routes.
	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.RequireParentAuth(deps.TokenValidator, deps.Logger, deps.Metrics))

		NewChildrenHandler(deps.Children.Service, deps.Logger).Register(r)
		NewConsentHandler(deps.Consents, deps.Children.Ownership, deps.Logger).Register(r)
		NewCoppaHandler(deps.Children.Ownership, deps.Consents, deps.Events, deps.Usage, deps.Retention, deps.Logger).Register(r)
		NewSafetyHandler(deps.Children.Ownership, deps.Events, deps.Logger).Register(r)
	})

	return r
}
