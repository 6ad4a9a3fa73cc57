// Package handlers serves the gallery pages and the htmx endpoints that
// mutate a rendered view.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"face-gallery/internal/domain/gallery"
	"face-gallery/internal/observability"
	"face-gallery/internal/platform/catalog"
	"face-gallery/internal/services"
)

// catalogCookie remembers the selected gallery index
const catalogCookie = "gallery_catalog"

// HealthChecker reports the state of the backing stores by name
type HealthChecker interface {
	Health(ctx context.Context) map[string]error
}

type Handler struct {
	ui      gallery.GalleryUI
	health  HealthChecker              // can be nil
	metrics *observability.HTTPMetrics // can be nil
	logger  *observability.Logger
	newSeed func() string
}

func New(ui gallery.GalleryUI, health HealthChecker, metrics *observability.HTTPMetrics, logger *observability.Logger) *Handler {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Handler{
		ui:      ui,
		health:  health,
		metrics: metrics,
		logger:  logger,
		newSeed: catalog.NewSeed,
	}
}

// NewWithContainer wires the handler to the services of a container
func NewWithContainer(container *services.Container, metrics *observability.HTTPMetrics) *Handler {
	return New(container.GalleryUI(), container, metrics, container.Logger().Component("http"))
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(observability.TracingMiddleware(observability.GetTracer()))
	if h.metrics != nil {
		r.Use(observability.MetricsMiddleware(h.metrics))
	}

	// Health checks
	r.Get("/healthz", h.healthzHandler)
	r.Get("/readyz", h.readyzHandler)

	// Pages
	r.Get("/", h.categoriesHandler)
	r.Get("/all", h.allImagesHandler)
	r.Get("/category/*", h.categoryHandler)
	r.Get("/select/{index}", h.selectCatalogHandler)

	// View state
	r.Route("/views/{id}", func(r chi.Router) {
		r.Get("/", h.viewHandler)
		r.Get("/body", h.viewBodyHandler)
		r.Post("/like", h.viewAction(h.toggleLike))
		r.Post("/batch-like", h.viewAction(h.batchLike))
		r.Post("/info", h.viewAction(h.showInfo))
		r.Post("/modal/close", h.viewAction(h.closeModal))
		r.Post("/modal/click", h.viewAction(h.clickModal))
		r.Post("/alerts/dismiss", h.viewAction(h.dismissAlerts))
	})

	return r
}

// requestLogger writes one structured line per request
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" {
			return
		}
		h.logger.Debug(r.Context()).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	})
}
