package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shoplite/storefront/internal/service"
	"github.com/shoplite/storefront/pkg/health"
	"github.com/shoplite/storefront/pkg/middleware"
)

// RouterConfig bundles the dependencies of the HTTP surface.
type RouterConfig struct {
	Catalog       *service.CatalogService
	Reviews       *service.ReviewService
	HealthHandler *health.Handler
	JWTSecret     string
	CORS          middleware.CORSConfig
	Logger        *slog.Logger
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.PrometheusMetrics("storefront"))

	// Operational endpoints
	r.Get("/health/live", cfg.HealthHandler.LivenessHandler())
	r.Get("/health/ready", cfg.HealthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	productHandler := NewProductHandler(cfg.Catalog, cfg.Logger)
	reviewHandler := NewReviewHandler(cfg.Reviews, cfg.Logger)

	auth := middleware.Auth(cfg.JWTSecret, cfg.Logger)

	r.Route("/api/products", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Public storefront reads
		r.Get("/", productHandler.ListProducts)

		// Authenticated review submission
		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Post("/{id}/review", reviewHandler.CreateReview)
		})

		// Admin catalog management
		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Use(middleware.RequireAdmin)

			r.Get("/all", productHandler.ListAllProducts)
			r.Post("/", productHandler.CreateProduct)
			r.Put("/{id}", productHandler.UpdateProduct)
			r.Delete("/{id}", productHandler.DeleteProduct)
		})

		// Static /all takes precedence over this wildcard.
		r.Get("/{id}", productHandler.GetProduct)
	})

	return r
}
