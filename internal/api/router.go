package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Cheertaboi/shipping-service/internal/api/handlers"
	"github.com/Cheertaboi/shipping-service/internal/api/middleware"
	"github.com/Cheertaboi/shipping-service/internal/metrics"
)

type Dependencies struct {
	Shipping       handlers.ShippingCalculator
	Rates          handlers.RateManager
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
}

// NewRouter builds the HTTP router for the shipping-service
func NewRouter(d Dependencies) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Nop()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(d.Logger.Named("http")))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics(d.Metrics))
	if d.RequestTimeout > 0 {
		r.Use(chimw.Timeout(d.RequestTimeout))
	}

	shippingHandler := handlers.NewShippingHandler(d.Shipping, d.Logger)
	rateHandler := handlers.NewRateHandler(d.Rates, d.Logger)

	// Public checkout endpoints
	r.Route("/shipping", func(r chi.Router) {
		r.Get("/calculate", shippingHandler.Calculate)
		r.Post("/calculate", shippingHandler.Calculate)
		r.Post("/quote", shippingHandler.Quote)
		r.Get("/delivery-time", shippingHandler.DeliveryTime)
	})

	// Admin endpoints
	r.Route("/admin/shipping-rates", func(r chi.Router) {
		r.Get("/", rateHandler.List)
		r.Post("/", rateHandler.Create)
		r.Post("/simulate", shippingHandler.Simulate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", rateHandler.Get)
			r.Put("/", rateHandler.Update)
			r.Delete("/", rateHandler.Delete)
			r.Post("/deactivate", rateHandler.Deactivate)
		})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
