package api

import (
	_ "forexrates/docs"
	"forexrates/internal/rate/handler"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swagger "github.com/swaggo/http-swagger"
	"github.com/ulule/limiter/v3"
)

type RouterDeps struct {
	RateHandler *handler.Handler
	Gatherer    prometheus.Gatherer
	// Limiter is optional; nil disables rate limiting.
	Limiter *limiter.Limiter
}

func NewRouter(deps RouterDeps) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/healthz"))

	// Swagger UI
	router.Get("/swagger/*", swagger.WrapHandler)
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))

	rh := deps.RateHandler
	router.Route("/api/v1/exchange-rates", func(r chi.Router) {
		if deps.Limiter != nil {
			r.Use(RateLimit(deps.Limiter))
		}
		r.Get("/", rh.ListRates)
		r.Post("/", rh.CreateRate)
		r.Put("/", rh.UpdateRate)
		r.Get("/latest/{base}/{quote}", rh.GetLatestRate)
		r.Get("/{base}/{quote}", rh.GetRate)
		r.Delete("/{base}/{quote}", rh.DeleteRate)
		r.Get("/{pair}", rh.GetRateByPair)
	})
	return router
}
