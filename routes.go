package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Cici-YuMao/AIris/logging"
	"github.com/Cici-YuMao/AIris/store"
)

func newRouter(cfg ServerConfig, rk *ranker, profiles store.ProfileFetcher) http.Handler {
	r := chi.NewRouter()
	r.Use(logging.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(logging.AccessLog)
	r.Use(prometheusMetrics)
	r.Use(withCORS(cfg.CORSOrigins))

	// Health check endpoint for Docker
	r.Get("/health", healthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if cfg.RateLimitRequests > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}
		r.Post("/highly-matched", highlyMatchedHandler(rk))
		r.Post("/recommend", recommendHandler(rk))
		r.With(DataLoaderMiddleware(profiles, cfg.LoaderWait)).
			Post("/highly-matched/detailed", highlyMatchedDetailedHandler(rk))
	})
	return r
}
