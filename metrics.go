package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airis_http_requests_total",
			Help: "HTTP requests by route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airis_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	rankDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airis_rank_duration_seconds",
			Help:    "Time spent loading the snapshot and ranking one request.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	rankOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airis_rank_requests_total",
			Help: "Ranking requests by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	rankCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "airis_rank_candidates_returned",
			Help:    "Number of candidates returned per ranking.",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		},
	)

	preferenceBackfills = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airis_preference_backfill_total",
			Help: "On-the-fly preference embeddings by result.",
		},
		[]string{"result"},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "airis_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open).",
		},
		[]string{"name"},
	)
)

// prometheusMetrics records request counts and latency labelled by the chi
// route pattern.
func prometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func recordBreakerState(name string, _, to gobreaker.State) {
	var v float64
	switch to {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	breakerState.WithLabelValues(name).Set(v)
}
