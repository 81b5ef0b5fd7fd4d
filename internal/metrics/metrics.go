// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyroom_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 15},
		},
		[]string{"method", "route"},
	)

	// ExtractedFiles counts per-file aggregation outcomes by format and outcome
	// (included, skipped, failed).
	ExtractedFiles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_aggregate_files_total",
			Help: "Files considered during material aggregation",
		},
		[]string{"format", "outcome"},
	)

	// AggregatedChars observes the length of each aggregation result.
	AggregatedChars = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "studyroom_aggregate_chars",
			Help:    "Characters returned per aggregation",
			Buckets: prometheus.ExponentialBuckets(1000, 4, 7),
		},
	)

	// QuizSubmissions counts submission outcomes (graded, rejected).
	QuizSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_quiz_submissions_total",
			Help: "Quiz submissions by outcome",
		},
		[]string{"outcome"},
	)

	// CardRatings counts flashcard ratings by difficulty.
	CardRatings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_flashcard_ratings_total",
			Help: "Flashcard ratings by difficulty",
		},
		[]string{"rating"},
	)
)

// Init registers all collectors with the default registry.
func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(ExtractedFiles)
	prometheus.MustRegister(AggregatedChars)
	prometheus.MustRegister(QuizSubmissions)
	prometheus.MustRegister(CardRatings)
}

// Middleware records request counts and latencies labelled by route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
