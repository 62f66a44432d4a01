package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests by method, route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leave_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration records request latency by method and route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leave_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// LeaveOperationsTotal counts engine operations by name and result code.
	LeaveOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leave_operations_total",
		Help: "Total leave operations by operation and result",
	}, []string{"operation", "result"})

	// LeaveReviewsTotal counts admin decisions by resulting status.
	LeaveReviewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leave_reviews_total",
		Help: "Total leave reviews by resulting status",
	}, []string{"status"})
)

// Metrics records request count and latency. Routes are labeled by their
// chi pattern so ids do not explode cardinality.
func Metrics(next http.Handler) http.Handler {
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

		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func observeOperation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = mappingOf(err).code
	}
	LeaveOperationsTotal.WithLabelValues(operation, result).Inc()
}
