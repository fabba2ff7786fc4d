package metrics

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"code", "method", "path"},
	)
	httpRequestsDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current Number of HTTP requests being processed.",
		},
	)

	allocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itemstore_allocations_total",
			Help: "Allocation attempts by outcome.",
		},
		[]string{"result"},
	)
	itemsAllocatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "itemstore_items_allocated_total",
			Help: "Items claimed by successful allocations.",
		},
	)
	itemsReleasedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "itemstore_items_released_total",
			Help: "Items returned to the unclaimed pool.",
		},
	)
	checkoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itemstore_checkouts_total",
			Help: "Checkout attempts by outcome.",
		},
		[]string{"result"},
	)
	refundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itemstore_refunds_total",
			Help: "Compensating refunds issued during checkout by outcome.",
		},
		[]string{"result"},
	)
	cartMergesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "itemstore_cart_merges_total",
			Help: "Guest carts merged into a user cart at login.",
		},
	)
)

func init() {
	if err := prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		slog.Debug("ProcessCollector registration skipped (likely already registered)",
			slog.String("error", err.Error()))
	}

	if err := prometheus.Register(collectors.NewGoCollector()); err != nil {
		slog.Debug("GoCollector registration skipped (likely already registered)",
			slog.String("error", err.Error()))
	}
}

// Outcome labels shared by the domain counters.
const (
	ResultSuccess        = "success"
	ResultNotEnoughItems = "not_enough_items"
	ResultUnavailable    = "product_unavailable"
	ResultPaymentFailed  = "payment_failed"
	ResultInvalid        = "invalid"
	ResultError          = "error"
)

func RecordAllocation(result string, items int) {
	allocationsTotal.WithLabelValues(result).Inc()
	if result == ResultSuccess {
		itemsAllocatedTotal.Add(float64(items))
	}
}

func RecordRelease(items int) {
	itemsReleasedTotal.Add(float64(items))
}

func RecordCheckout(result string) {
	checkoutsTotal.WithLabelValues(result).Inc()
}

func RecordRefund(result string) {
	refundsTotal.WithLabelValues(result).Inc()
}

func RecordCartMerge() {
	cartMergesTotal.Inc()
}

// wrapper around http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w, http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware labels requests by the mux pattern that served them, so ids never become label values.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		start := time.Now()
		httpRequestsInFlight.Inc()

		rw := newResponseWriter(w)

		defer func() {
			pathPattern := r.Pattern
			if pathPattern == "" {
				pathPattern = "unmatched"
			}

			statusCodeStr := strconv.Itoa(rw.statusCode)

			httpRequestsTotal.WithLabelValues(statusCodeStr, r.Method, pathPattern).Inc()
			httpRequestsDuration.WithLabelValues(r.Method, pathPattern).Observe(time.Since(start).Seconds())
			httpRequestsInFlight.Dec()
		}()

		next.ServeHTTP(rw, r)
	})
}

// http.Handler for the Prometheus /metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
