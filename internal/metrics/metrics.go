package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// исходы оформления заказа
const (
	OutcomeCommitted         = "committed"
	OutcomeValidation        = "validation_error"
	OutcomeEmptyCart         = "empty_cart"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeCategoryNotFound  = "category_not_found"
	OutcomeLockTimeout       = "lock_timeout"
	OutcomeError             = "error"
)

// результаты доставки уведомлений
const (
	NotificationEnqueued      = "enqueued"
	NotificationEnqueueFailed = "enqueue_failed"
	NotificationSent          = "sent"
	NotificationDuplicate     = "duplicate"
	NotificationDropped       = "dropped"
)

var (
	CheckoutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "checkout_total",
			Help:      "Checkout attempts by outcome.",
		},
		[]string{"outcome"},
	)

	CheckoutDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "checkout_duration_seconds",
			Help:      "Duration of checkout transactions.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "notifications_total",
			Help:      "Order notifications by result.",
		},
		[]string{"result"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "http_request_duration_ms",
			Help:      "Duration of HTTP requests in ms",
			Buckets:   []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
		},
		[]string{"method", "route"},
	)
)

// ObserveCheckout фиксирует исход и длительность одной попытки checkout
func ObserveCheckout(outcome string, started time.Time) {
	CheckoutTotal.WithLabelValues(outcome).Inc()
	CheckoutDuration.Observe(time.Since(started).Seconds())
}

func ObserveNotification(result string) {
	NotificationsTotal.WithLabelValues(result).Inc()
}

// Middleware считает запросы по шаблону маршрута chi, а не по сырому пути
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

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
		httpDuration.WithLabelValues(r.Method, route).Observe(float64(time.Since(start).Milliseconds()))
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
