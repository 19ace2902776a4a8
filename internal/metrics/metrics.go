// Package metrics exposes Prometheus collectors for the reminder pipeline and HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "frogsy"

// Recorder owns the collectors registered on one registry.
type Recorder struct {
	registry *prometheus.Registry

	reminderTicks         *prometheus.CounterVec
	reminderTickDuration  prometheus.Histogram
	dispatchEligibleUsers *prometheus.CounterVec
	dispatchDeliveries    *prometheus.CounterVec
	httpRequests          *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
}

// NewRecorder registers the collectors on a fresh registry together with the
// Go runtime and process collectors.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		reminderTicks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_ticks_total",
			Help:      "Reminder ticks by outcome.",
		}, []string{"outcome"}),
		reminderTickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reminder_tick_duration_seconds",
			Help:      "Duration of reminder ticks in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		dispatchEligibleUsers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_eligible_users_total",
			Help:      "Users selected for a push dispatch.",
		}, []string{"kind"}),
		dispatchDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_deliveries_total",
			Help:      "Push deliveries by kind and result (success, failure, removed).",
		}, []string{"kind", "result"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// ObserveTick records one reminder tick.
func (r *Recorder) ObserveTick(outcome string, duration time.Duration) {
	r.reminderTicks.WithLabelValues(outcome).Inc()
	if duration > 0 {
		r.reminderTickDuration.Observe(duration.Seconds())
	}
}

// ObserveDispatch records the summary of one dispatch round.
func (r *Recorder) ObserveDispatch(kind string, eligibleUsers, _ int, succeeded, failed, removed int) {
	r.dispatchEligibleUsers.WithLabelValues(kind).Add(float64(eligibleUsers))
	r.dispatchDeliveries.WithLabelValues(kind, "success").Add(float64(succeeded))
	r.dispatchDeliveries.WithLabelValues(kind, "failure").Add(float64(failed))
	r.dispatchDeliveries.WithLabelValues(kind, "removed").Add(float64(removed))
}

// Middleware records request counts and latency per matched route.
func (r *Recorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		r.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		r.httpRequestDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(started).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
