// Package metrics exposes Prometheus collectors for the HTTP shell and the
// standing worker.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "financemei",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "financemei",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "financemei",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	bandOwners = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "financemei",
			Subsystem: "ceiling",
			Name:      "owners",
			Help:      "Owners per revenue ceiling band at the last sweep.",
		},
		[]string{"band"},
	)

	bandTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "financemei",
			Subsystem: "ceiling",
			Name:      "band_transitions_total",
			Help:      "Observed changes of an owner's revenue band.",
		},
		[]string{"from", "to"},
	)

	accessAccounts = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "financemei",
			Subsystem: "subscription",
			Name:      "accounts",
			Help:      "Accounts per access presentation at the last sweep.",
		},
		[]string{"presentation"},
	)

	eventsHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "financemei",
			Subsystem: "worker",
			Name:      "events_total",
			Help:      "Ledger events handled by the worker.",
		},
		[]string{"type", "success"},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "financemei",
			Subsystem: "worker",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of scheduled standing sweeps.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		bandOwners,
		bandTransitions,
		accessAccounts,
		eventsHandled,
		sweepDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// It is meant as mux middleware, so routes are labelled by their template.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := routeTemplate(r)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// ObserveBands replaces the per-band owner counts.
func ObserveBands(counts map[string]int) {
	bandOwners.Reset()
	for band, n := range counts {
		bandOwners.WithLabelValues(band).Set(float64(n))
	}
}

// ObserveAccess replaces the per-presentation account counts.
func ObserveAccess(counts map[string]int) {
	accessAccounts.Reset()
	for presentation, n := range counts {
		accessAccounts.WithLabelValues(presentation).Set(float64(n))
	}
}

func RecordBandTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	bandTransitions.WithLabelValues(from, to).Inc()
}

func RecordEvent(eventType string, success bool) {
	if eventType == "" {
		eventType = "unknown"
	}
	eventsHandled.WithLabelValues(eventType, strconv.FormatBool(success)).Inc()
}

func RecordSweep(duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	sweepDuration.Observe(duration.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
