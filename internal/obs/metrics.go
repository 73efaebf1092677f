package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Client-side operation metrics.
var (
	apiInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "huntlab_api_in_flight_requests",
		Help: "In-flight backend API requests.",
	})

	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huntlab_api_requests_total",
			Help: "Total backend API requests issued by the client.",
		},
		[]string{"op", "status"},
	)

	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "huntlab_api_request_duration_seconds",
			Help:    "Backend API request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op", "status"},
	)

	guardDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huntlab_guard_decisions_total",
			Help: "Authorization guard decisions by outcome.",
		},
		[]string{"outcome"},
	)

	editOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huntlab_report_edit_outcomes_total",
			Help: "Per-record save/discard outcomes.",
		},
		[]string{"op", "outcome"},
	)
)

// Init registers the client metrics in the default registry.
func Init() {
	prometheus.MustRegister(apiInFlight, apiRequestsTotal, apiRequestDuration, guardDecisionsTotal, editOutcomesTotal)
}

// Handler exposes the Prometheus registry, for the optional local
// metrics listener.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAPIRequest records one completed backend call. A status of 0 means
// the request never produced an HTTP response (transport failure).
func ObserveAPIRequest(op string, status int, started time.Time) {
	code := strconv.Itoa(status)
	apiRequestDuration.WithLabelValues(op, code).Observe(time.Since(started).Seconds())
	apiRequestsTotal.WithLabelValues(op, code).Inc()
}

// APIRequestStarted marks a request as in flight and returns a done func.
func APIRequestStarted() func() {
	apiInFlight.Inc()
	return apiInFlight.Dec
}

// ObserveGuardDecision counts a resolved guard evaluation.
func ObserveGuardDecision(outcome string) {
	guardDecisionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveEditOutcome counts a save or discard completion.
func ObserveEditOutcome(op, outcome string) {
	editOutcomesTotal.WithLabelValues(op, outcome).Inc()
}
