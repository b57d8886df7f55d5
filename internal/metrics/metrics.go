package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clinic_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	domainEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_domain_events_total",
			Help: "Mutations applied by the scheduling service, by event type",
		},
		[]string{"event"},
	)

	conflictsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_appointment_conflicts_total",
			Help: "Appointments rejected because they overlap an existing one",
		},
	)

	remindersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clinic_reminders_active",
			Help: "Reminders currently held by the reminder store",
		},
	)

	snapshotsSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_snapshots_total",
			Help: "Snapshot save attempts by result",
		},
		[]string{"result"},
	)
)

func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordDomainEvent(event string) {
	domainEvents.WithLabelValues(event).Inc()
}

func RecordConflict() {
	conflictsRejected.Inc()
}

func SetRemindersActive(n int) {
	remindersActive.Set(float64(n))
}

// RecordSnapshot counts a snapshot round; result is saved, skipped or failed.
func RecordSnapshot(result string) {
	snapshotsSaved.WithLabelValues(result).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
