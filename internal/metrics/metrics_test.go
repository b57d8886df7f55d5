package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDomainEventCounter(t *testing.T) {
	before := testutil.ToFloat64(domainEvents.WithLabelValues("APPOINTMENT_ADDED"))
	RecordDomainEvent("APPOINTMENT_ADDED")
	RecordDomainEvent("APPOINTMENT_ADDED")
	assert.Equal(t, before+2, testutil.ToFloat64(domainEvents.WithLabelValues("APPOINTMENT_ADDED")))
}

func TestRemindersGauge(t *testing.T) {
	SetRemindersActive(7)
	assert.Equal(t, float64(7), testutil.ToFloat64(remindersActive))
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordHTTPRequest(http.MethodGet, "/appointments", http.StatusOK, 15*time.Millisecond)
	RecordSnapshot("saved")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "clinic_http_requests_total")
	assert.Contains(t, rec.Body.String(), `clinic_snapshots_total{result="saved"}`)
}
