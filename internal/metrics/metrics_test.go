package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New("atelier")

	m.BookingEvent("slot", "created")
	m.BookingEvent("slot", "created")
	m.BookingEvent("workshop", "rejected")
	m.Notification("sent")
	m.ObserveHTTP(http.MethodPost, "/api/bookings", http.StatusCreated, 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.bookings.WithLabelValues("slot", "created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookings.WithLabelValues("workshop", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/api/bookings", "201")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New("atelier")
	m.Notification("failed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `atelier_notifications_total{result="failed"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.BookingEvent("slot", "created")
		m.Notification("sent")
		m.ObserveHTTP("GET", "/", 200, time.Millisecond)
	})
}
