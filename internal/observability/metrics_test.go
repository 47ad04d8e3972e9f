package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/v1/appointments", http.MethodPost, 201, 15*time.Millisecond)
	m.RecordRequest("/api/v1/appointments", http.MethodPost, 201, 5*time.Millisecond)
	m.RecordAppointment("schedule", "ok")
	m.RecordRecurring("skipped", 2)
	m.RecordRecurring("created", 0)

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/v1/appointments", http.MethodPost, "201")); got != 2 {
		t.Fatalf("requests = %v", got)
	}
	if got := testutil.ToFloat64(m.appointments.WithLabelValues("schedule", "ok")); got != 1 {
		t.Fatalf("appointments = %v", got)
	}
	if got := testutil.ToFloat64(m.recurring.WithLabelValues("skipped")); got != 2 {
		t.Fatalf("recurring skipped = %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "club_appointment_operations_total") {
		t.Fatalf("exposition missing appointment counter:\n%s", body)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", http.MethodGet, 200, time.Millisecond)
	m.RecordError("/", http.MethodGet, "INTERNAL")
	m.RecordNotification("push", "SCHEDULED", "sent")
	m.RecordEventDropped()
	m.RecordReminder(time.Hour)
}
