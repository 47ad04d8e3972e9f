package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	errors            *prometheus.CounterVec
	appointments      *prometheus.CounterVec
	recurring         *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	eventQueueDropped prometheus.Counter
	remindersSent     *prometheus.CounterVec
}

// NewMetrics registers collectors on a fresh registry together with the Go and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "club_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "club_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "club_http_errors_total",
			Help: "Error responses by route, method and error code.",
		}, []string{"route", "method", "code"}),
		appointments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "club_appointment_operations_total",
			Help: "Appointment lifecycle operations by outcome.",
		}, []string{"operation", "outcome"}),
		recurring: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "club_recurring_bookings_total",
			Help: "Recurring series bookings created or skipped.",
		}, []string{"outcome"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "club_notifications_total",
			Help: "Notification deliveries by channel, kind and status.",
		}, []string{"channel", "kind", "status"}),
		eventQueueDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "club_event_queue_dropped_total",
			Help: "Events rejected because the async queue was full.",
		}),
		remindersSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "club_reminders_sent_total",
			Help: "Appointment reminders sent by offset.",
		}, []string{"offset"}),
	}
}

// RecordRequest records a served HTTP request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordAppointment counts a lifecycle operation such as schedule or cancel.
func (m *Metrics) RecordAppointment(operation, outcome string) {
	if m == nil {
		return
	}
	m.appointments.WithLabelValues(operation, outcome).Inc()
}

// RecordRecurring counts bookings made by the recurring generator.
func (m *Metrics) RecordRecurring(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recurring.WithLabelValues(outcome).Add(float64(n))
}

// RecordNotification counts a delivery attempt.
func (m *Metrics) RecordNotification(channel, kind, status string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, kind, status).Inc()
}

// RecordEventDropped counts an event the async queue could not accept.
func (m *Metrics) RecordEventDropped() {
	if m == nil {
		return
	}
	m.eventQueueDropped.Inc()
}

// RecordReminder counts a reminder sent for offset.
func (m *Metrics) RecordReminder(offset time.Duration) {
	if m == nil {
		return
	}
	m.remindersSent.WithLabelValues(offset.String()).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
