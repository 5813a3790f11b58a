package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulingMetrics exposes counters/histograms for the vaccination
// scheduling engine.
type SchedulingMetrics struct {
	seriesCreated       *prometheus.CounterVec
	appointmentsCreated *prometheus.CounterVec
	validationFailures  *prometheus.CounterVec
	scheduleLatency     *prometheus.HistogramVec
	notifications       *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		seriesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kidsvax",
			Subsystem: "scheduling",
			Name:      "series_created_total",
			Help:      "Appointment series successfully persisted",
		}, []string{"flow"}),
		appointmentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kidsvax",
			Subsystem: "scheduling",
			Name:      "appointments_created_total",
			Help:      "Individual appointments persisted across all series",
		}, []string{"flow"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kidsvax",
			Subsystem: "scheduling",
			Name:      "validation_failures_total",
			Help:      "Scheduling attempts rejected by validation",
		}, []string{"flow", "code"}),
		scheduleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kidsvax",
			Subsystem: "scheduling",
			Name:      "schedule_latency_seconds",
			Help:      "Latency of scheduling attempts end to end",
			Buckets:   prometheus.DefBuckets,
		}, []string{"flow"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kidsvax",
			Subsystem: "scheduling",
			Name:      "notifications_total",
			Help:      "Best-effort notification dispatches after persistence",
		}, []string{"channel", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.seriesCreated, m.appointmentsCreated, m.validationFailures, m.scheduleLatency, m.notifications)
	return m
}

func (m *SchedulingMetrics) ObserveSeriesCreated(flow string, appointmentCount int) {
	if m == nil {
		return
	}
	m.seriesCreated.WithLabelValues(flow).Inc()
	m.appointmentsCreated.WithLabelValues(flow).Add(float64(appointmentCount))
}

func (m *SchedulingMetrics) ObserveValidationFailure(flow, code string) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(flow, code).Inc()
}

func (m *SchedulingMetrics) ObserveScheduleLatency(flow string, d time.Duration) {
	if m == nil {
		return
	}
	m.scheduleLatency.WithLabelValues(flow).Observe(d.Seconds())
}

func (m *SchedulingMetrics) ObserveNotification(channel, status string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, status).Inc()
}
