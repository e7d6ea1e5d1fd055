package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/notifyhub/supplytrack/internal/dispatcher"
	"github.com/notifyhub/supplytrack/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
	SendLatency         *prometheus.HistogramVec
	BatchesDispatched   *prometheus.CounterVec
	OverdueEntities     *prometheus.GaugeVec
}

// New registers all instruments with the given registerer. Tests pass a
// fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Notifications accepted by the channel provider.",
		}, []string{"channel"}),

		NotificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Notifications recorded as failed, by failure reason.",
		}, []string{"channel", "reason"}),

		SendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notification_send_seconds",
			Help:    "Provider call latency, excluding pacing.",
			Buckets: prometheus.DefBuckets,
		}, []string{"channel"}),

		BatchesDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_batches_total",
			Help: "Dispatched notification batches by origin (api, cron).",
		}, []string{"origin"}),

		OverdueEntities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tracked_entities_overdue",
			Help: "Overdue entities seen by the last sweep or listing, per kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.NotificationsSent,
		m.NotificationsFailed,
		m.SendLatency,
		m.BatchesDispatched,
		m.OverdueEntities,
	)

	return m
}

// DispatchHooks returns the callbacks expected by dispatcher.New so the
// dispatcher stays free of prometheus imports.
func (m *Metrics) DispatchHooks() dispatcher.Hooks {
	return dispatcher.Hooks{
		OnSent: func(ch domain.Channel, latency time.Duration) {
			m.NotificationsSent.WithLabelValues(string(ch)).Inc()
			m.SendLatency.WithLabelValues(string(ch)).Observe(latency.Seconds())
		},
		OnFailed: func(ch domain.Channel, reason string) {
			m.NotificationsFailed.WithLabelValues(string(ch), reason).Inc()
		},
	}
}

func (m *Metrics) ObserveBatch(origin string) {
	m.BatchesDispatched.WithLabelValues(origin).Inc()
}

func (m *Metrics) SetOverdue(kind domain.Kind, n int) {
	m.OverdueEntities.WithLabelValues(string(kind)).Set(float64(n))
}
