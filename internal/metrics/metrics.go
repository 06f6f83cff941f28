package metrics

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the notification counters of one process.
type Metrics struct {
	registry *prometheus.Registry

	NotificationsTotal *prometheus.CounterVec
	RejectedTotal      *prometheus.CounterVec
	RedeliveriesTotal  *prometheus.CounterVec
	PaymentAmounts     *prometheus.HistogramVec
}

// New builds the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payzen_notifications_total",
				Help: "Verified notifications by channel and reconciliation action",
			},
			[]string{"channel", "action"},
		),
		RejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payzen_notifications_rejected_total",
				Help: "Notifications refused before or during reconciliation, by reason",
			},
			[]string{"channel", "reason"},
		),
		RedeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payzen_notification_redeliveries_total",
				Help: "Notifications already seen in the delivery ledger",
			},
			[]string{"channel"},
		),
		PaymentAmounts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payzen_settled_amounts",
				Help:    "Distribution of settled amounts in major units",
				Buckets: prometheus.LinearBuckets(0, 50, 20),
			},
			[]string{"currency"},
		),
	}
	m.registry.MustRegister(
		m.NotificationsTotal,
		m.RejectedTotal,
		m.RedeliveriesTotal,
		m.PaymentAmounts,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Register mounts GET /metrics on r.
func (m *Metrics) Register(r gin.IRoutes) {
	r.GET("/metrics", gin.WrapH(m.Handler()))
}
