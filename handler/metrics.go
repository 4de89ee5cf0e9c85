package handler

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	webhooksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "yair_webhooks_total",
		Help: "Processed uptime webhooks",
	}, []string{"alert_type", "result"})

	incidentsOpenedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "yair_incidents_opened_total",
		Help: "Incident issues opened in the tracker",
	})

	incidentsClosedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "yair_incidents_closed_total",
		Help: "Incident issues closed in the tracker",
	})

	openIncidents = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "yair_open_incidents",
		Help: "Open incident issues known to this process",
	})
)

func init() {
	prometheus.MustRegister(
		webhooksTotal,
		incidentsOpenedTotal, incidentsClosedTotal,
		openIncidents,
	)
}
