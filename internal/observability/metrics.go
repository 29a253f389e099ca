package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// Upstream fetch attempts by outcome. Watch for: error ratio creeping up.
	FetchesTotal *prometheus.CounterVec

	// One increment per successful refresh fan-out. Rate should track the cron schedule.
	BroadcastsTotal prometheus.Counter

	// Observations appended to the store.
	ObservationsStored prometheus.Counter

	// Currently connected dashboard viewers.
	ConnectedViewers prometheus.Gauge
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	FetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherFetchesTotal",
			Help: "Total number of upstream fetch attempts",
		},
		[]string{"status"},
	)
	BroadcastsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcastsTotal",
			Help: "Total number of data-changed broadcasts",
		},
	)
	ObservationsStored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "observationsStoredTotal",
			Help: "Total number of observations appended to the store",
		},
	)
	ConnectedViewers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "connectedViewers",
			Help: "Number of currently connected dashboard viewers",
		},
	)

	registry.MustRegister(FetchesTotal, BroadcastsTotal, ObservationsStored, ConnectedViewers)
}

// MetricsHandler exposes the service registry for scraping.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
