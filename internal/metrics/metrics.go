package metrics

import (
	stdhttp "net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "arena"

// Metrics holds the coordinator collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	queueSize    prometheus.Gauge
	activeNodes  prometheus.Gauge
	trackedGames prometheus.Gauge
	gamesCreated prometheus.Counter
	tickDuration prometheus.Histogram
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		queueSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_size",
			Help:      "Players waiting for a match.",
		}),
		activeNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_nodes",
			Help:      "Nodes registered by the provider.",
		}),
		trackedGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_games",
			Help:      "Games tracked by the coordinator.",
		}),
		gamesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_created_total",
			Help:      "Games created by the matchmaker.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Duration of a coordinator tick, sleep excluded.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.queueSize,
		m.activeNodes,
		m.trackedGames,
		m.gamesCreated,
		m.tickDuration,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() stdhttp.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SetQueueSize(n int) {
	if m != nil {
		m.queueSize.Set(float64(n))
	}
}

func (m *Metrics) SetActiveNodes(n int) {
	if m != nil {
		m.activeNodes.Set(float64(n))
	}
}

func (m *Metrics) SetTrackedGames(n int) {
	if m != nil {
		m.trackedGames.Set(float64(n))
	}
}

func (m *Metrics) AddGamesCreated(n int) {
	if m != nil {
		m.gamesCreated.Add(float64(n))
	}
}

func (m *Metrics) ObserveTick(d time.Duration) {
	if m != nil {
		m.tickDuration.Observe(d.Seconds())
	}
}
