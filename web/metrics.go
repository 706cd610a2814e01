package web

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the grid API. Registered once at
// package load since promauto registers into the default registry.
type Metrics struct {
	tilesGenerated     prometheus.Counter
	generationDuration prometheus.Histogram
	locateHits         prometheus.Counter
	locateMisses       prometheus.Counter
}

var metrics = newMetrics()

func newMetrics() *Metrics {
	return &Metrics{
		tilesGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "grid_tiles_generated_total",
			Help: "Total number of grid tiles produced by generation runs",
		}),
		generationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "grid_generation_duration_seconds",
			Help:    "Duration of grid generation runs in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		locateHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "grid_locate_hits_total",
			Help: "Total number of point-location queries that found a tile",
		}),
		locateMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "grid_locate_misses_total",
			Help: "Total number of point-location queries outside the grid",
		}),
	}
}

func (m *Metrics) ObserveGeneration(tileCount int, duration time.Duration) {
	m.tilesGenerated.Add(float64(tileCount))
	m.generationDuration.Observe(duration.Seconds())
}

func (m *Metrics) IncrementLocateHits() {
	m.locateHits.Inc()
}

func (m *Metrics) IncrementLocateMisses() {
	m.locateMisses.Inc()
}
