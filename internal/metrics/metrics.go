// Package metrics holds the Prometheus collectors for desk requests, pager
// progress and migration outcomes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "desk_migrate"

// Collector holds all Prometheus metrics for a migration run
type Collector struct {
	registry *prometheus.Registry

	// Desk API metrics
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Pager metrics
	Pages    prometheus.Counter
	Articles prometheus.Counter

	// Migration metrics
	Results *prometheus.CounterVec
}

// NewCollector creates a collector registered on its own registry, so
// several collectors can coexist in tests.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "desk_requests_total",
				Help:      "Total number of Zoho Desk API requests",
			},
			[]string{"op", "outcome"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "desk_request_duration_seconds",
				Help:      "Zoho Desk API request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		Pages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pager_pages_total",
			Help:      "Total number of article pages fetched",
		}),
		Articles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pager_articles_total",
			Help:      "Total number of articles returned by the pager",
		}),
		Results: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "migration_results_total",
				Help:      "Migration attempts by outcome",
			},
			[]string{"status", "kind"},
		),
	}

	registry.MustRegister(c.Requests, c.RequestDuration, c.Pages, c.Articles, c.Results)
	return c
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveRequest records one desk API call. A nil collector is a no-op.
func (c *Collector) ObserveRequest(op, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Requests.WithLabelValues(op, outcome).Inc()
	c.RequestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObservePage records one fetched page of n articles
func (c *Collector) ObservePage(n int) {
	if c == nil {
		return
	}
	c.Pages.Inc()
	c.Articles.Add(float64(n))
}

// ObserveResult records one migration attempt. kind is empty on success.
func (c *Collector) ObserveResult(status, kind string) {
	if c == nil {
		return
	}
	c.Results.WithLabelValues(status, kind).Inc()
}

// WriteToTextfile writes the registry in the Prometheus text format, for
// pickup by a node_exporter textfile collector.
func (c *Collector) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
