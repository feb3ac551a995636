// Package metrics collects counters about committed transactions and exports
// them in the Prometheus text format for the node exporter textfile
// collector. A nil *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns a private registry so exported files only carry gotx series.
type Collector struct {
	registry      *prometheus.Registry
	transactions  *prometheus.CounterVec
	packages      *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
	downloaded    prometheus.Counter
	lastCommit    prometheus.Gauge
}

// New returns a collector with every series registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gotx_transactions_total",
				Help: "Transactions that reached the commit pipeline, by outcome.",
			},
			[]string{"result"},
		),
		packages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gotx_packages_total",
				Help: "Applied transaction items, by operation.",
			},
			[]string{"op"},
		),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gotx_phase_duration_seconds",
				Help:    "Time spent in each commit pipeline phase.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"phase"},
		),
		downloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gotx_download_bytes_total",
			Help: "Bytes of packages downloaded for transactions.",
		}),
		lastCommit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gotx_last_transaction_timestamp_seconds",
			Help: "Unix time of the last applied transaction.",
		}),
	}
	c.registry.MustRegister(c.transactions, c.packages, c.phaseDuration, c.downloaded, c.lastCommit)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObservePhase records how long a pipeline phase took.
func (c *Collector) ObservePhase(phase string, d time.Duration) {
	if c == nil {
		return
	}
	c.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// AddDownloaded counts downloaded bytes.
func (c *Collector) AddDownloaded(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	c.downloaded.Add(float64(bytes))
}

// Finished records the outcome of one Commit and the applied item counts.
func (c *Collector) Finished(result string, applied map[string]int, at time.Time) {
	if c == nil {
		return
	}
	c.transactions.WithLabelValues(result).Inc()
	for op, n := range applied {
		c.packages.WithLabelValues(op).Add(float64(n))
	}
	if len(applied) > 0 {
		c.lastCommit.Set(float64(at.Unix()))
	}
}

// WriteTextfile atomically writes every series to path.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	return errors.Wrapf(prometheus.WriteToTextfile(path, c.registry), "write metrics to %s", path)
}
