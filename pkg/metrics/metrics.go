// Package metrics exports cache counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kubdash/kubdash/pkg/models"
)

// StatsSource reports cache counters. *cache.Cache satisfies it.
type StatsSource interface {
	Stats() (models.CacheStats, error)
}

// CacheCollector reads StatsSource at scrape time.
type CacheCollector struct {
	src       StatsSource
	hits      *prometheus.Desc
	misses    *prometheus.Desc
	faults    *prometheus.Desc
	evictions *prometheus.Desc
	entries   *prometheus.Desc
}

// NewCacheCollector creates a collector with metric names under namespace.
func NewCacheCollector(namespace string, src StatsSource) *CacheCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", name), help, nil, nil)
	}
	return &CacheCollector{
		src:       src,
		hits:      desc("hits_total", "Cache lookups that returned a live value."),
		misses:    desc("misses_total", "Cache lookups that found nothing usable."),
		faults:    desc("faults_total", "Storage failures hidden by the cache."),
		evictions: desc("evictions_total", "Expired or malformed entries removed."),
		entries:   desc("entries", "Entries currently stored under the cache prefix."),
	}
}

func (c *CacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.faults
	ch <- c.evictions
	ch <- c.entries
}

func (c *CacheCollector) Collect(ch chan<- prometheus.Metric) {
	stats, err := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(stats.Misses))
	ch <- prometheus.MustNewConstMetric(c.faults, prometheus.CounterValue, float64(stats.Faults))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(stats.Evictions))
	if err != nil {
		ch <- prometheus.NewInvalidMetric(c.entries, err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(stats.Entries))
}

// Handler serves reg in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

var _ prometheus.Collector = (*CacheCollector)(nil)
