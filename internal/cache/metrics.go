package cache

import "github.com/prometheus/client_golang/prometheus"

// StatsSource is anything that reports cache statistics.
type StatsSource interface {
	Stats() Report
}

// Collector exports a cache's statistics as Prometheus metrics. Values are
// read at scrape time, so the cache itself carries no metrics state.
type Collector struct {
	src      StatsSource
	hits     *prometheus.Desc
	misses   *prometheus.Desc
	entries  *prometheus.Desc
	hitRatio *prometheus.Desc
}

// NewCollector returns a collector for src with metric names under namespace.
func NewCollector(src StatsSource, namespace string) *Collector {
	return &Collector{
		src: src,
		hits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "hits_total"),
			"Cache lookups that returned a live entry.", nil, nil),
		misses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "misses_total"),
			"Cache lookups that found nothing or an expired entry.", nil, nil),
		entries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "entries"),
			"Entries currently held by the cache.", nil, nil),
		hitRatio: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "hit_ratio"),
			"Hits divided by total lookups since the counters were created.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.entries
	ch <- c.hitRatio
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.Size))
	ch <- prometheus.MustNewConstMetric(c.hitRatio, prometheus.GaugeValue, s.Ratio())
}
