// Package metrics adapts ports.MetricsCollector onto Prometheus client
// vectors, lazily registering one vector per metric name the first time
// it is observed so callers never need to pre-declare their label sets.
package metrics

import (
	"context"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kranzdev/streampipe/internal/ports"
)

// Collector is a prometheus.Registerer-backed ports.MetricsCollector.
// Counter, gauge, and histogram vectors are created on first use, keyed
// by metric name and the sorted label names of that first call; every
// later call for the same name must supply the same label set.
type Collector struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// New wraps registerer (prometheus.DefaultRegisterer if nil).
func New(registerer prometheus.Registerer) *Collector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Collector{
		registerer: registerer,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (c *Collector) counterVec(name string, labels map[string]string) *prometheus.CounterVec {
	c.mu.Lock()
	defer c.mu.Unlock()
	if vec, ok := c.counters[name]; ok {
		return vec
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, labelNames(labels))
	c.registerer.MustRegister(vec)
	c.counters[name] = vec
	return vec
}

func (c *Collector) gaugeVec(name string, labels map[string]string) *prometheus.GaugeVec {
	c.mu.Lock()
	defer c.mu.Unlock()
	if vec, ok := c.gauges[name]; ok {
		return vec
	}
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name}, labelNames(labels))
	c.registerer.MustRegister(vec)
	c.gauges[name] = vec
	return vec
}

func (c *Collector) histogramVec(name string, labels map[string]string) *prometheus.HistogramVec {
	c.mu.Lock()
	defer c.mu.Unlock()
	if vec, ok := c.histograms[name]; ok {
		return vec
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Buckets: prometheus.DefBuckets}, labelNames(labels))
	c.registerer.MustRegister(vec)
	c.histograms[name] = vec
	return vec
}

// IncCounter implements ports.MetricsCollector.
func (c *Collector) IncCounter(_ context.Context, name string, labels map[string]string) {
	c.counterVec(name, labels).With(labels).Inc()
}

// SetGauge implements ports.MetricsCollector.
func (c *Collector) SetGauge(_ context.Context, name string, value float64, labels map[string]string) {
	c.gaugeVec(name, labels).With(labels).Set(value)
}

// ObserveHistogram implements ports.MetricsCollector.
func (c *Collector) ObserveHistogram(_ context.Context, name string, value float64, labels map[string]string) {
	c.histogramVec(name, labels).With(labels).Observe(value)
}

var _ ports.MetricsCollector = (*Collector)(nil)
