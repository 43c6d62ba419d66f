// Package metrics records restore counters on a prometheus registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is the metrics interface used by the restore pipeline.
type Recorder interface {
	RecordCreated(relation string)
	RecordFailure(relation, class string)
	RecordSkipped(relation string)
	RecordNotice(kind string)
	RecordReused(kind string)
	ObserveRestore(status string, d time.Duration)
}

// Collector is the prometheus implementation of Recorder.
type Collector struct {
	created  *prometheus.CounterVec
	failures *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	notices  *prometheus.CounterVec
	reused   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "treeport_records_created_total",
			Help: "Records persisted during restore, by relation.",
		}, []string{"relation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "treeport_relation_failures_total",
			Help: "Records that failed to restore, by relation and class.",
		}, []string{"relation", "class"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "treeport_records_skipped_total",
			Help: "Records skipped as meaningless, by relation.",
		}, []string{"relation"}),
		notices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "treeport_notices_total",
			Help: "Informational notices, by kind.",
		}, []string{"kind"}),
		reused: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "treeport_shared_reused_total",
			Help: "Shared entities matched to an existing row instead of created, by kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "treeport_restore_duration_seconds",
			Help:    "Restore duration in seconds, by outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
	}

	reg.MustRegister(
		c.created,
		c.failures,
		c.skipped,
		c.notices,
		c.reused,
		c.duration,
	)

	return c
}

func (c *Collector) RecordCreated(relation string) {
	c.created.WithLabelValues(relation).Inc()
}

func (c *Collector) RecordFailure(relation, class string) {
	c.failures.WithLabelValues(relation, class).Inc()
}

func (c *Collector) RecordSkipped(relation string) {
	c.skipped.WithLabelValues(relation).Inc()
}

func (c *Collector) RecordNotice(kind string) {
	c.notices.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordReused(kind string) {
	c.reused.WithLabelValues(kind).Inc()
}

func (c *Collector) ObserveRestore(status string, d time.Duration) {
	c.duration.WithLabelValues(status).Observe(d.Seconds())
}

// WriteFile writes every metric gathered by g to path in the text
// exposition format.
func WriteFile(g prometheus.Gatherer, path string) error {
	return prometheus.WriteToTextfile(path, g)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordCreated(string)                {}
func (Nop) RecordFailure(string, string)        {}
func (Nop) RecordSkipped(string)                {}
func (Nop) RecordNotice(string)                 {}
func (Nop) RecordReused(string)                 {}
func (Nop) ObserveRestore(string, time.Duration) {}
