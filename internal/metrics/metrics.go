// Package metrics exposes workflow execution metrics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"horse.fit/aidesk/internal/capability"
)

// Collector records workflow executions on its own registry.
type Collector struct {
	registry   *prometheus.Registry
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	batchItems *prometheus.CounterVec
	inFlight   *prometheus.GaugeVec
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aidesk",
			Name:      "workflow_executions_total",
			Help:      "Workflow executions by capability and outcome",
		}, []string{"kind", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aidesk",
			Name:      "workflow_duration_seconds",
			Help:      "Time from trigger to terminal state",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		}, []string{"kind"}),
		batchItems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aidesk",
			Name:      "batch_items_total",
			Help:      "Batch items processed",
		}, []string{"kind"}),
		inFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "aidesk",
			Name:      "workflow_in_flight",
			Help:      "1 while a workflow execution is running",
		}, []string{"kind"}),
	}
}

func (c *Collector) ObserveExecution(kind capability.Kind, outcome string, elapsed time.Duration) {
	c.executions.WithLabelValues(string(kind), outcome).Inc()
	c.duration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveBatchItem(kind capability.Kind) {
	c.batchItems.WithLabelValues(string(kind)).Inc()
}

func (c *Collector) SetInFlight(kind capability.Kind, inFlight bool) {
	value := 0.0
	if inFlight {
		value = 1
	}
	c.inFlight.WithLabelValues(string(kind)).Set(value)
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
