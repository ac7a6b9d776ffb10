// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector counts pipeline events. It satisfies the engine's observer
// interface, so attaching it is the only wiring a run needs.
type Collector struct {
	registry *prometheus.Registry

	barsProcessed prometheus.Counter
	candidates    prometheus.Counter
	rejections    *prometheus.CounterVec
	tradesClosed  *prometheus.CounterVec
	runsCompleted prometheus.Counter
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		barsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "futrun_bars_processed_total",
			Help: "Bars consumed by the decision loop.",
		}),
		candidates: factory.NewCounter(prometheus.CounterOpts{
			Name: "futrun_candidates_generated_total",
			Help: "Trade candidates emitted by the generator.",
		}),
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "futrun_candidates_rejected_total",
			Help: "Candidates rejected before submission.",
		}, []string{"stage", "reason"}),
		tradesClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "futrun_trades_closed_total",
			Help: "Closed trades by exit reason.",
		}, []string{"exit_reason"}),
		runsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "futrun_runs_completed_total",
			Help: "Backtest runs completed.",
		}),
	}
}

// BarProcessed implements backtest.Observer.
func (c *Collector) BarProcessed() { c.barsProcessed.Inc() }

// CandidateGenerated implements backtest.Observer.
func (c *Collector) CandidateGenerated() { c.candidates.Inc() }

// Rejection implements backtest.Observer.
func (c *Collector) Rejection(stage, name string) {
	c.rejections.WithLabelValues(stage, name).Inc()
}

// TradeClosed implements backtest.Observer.
func (c *Collector) TradeClosed(exitReason string) {
	c.tradesClosed.WithLabelValues(exitReason).Inc()
}

// RunCompleted counts a finished backtest pass.
func (c *Collector) RunCompleted() { c.runsCompleted.Inc() }

// Registry exposes the underlying registry for scraping and tests.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collector's metrics in the exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
