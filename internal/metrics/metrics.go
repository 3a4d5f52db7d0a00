package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/nodular/internal/graph"
	"github.com/specialistvlad/nodular/internal/node"
)

const namespace = "nodular"

// Label values of the result label.
const (
	resultSuccess = "success"
	resultError   = "error"
)

// Collector holds the evaluation metrics of one process.
type Collector struct {
	compiles     *prometheus.CounterVec
	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	runsInFlight prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		compiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_compiles_total",
				Help:      "Total number of node compilations, by result.",
			},
			[]string{"result"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_runs_total",
				Help:      "Total number of node executions, by node name and result.",
			},
			[]string{"node", "result"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "node_run_duration_seconds",
				Help:      "Duration of node executions.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"node"},
		),
		runsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "node_runs_in_flight",
			Help:      "Number of node executions currently running.",
		}),
	}

	for _, col := range []prometheus.Collector{c.compiles, c.runs, c.runDuration, c.runsInFlight} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Hooks returns the graph lifecycle hooks that record into c.
func (c *Collector) Hooks() graph.Hooks {
	return graph.Hooks{
		OnCompile: func(_ context.Context, _ *node.Node, err error) {
			c.compiles.WithLabelValues(result(err)).Inc()
		},
		OnRunStart: func(_ context.Context, _ *node.Node) {
			c.runsInFlight.Inc()
		},
		OnRunEnd: func(_ context.Context, n *node.Node, elapsed time.Duration, err error) {
			c.runsInFlight.Dec()
			c.runs.WithLabelValues(n.Name, result(err)).Inc()
			c.runDuration.WithLabelValues(n.Name).Observe(elapsed.Seconds())
		},
	}
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}
