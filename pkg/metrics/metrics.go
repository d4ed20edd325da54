// Package metrics exports flow lifecycle metrics to Prometheus. It is a
// plain event-bus collaborator: bind a Collector to a bus and every run on
// that bus is observed, with no coupling into the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/flowstone-io/flowstone/pkg/events"
	"github.com/flowstone-io/flowstone/pkg/state"
)

// Collector holds the Prometheus instruments fed by flow events.
type Collector struct {
	flowsStarted   prometheus.Counter
	flowsCompleted prometheus.Counter
	flowsFailed    prometheus.Counter
	stepRetries    prometheus.Counter
	stepsTotal     *prometheus.CounterVec
	stepDuration   *prometheus.HistogramVec
}

// NewCollector creates and registers the flow metrics with reg. Pass
// prometheus.DefaultRegisterer to use the default registry.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		flowsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowstone_flows_started_total",
			Help: "Total number of flow runs started.",
		}),
		flowsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowstone_flows_completed_total",
			Help: "Total number of flow runs completed successfully.",
		}),
		flowsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowstone_flows_failed_total",
			Help: "Total number of flow runs that failed.",
		}),
		stepRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowstone_step_retries_total",
			Help: "Total number of step retry attempts.",
		}),
		stepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowstone_steps_total",
			Help: "Total number of step executions by step name and status.",
		}, []string{"step", "status"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowstone_step_duration_seconds",
			Help:    "Wall-clock duration of completed steps.",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"}),
	}

	for _, col := range []prometheus.Collector{
		c.flowsStarted, c.flowsCompleted, c.flowsFailed,
		c.stepRetries, c.stepsTotal, c.stepDuration,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Listener returns the event listener feeding the instruments.
func (c *Collector) Listener() events.Listener {
	return func(e events.Event) {
		switch e.Type {
		case events.FlowStarted:
			c.flowsStarted.Inc()
		case events.FlowCompleted:
			c.flowsCompleted.Inc()
		case events.FlowFailed:
			c.flowsFailed.Inc()
		case events.StepRetrying:
			c.stepRetries.Inc()
		case events.StepCompleted:
			c.stepsTotal.WithLabelValues(e.Source, string(state.StepCompleted)).Inc()
			if r, ok := e.Data.(state.StepResult); ok {
				c.stepDuration.WithLabelValues(e.Source).Observe(r.Duration().Seconds())
			}
		case events.StepFailed:
			c.stepsTotal.WithLabelValues(e.Source, string(state.StepFailed)).Inc()
		case events.StepSkipped:
			c.stepsTotal.WithLabelValues(e.Source, string(state.StepSkipped)).Inc()
		}
	}
}

// Bind subscribes the collector to every event on the bus and returns the
// subscription so a caller can detach it.
func (c *Collector) Bind(bus *events.Bus) events.Subscription {
	return bus.On(events.Wildcard, c.Listener())
}
