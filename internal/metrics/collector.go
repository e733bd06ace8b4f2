// Package metrics turns router lifecycle events into Prometheus metrics and
// optionally serves them over HTTP.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"notiroute/internal/eventbus"
	"notiroute/internal/router"
)

const namespace = "notiroute"

// Collector consumes route.* events from a bus.
type Collector struct {
	deliveries       *prometheus.CounterVec
	failures         *prometheus.CounterVec
	escalations      *prometheus.CounterVec
	escalationErrors *prometheus.CounterVec
	routes           *prometheus.CounterVec
	unreported       prometheus.Counter
	sendSeconds      *prometheus.HistogramVec
	busDropped       prometheus.CounterFunc

	registerer prometheus.Registerer
}

func newCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "router",
		Name:      name,
		Help:      help,
	}, labels)
}

// NewCollector creates the collectors. bus may be nil; then the dropped
// event counter is not exported.
func NewCollector(reg prometheus.Registerer, bus eventbus.Bus) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		deliveries:       newCounterVec("deliveries_total", "Successful deliveries by destination and pass.", "destination", "pass"),
		failures:         newCounterVec("failures_total", "Failed deliveries by destination and pass.", "destination", "pass"),
		escalations:      newCounterVec("escalations_total", "Failure reports accepted by a root destination.", "destination"),
		escalationErrors: newCounterVec("escalation_failures_total", "Failure reports a root destination could not accept.", "destination"),
		routes:           newCounterVec("routes_total", "Routed messages by outcome (ok, failed, unrouted).", "outcome"),
		unreported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "unreported_failures_total",
			Help:      "Failures that reached no root destination.",
		}),
		sendSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "send_duration_seconds",
			Help:      "Duration of a single destination send.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"destination"}),
		registerer: reg,
	}
	if bus != nil {
		c.busDropped = prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eventbus",
			Name:      "dropped_total",
			Help:      "Events dropped because a subscriber was full.",
		}, func() float64 { return float64(bus.Dropped()) })
	}
	return c
}

// Register registers every collector with the registerer.
func (c *Collector) Register() error {
	cs := []prometheus.Collector{c.deliveries, c.failures, c.escalations, c.escalationErrors, c.routes, c.unreported, c.sendSeconds}
	if c.busDropped != nil {
		cs = append(cs, c.busDropped)
	}
	for _, col := range cs {
		if err := c.registerer.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// Observe updates the metrics for one event. Events of other types are
// ignored.
func (c *Collector) Observe(e eventbus.Event) {
	ev, ok := e.Data.(router.RouteEvent)
	if !ok {
		return
	}
	switch e.Type {
	case router.EventDelivered:
		c.deliveries.WithLabelValues(ev.Destination, string(ev.Pass)).Inc()
		c.sendSeconds.WithLabelValues(ev.Destination).Observe(ev.Took.Seconds())
	case router.EventFailed:
		c.failures.WithLabelValues(ev.Destination, string(ev.Pass)).Inc()
		c.sendSeconds.WithLabelValues(ev.Destination).Observe(ev.Took.Seconds())
	case router.EventEscalated:
		c.escalations.WithLabelValues(ev.Destination).Inc()
	case router.EventEscalationFailed:
		c.escalationErrors.WithLabelValues(ev.Destination).Inc()
	case router.EventUnrouted:
		c.routes.WithLabelValues("unrouted").Inc()
	case router.EventCompleted:
		if ev.Failed > 0 {
			c.routes.WithLabelValues("failed").Inc()
			c.unreported.Add(float64(ev.Unreported))
		} else if ev.Successful > 0 {
			c.routes.WithLabelValues("ok").Inc()
		}
	}
}

// Run observes events from ch until ctx is done or ch is closed.
func (c *Collector) Run(ctx context.Context, ch <-chan eventbus.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			c.Observe(e)
		}
	}
}
