package router

import (
	"context"

	"notiroute/internal/message"
)

// Destination delivers a message somewhere (a file, a webhook, a chat...).
//
// Send either delivers the message or returns an error describing why not.
// Implementations may retry internally; the router treats a returned error
// as final for that attempt. Send must be safe to call from several
// goroutines when the router runs with parallel dispatch.
type Destination interface {
	Send(ctx context.Context, m *message.Message) error
}

// DestinationFunc adapts a function to Destination.
type DestinationFunc func(ctx context.Context, m *message.Message) error

func (f DestinationFunc) Send(ctx context.Context, m *message.Message) error { return f(ctx, m) }

// RoutedDestination binds a Destination to an id and a routing policy.
// The id is only used for diagnostics.
type RoutedDestination struct {
	ID          string
	Destination Destination
	Routing     RoutingInfo
}

func (d RoutedDestination) IsRoot() bool { return d.Routing.Behaviour == Root }

func (d RoutedDestination) ShouldReceive(m *message.Message) bool { return d.Routing.AppliesTo(m) }

// Registry is the ordered list of destinations a Router delivers to.
// Order only affects report presentation. A Registry is read-only once
// handed to a Router.
type Registry struct {
	dests []RoutedDestination
}

func NewRegistry(dests ...RoutedDestination) *Registry {
	return &Registry{dests: append([]RoutedDestination(nil), dests...)}
}

// Add appends a destination. Call it only while building the registry.
func (r *Registry) Add(d RoutedDestination) { r.dests = append(r.dests, d) }

// Destinations returns the destinations in insertion order.
func (r *Registry) Destinations() []RoutedDestination {
	if r == nil {
		return nil
	}
	return append([]RoutedDestination(nil), r.dests...)
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.dests)
}

// primary returns Root and Additive destinations that accept m.
func (r *Registry) primary(m *message.Message) []RoutedDestination {
	return r.filter(func(d RoutedDestination) bool {
		return d.Routing.Behaviour.AlwaysSendMessages() && d.ShouldReceive(m)
	})
}

// drains returns Drain destinations that accept m.
func (r *Registry) drains(m *message.Message) []RoutedDestination {
	return r.filter(func(d RoutedDestination) bool {
		return d.Routing.Behaviour == Drain && d.ShouldReceive(m)
	})
}

// roots returns every escalation target regardless of its condition.
func (r *Registry) roots() []RoutedDestination {
	return r.filter(func(d RoutedDestination) bool {
		return d.Routing.Behaviour.AlwaysReceivesErrors()
	})
}

func (r *Registry) filter(keep func(RoutedDestination) bool) []RoutedDestination {
	if r == nil {
		return nil
	}
	var out []RoutedDestination
	for _, d := range r.dests {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// Plan lists, by id, the destinations a message would be offered to. The
// drain pass only runs when no primary non-root destination succeeds, so
// Drain is a candidate list.
type Plan struct {
	Primary []string
	Drain   []string
	Roots   []string
}

func (r *Registry) Plan(m *message.Message) Plan {
	ids := func(ds []RoutedDestination) []string {
		out := make([]string, 0, len(ds))
		for _, d := range ds {
			out = append(out, d.ID)
		}
		return out
	}
	return Plan{Primary: ids(r.primary(m)), Drain: ids(r.drains(m)), Roots: ids(r.roots())}
}
