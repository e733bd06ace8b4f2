package router

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"notiroute/internal/eventbus"
	"notiroute/internal/message"
	logx "notiroute/pkg/logx"
)

// ErrDestinationPanic wraps a panic raised inside a Destination.Send.
var ErrDestinationPanic = errors.New("destination panicked")

// Router routes messages to the destinations of a Registry.
//
// A Router holds no per-call state; Route may be called concurrently.
type Router struct {
	registry *Registry

	log         logx.Logger
	bus         eventbus.Bus
	tracer      trace.Tracer
	parallel    bool
	sendTimeout time.Duration
}

type Option func(*Router)

func WithLogger(log logx.Logger) Option { return func(r *Router) { r.log = log } }

// WithBus publishes route.* events for every attempt.
func WithBus(bus eventbus.Bus) Option { return func(r *Router) { r.bus = bus } }

func WithTracer(t trace.Tracer) Option { return func(r *Router) { r.tracer = t } }

// WithParallel dispatches the sends of each pass concurrently. The pass
// still settles completely before the next one starts.
func WithParallel(enabled bool) Option { return func(r *Router) { r.parallel = enabled } }

// WithSendTimeout bounds every single Send call. Zero disables the bound.
func WithSendTimeout(d time.Duration) Option { return func(r *Router) { r.sendTimeout = d } }

func New(reg *Registry, opts ...Option) *Router {
	if reg == nil {
		reg = NewRegistry()
	}
	r := &Router{registry: reg}
	for _, o := range opts {
		o(r)
	}
	if r.log.IsZero() {
		r.log = logx.Nop()
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer("notiroute/router")
	}
	if r.sendTimeout < 0 {
		r.sendTimeout = 0
	}
	return r
}

func (r *Router) Registry() *Registry { return r.registry }

// outcome is the result of one attempted delivery.
type outcome struct {
	dest RoutedDestination
	err  error
}

// Route delivers m and returns the number of successful deliveries.
//
// When at least one delivery failed, the returned error is a
// *DeliveryReport describing every failure and how its escalation went.
// A message no destination accepted is not an error; it is logged and
// published as route.unrouted.
func (r *Router) Route(ctx context.Context, m *message.Message) (int, error) {
	if m == nil {
		return 0, errors.New("router: nil message")
	}

	routeID := uuid.NewString()
	ctx, span := r.tracer.Start(ctx, "router.Route", trace.WithAttributes(
		attribute.String("route.id", routeID),
		attribute.String("message.level", m.Level.String()),
	))
	defer span.End()

	log := r.log.With(logx.String("route_id", routeID))

	outcomes := r.dispatch(ctx, routeID, PassPrimary, r.registry.primary(m), m)

	// Root deliveries never count: a Root is a log, not a consumer.
	reachedNonRoot := false
	for _, o := range outcomes {
		if o.err == nil && !o.dest.IsRoot() {
			reachedNonRoot = true
			break
		}
	}
	if !reachedNonRoot {
		outcomes = append(outcomes, r.dispatch(ctx, routeID, PassDrain, r.registry.drains(m), m)...)
	}

	if len(outcomes) == 0 {
		log.Warn("message matched no destination", logx.String("level", m.Level.String()), logx.String("title", m.Title))
		r.publish(EventUnrouted, RouteEvent{RouteID: routeID, Level: m.Level.String()})
	}

	successful := 0
	var failures []SendFailure
	for _, o := range outcomes {
		if o.err == nil {
			successful++
			continue
		}
		failures = append(failures, SendFailure{DestinationID: o.dest.ID, Err: o.err, Message: m})
	}
	span.SetAttributes(attribute.Int("route.successful", successful), attribute.Int("route.failed", len(failures)))

	if len(failures) == 0 {
		r.publish(EventCompleted, RouteEvent{RouteID: routeID, Level: m.Level.String(), Successful: successful})
		return successful, nil
	}

	report := &DeliveryReport{
		RouteID:    routeID,
		Message:    m,
		Successful: successful,
		Failures:   r.escalate(ctx, routeID, failures),
	}
	span.SetStatus(codes.Error, report.Error())
	r.publish(EventCompleted, RouteEvent{
		RouteID:    routeID,
		Level:      m.Level.String(),
		Successful: successful,
		Failed:     len(failures),
		Unreported: report.Unreported(),
	})
	return successful, report
}

// dispatch attempts delivery of m to every destination in dests and returns
// one outcome per destination, in the same order.
func (r *Router) dispatch(ctx context.Context, routeID string, pass Pass, dests []RoutedDestination, m *message.Message) []outcome {
	out := make([]outcome, len(dests))
	if len(dests) == 0 {
		return out
	}
	if !r.parallel || len(dests) == 1 {
		for i, d := range dests {
			out[i] = outcome{dest: d, err: r.send(ctx, routeID, pass, d, m)}
		}
		return out
	}

	// Each goroutine owns its slot; the WaitGroup is the join point.
	var wg sync.WaitGroup
	wg.Add(len(dests))
	for i, d := range dests {
		go func(i int, d RoutedDestination) {
			defer wg.Done()
			out[i] = outcome{dest: d, err: r.send(ctx, routeID, pass, d, m)}
		}(i, d)
	}
	wg.Wait()
	return out
}

func (r *Router) send(ctx context.Context, routeID string, pass Pass, d RoutedDestination, m *message.Message) (err error) {
	ctx, span := r.tracer.Start(ctx, "router.send", trace.WithAttributes(
		attribute.String("destination.id", d.ID),
		attribute.String("route.pass", string(pass)),
	))
	defer span.End()

	if r.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.sendTimeout)
		defer cancel()
	}

	start := time.Now()
	err = r.invoke(ctx, d, m)
	took := time.Since(start)

	ev := RouteEvent{RouteID: routeID, Destination: d.ID, Pass: pass, Level: m.Level.String(), Took: took}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ev.Error = err.Error()
	}

	switch {
	case err == nil && pass == PassEscalation:
		r.publish(EventEscalated, ev)
	case err == nil:
		r.publish(EventDelivered, ev)
		r.log.Debug("delivered", logx.String("route_id", routeID), logx.String("destination", d.ID), logx.String("pass", string(pass)), logx.Duration("took", took))
	case pass == PassEscalation:
		r.publish(EventEscalationFailed, ev)
		r.log.Error("failure report could not be delivered", logx.String("route_id", routeID), logx.String("destination", d.ID), logx.Err(err))
	default:
		r.publish(EventFailed, ev)
		r.log.Warn("delivery failed", logx.String("route_id", routeID), logx.String("destination", d.ID), logx.String("pass", string(pass)), logx.Err(err))
	}
	return err
}

// invoke calls Send, turning a panic into an error so one broken
// destination cannot abort the pass.
func (r *Router) invoke(ctx context.Context, d RoutedDestination, m *message.Message) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("destination panicked", logx.String("destination", d.ID), logx.Any("panic", p), logx.String("stack", string(debug.Stack())))
			err = fmt.Errorf("%w: %v", ErrDestinationPanic, p)
		}
	}()
	if d.Destination == nil {
		return errors.New("destination not configured")
	}
	return d.Destination.Send(ctx, m)
}

func (r *Router) publish(typ string, ev RouteEvent) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(eventbus.Event{Type: typ, Time: time.Now(), Data: ev})
}
