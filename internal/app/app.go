// Package app wires configuration, logging, storage, destinations and the
// router into a runnable notiroute instance.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"notiroute/internal/config"
	"notiroute/internal/eventbus"
	"notiroute/internal/message"
	"notiroute/internal/metrics"
	"notiroute/internal/router"
	"notiroute/internal/storage"
	"notiroute/pkg/logx"
)

type Options struct {
	ConfigPath string
	// Verbose forces debug logging on the console.
	Verbose bool
}

type App struct {
	opts Options

	cfgm  *config.Manager
	logs  *logx.Service
	log   logx.Logger
	bus   eventbus.Bus
	store storage.Store

	registry  *prometheus.Registry
	collector *metrics.Collector
	metrics   *metrics.Server
	heartbeat *Heartbeat

	router atomic.Pointer[router.Router]
}

// New loads the config at opts.ConfigPath and builds the router. Nothing
// is started: a one-shot caller can Route immediately and Close.
func New(opts Options) (*App, error) {
	logs, log := logx.New(logx.Config{Level: "warn", Console: true})
	if opts.Verbose {
		_ = logs.Apply(logx.Config{Level: "debug", Console: true})
	}

	cfgm := config.NewManager(opts.ConfigPath, log)
	cfg, err := cfgm.Load()
	if err != nil {
		_ = logs.Close()
		return nil, fmt.Errorf("load config: %w", err)
	}
	warnings, err := config.Validate(cfg)
	if err != nil {
		_ = logs.Close()
		return nil, fmt.Errorf("invalid config %s: %w", opts.ConfigPath, err)
	}
	if err := logs.Apply(mapLogging(cfg, opts.Verbose)); err != nil {
		log.Warn("log file disabled", logx.Err(err))
	}
	for _, w := range warnings {
		log.Warn("config warning", logx.String("warning", w))
	}

	a := &App{opts: opts, cfgm: cfgm, logs: logs, log: log.With(logx.String("comp", "app")), bus: eventbus.New()}

	sc, err := mapStorage(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.store, err = storage.Open(sc, log.With(logx.String("comp", "storage"))); err != nil {
		a.Close()
		return nil, err
	}

	r, err := a.buildRouter(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.router.Store(r)

	a.registry = prometheus.NewRegistry()
	a.collector = metrics.NewCollector(a.registry, a.bus)
	if err := a.collector.Register(); err != nil {
		a.Close()
		return nil, err
	}
	a.metrics = metrics.NewServer(mapMetrics(cfg), a.registry, log)
	a.heartbeat = NewHeartbeat(a.Route, log.With(logx.String("comp", "heartbeat")))
	return a, nil
}

func (a *App) buildRouter(cfg *config.Config) (*router.Router, error) {
	reg, err := BuildRegistry(cfg, a.store, a.log)
	if err != nil {
		return nil, err
	}
	opts, err := routerOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		router.WithBus(a.bus),
		router.WithLogger(a.log.With(logx.String("comp", "router"))),
	)
	return router.New(reg, opts...), nil
}

func (a *App) Config() *config.Config { return a.cfgm.Get() }

func (a *App) Bus() eventbus.Bus { return a.bus }

func (a *App) Router() *router.Router { return a.router.Load() }

func (a *App) Logger() logx.Logger { return a.log }

// Route delivers m through the current router.
func (a *App) Route(ctx context.Context, m *message.Message) (int, error) {
	n, err := a.router.Load().Route(ctx, m)
	var report *router.DeliveryReport
	if errors.As(err, &report) {
		a.log.Warn("delivery failed",
			logx.String("route_id", report.RouteID),
			logx.Int("failed", len(report.Failures)),
			logx.Int("unreported", report.Unreported()),
		)
	}
	return n, err
}

// Plan reports where m would go without sending anything.
func (a *App) Plan(m *message.Message) router.Plan {
	return a.router.Load().Registry().Plan(m)
}

// TraceEvents writes one line per route event to w until stop is called.
// stop flushes the events already published.
func (a *App) TraceEvents(w io.Writer) (stop func()) {
	ch, unsub := a.bus.Subscribe(256, "route.")
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range ch {
			writeEvent(w, e)
		}
	}()
	return func() {
		unsub()
		<-done
	}
}

func writeEvent(w io.Writer, e eventbus.Event) {
	ev, ok := e.Data.(router.RouteEvent)
	if !ok {
		return
	}
	switch e.Type {
	case router.EventCompleted:
		fmt.Fprintf(w, "%s ok=%d failed=%d unreported=%d\n", e.Type, ev.Successful, ev.Failed, ev.Unreported)
	case router.EventUnrouted:
		fmt.Fprintf(w, "%s level=%s\n", e.Type, ev.Level)
	default:
		line := fmt.Sprintf("%s %s pass=%s took=%s", e.Type, ev.Destination, ev.Pass, ev.Took)
		if ev.Error != "" {
			line += " err=" + ev.Error
		}
		fmt.Fprintln(w, line)
	}
}

// Close releases the store and the log file. Safe after a failed New.
func (a *App) Close() {
	if a.heartbeat != nil {
		a.heartbeat.Stop()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
		a.store = nil
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
}
