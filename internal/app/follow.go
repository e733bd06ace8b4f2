package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"notiroute/internal/config"
	"notiroute/internal/message"
	"notiroute/internal/runtime/supervisor"
	"notiroute/pkg/logx"
	"notiroute/pkg/systemd"
)

const (
	maxLineBytes = 1 << 20
	stopTimeout  = 3 * time.Second
)

// FollowStats summarizes a follow run.
type FollowStats struct {
	Lines  int
	Failed int
}

// Follow routes every non-empty line read from in as the message built by
// newMessage, until in is exhausted or ctx is done. Meanwhile the config
// file is watched and a valid change replaces the router; the metrics
// endpoint and the heartbeat run for the duration of the call.
func (a *App) Follow(ctx context.Context, in io.Reader, newMessage func(line string) *message.Message) (FollowStats, error) {
	var stats FollowStats
	sup := supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	runCtx := sup.Context()

	a.cfgm.SetValidator(a.validate)
	sub := a.cfgm.Subscribe(4)
	sup.Go("config.watch", a.cfgm.Watch)
	sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return nil
			case cfg := <-sub:
				a.apply(c, cfg)
			}
		}
	})

	events, unsub := a.bus.Subscribe(512, "route.")
	sup.Go("metrics.collect", func(c context.Context) error {
		defer unsub()
		return a.collector.Run(c, events)
	})
	a.metrics.Start(runCtx)
	if err := a.heartbeat.Apply(runCtx, a.cfgm.Get().Heartbeat); err != nil {
		a.log.Warn("heartbeat disabled", logx.Err(err))
	}
	sup.Go("systemd.watchdog", systemd.Watchdog)

	// Not supervised: a blocked Read cannot be interrupted, so the reader is
	// left behind on shutdown.
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-runCtx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	_, _ = systemd.Ready()
	a.log.Info("following input", logx.String("config", a.cfgm.Path()))

loop:
	for {
		select {
		case <-runCtx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			stats.Lines++
			if _, err := a.Route(runCtx, newMessage(line)); err != nil {
				stats.Failed++
			}
			_, _ = systemd.Status(fmt.Sprintf("%d messages, %d with failures", stats.Lines, stats.Failed))
		}
	}

	_, _ = systemd.Stopping()
	a.heartbeat.Stop()
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	a.metrics.Stop(stopCtx)
	sup.Cancel()
	if err := sup.Wait(stopCtx); err != nil && !errors.Is(err, context.Canceled) {
		return stats, err
	}

	select {
	case err := <-readErr:
		if err != nil {
			return stats, fmt.Errorf("read input: %w", err)
		}
	default:
	}
	return stats, nil
}

// validate rejects a reload that would not build.
func (a *App) validate(_ context.Context, cfg *config.Config) error {
	if _, err := config.Validate(cfg); err != nil {
		return err
	}
	if _, err := mapStorage(cfg); err != nil {
		return err
	}
	if _, err := BuildRegistry(cfg, nil, logx.Nop()); err != nil {
		return err
	}
	if hb := cfg.Heartbeat; hb != nil && hb.Enabled {
		if _, err := ParseSchedule(hb.Schedule); err != nil {
			return fmt.Errorf("heartbeat.schedule: %w", err)
		}
	}
	return nil
}

// apply swaps in a reloaded config. Routes already running finish on the
// router they started with.
func (a *App) apply(ctx context.Context, cfg *config.Config) {
	_, _ = systemd.Reloading()
	defer func() { _, _ = systemd.Ready() }()

	warnings, _ := config.Validate(cfg)
	for _, w := range warnings {
		a.log.Warn("config warning", logx.String("warning", w))
	}
	if err := a.logs.Apply(mapLogging(cfg, a.opts.Verbose)); err != nil {
		a.log.Warn("log file disabled", logx.Err(err))
	}

	r, err := a.buildRouter(cfg)
	if err != nil {
		a.log.Warn("reloaded config not applied; keeping previous destinations", logx.Err(err))
		return
	}
	a.router.Store(r)
	a.metrics.Reconfigure(ctx, mapMetrics(cfg))
	if err := a.heartbeat.Apply(ctx, cfg.Heartbeat); err != nil {
		a.log.Warn("heartbeat disabled", logx.Err(err))
	}
	a.log.Info("destinations reloaded", logx.Int("count", r.Registry().Len()))
}
