package app

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"notiroute/internal/config"
	"notiroute/internal/message"
	"notiroute/pkg/logx"
)

const defaultHeartbeatTitle = "notiroute is alive"

var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// RouteFunc delivers one message; App.Route satisfies it.
type RouteFunc func(ctx context.Context, m *message.Message) (int, error)

// Heartbeat routes a SelfInfo message on a cron schedule.
type Heartbeat struct {
	route RouteFunc
	log   logx.Logger

	mu   sync.Mutex
	cfg  config.HeartbeatConfig
	c    *cron.Cron
	ctx  context.Context
	runs int
}

func NewHeartbeat(route RouteFunc, log logx.Logger) *Heartbeat {
	return &Heartbeat{route: route, log: log}
}

// ParseSchedule validates a cron spec ("@every 1h", "0 9 * * *", ...).
func ParseSchedule(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("empty schedule")
	}
	return cronParser.Parse(spec)
}

// Apply (re)starts the schedule from cfg; nil or disabled stops it.
func (h *Heartbeat) Apply(ctx context.Context, cfg *config.HeartbeatConfig) error {
	h.Stop()
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	sched, err := ParseSchedule(cfg.Schedule)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.cfg = *cfg
	h.ctx = ctx
	h.c = cron.New(cron.WithParser(cronParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	h.c.Schedule(sched, cron.FuncJob(h.beat))
	h.c.Start()
	h.log.Info("heartbeat scheduled", logx.String("schedule", cfg.Schedule))
	return nil
}

func (h *Heartbeat) Stop() {
	h.mu.Lock()
	c := h.c
	h.c = nil
	h.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

func (h *Heartbeat) message() *message.Message {
	h.mu.Lock()
	cfg := h.cfg
	h.runs++
	runs := h.runs
	h.mu.Unlock()

	title := strings.TrimSpace(cfg.Title)
	if title == "" {
		title = defaultHeartbeatTitle
	}
	b := message.NewBuilder().
		Level(message.SelfInfo).
		Title(title).
		Detail(message.NewDetailBuilder().
			Text(message.Plain("Heartbeat "), message.Styled(strconv.Itoa(runs), message.Style{Kind: message.Bold}), message.Plain(" since start.")).
			Build()).
		Author("heartbeat")
	if c := strings.TrimSpace(cfg.Component); c != "" {
		b = b.Component(c)
	}
	return b.Build()
}

func (h *Heartbeat) beat() {
	h.mu.Lock()
	ctx := h.ctx
	h.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	if _, err := h.route(ctx, h.message()); err != nil {
		h.log.Warn("heartbeat delivery failed", logx.Err(err))
	}
}
