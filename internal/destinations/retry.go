package destinations

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"notiroute/internal/message"
	"notiroute/internal/router"
	logx "notiroute/pkg/logx"
)

type RetryConfig struct {
	// Max is the number of retries after the first attempt.
	Max      int
	Base     time.Duration
	MaxDelay time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.Max < 0 {
		c.Max = 0
	}
	if c.Base <= 0 {
		c.Base = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	return c
}

// Retrying retries a failing destination with exponential backoff. The
// router sees a single Send that fails only when every attempt failed.
type Retrying struct {
	next router.Destination
	cfg  RetryConfig
	log  logx.Logger
}

func Retry(next router.Destination, cfg RetryConfig, log logx.Logger) *Retrying {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Retrying{next: next, cfg: cfg.withDefaults(), log: log}
}

func (r *Retrying) Send(ctx context.Context, m *message.Message) error {
	attempts := 1 + r.cfg.Max
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = r.next.Send(ctx, m); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		r.log.Debug("send failed, retrying", logx.Err(err), logx.Int("attempt", attempt), logx.Int("max", attempts))

		t := time.NewTimer(retryDelay(r.cfg, attempt))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%w (retry aborted: %v)", err, ctx.Err())
		}
	}
	if attempts > 1 {
		return fmt.Errorf("after %d attempts: %w", attempts, err)
	}
	return err
}

// retryDelay is the wait before attempt+1: Base*2^(attempt-1), capped at
// MaxDelay, with 0.7..1.3 jitter.
func retryDelay(cfg RetryConfig, attempt int) time.Duration {
	d := cfg.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= cfg.MaxDelay {
			d = cfg.MaxDelay
			break
		}
	}
	d = time.Duration(float64(d) * (0.7 + rand.Float64()*0.6))
	return min(max(d, 0), cfg.MaxDelay)
}
