package destinations

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"notiroute/internal/message"
	"notiroute/internal/router"
	"notiroute/internal/storage"
	logx "notiroute/pkg/logx"
)

type DedupConfig struct {
	Window     time.Duration
	MaxEntries int
	// Persist keeps windows in the store so they survive restarts.
	Persist bool
}

// Deduping suppresses a message identical to one delivered to the same
// destination within the window. A suppressed Send returns nil, so the
// router counts it as delivered. SelfError messages (failure reports) are
// never suppressed: a report counted as delivered must have been sent.
type Deduping struct {
	id    string
	next  router.Destination
	cfg   DedupConfig
	store storage.Store
	log   logx.Logger

	now func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time // key -> suppress until
}

// Dedup wraps next. id namespaces persisted keys so two destinations never
// suppress each other.
func Dedup(id string, next router.Destination, cfg DedupConfig, store storage.Store, log logx.Logger) *Deduping {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 2000
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Deduping{
		id:    id,
		next:  next,
		cfg:   cfg,
		store: store,
		log:   log,
		now:   time.Now,
		seen:  map[string]time.Time{},
	}
}

func (d *Deduping) Send(ctx context.Context, m *message.Message) error {
	if d.cfg.Window <= 0 || m.Level == message.SelfError {
		return d.next.Send(ctx, m)
	}
	key := d.key(m)
	now := d.now()
	if d.suppressed(ctx, key, now) {
		d.log.Debug("duplicate suppressed", logx.String("destination", d.id), logx.String("key", key))
		return nil
	}
	if err := d.next.Send(ctx, m); err != nil {
		return err
	}
	d.remember(ctx, key, now.Add(d.cfg.Window), now)
	return nil
}

func (d *Deduping) key(m *message.Message) string {
	h := fnv.New64a()
	comp := ""
	if m.Component != nil {
		comp = m.Component.String()
	}
	_, _ = fmt.Fprintf(h, "%s|%s|%s|%s|", d.id, m.Level, comp, m.Title)
	_, _ = h.Write([]byte(m.Detail.Raw))
	return fmt.Sprintf("%x", h.Sum64())
}

func (d *Deduping) suppressed(ctx context.Context, key string, now time.Time) bool {
	d.mu.Lock()
	until, ok := d.seen[key]
	d.mu.Unlock()
	if ok && now.Before(until) {
		return true
	}
	if !d.cfg.Persist || d.store == nil {
		return false
	}

	cctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	until, ok, err := d.store.GetDedup(cctx, key)
	cancel()
	if err != nil {
		d.log.Debug("dedup lookup failed", logx.Err(err))
		return false
	}
	if ok && now.Before(until) {
		d.mu.Lock()
		d.seen[key] = until
		d.mu.Unlock()
		return true
	}
	return false
}

func (d *Deduping) remember(ctx context.Context, key string, until, now time.Time) {
	d.mu.Lock()
	d.seen[key] = until
	for k, u := range d.seen {
		if !now.Before(u) {
			delete(d.seen, k)
		}
	}
	// Evict earliest expiries until within the cap.
	for len(d.seen) > d.cfg.MaxEntries {
		var (
			minKey string
			minT   time.Time
		)
		for k, u := range d.seen {
			if minKey == "" || u.Before(minT) {
				minKey, minT = k, u
			}
		}
		delete(d.seen, minKey)
	}
	d.mu.Unlock()

	if d.cfg.Persist && d.store != nil {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 250*time.Millisecond)
		if err := d.store.PutDedup(cctx, key, until); err != nil {
			d.log.Warn("dedup persist failed", logx.String("destination", d.id), logx.Err(err))
		}
		cancel()
	}
}
