package destinations

import (
	"context"
	"errors"
	"sync"
	"time"

	"notiroute/internal/message"
)

var fixedTS = time.Date(2024, 3, 1, 12, 30, 45, 123_000_000, time.UTC).UnixMilli()

func testMessage() *message.Message {
	return &message.Message{
		Level:      message.Warn,
		Title:      "disk almost full",
		Detail:     message.RawDetail("/var at 91%\nrun cleanup"),
		Component:  message.NewComponent("host/disk"),
		Author:     message.ParseAuthor("web1/cron"),
		UnixMillis: fixedTS,
	}
}

// flaky fails the first n sends.
type flaky struct {
	mu    sync.Mutex
	n     int
	calls int
}

func (f *flaky) Send(context.Context, *message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.n {
		return errors.New("transient")
	}
	return nil
}

func (f *flaky) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
