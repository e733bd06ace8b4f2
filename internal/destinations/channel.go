package destinations

import (
	"context"

	"notiroute/internal/message"
)

// Channel hands messages to an in-process consumer. Send blocks until the
// consumer receives or ctx is done, so a slow consumer shows up as a
// timeout failure instead of silently dropped messages.
type Channel struct {
	ch chan<- *message.Message
}

func NewChannel(ch chan<- *message.Message) *Channel { return &Channel{ch: ch} }

func (c *Channel) Send(ctx context.Context, m *message.Message) error {
	select {
	case c.ch <- m.Clone():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
