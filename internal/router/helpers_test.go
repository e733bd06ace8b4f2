package router

import (
	"context"
	"errors"
	"sync"

	"notiroute/internal/message"
)

// recorder is a Destination that records what it was sent and fails with
// err when err is set.
type recorder struct {
	mu   sync.Mutex
	got  []*message.Message
	err  error
	hook func(m *message.Message)
}

func (r *recorder) Send(_ context.Context, m *message.Message) error {
	if r.hook != nil {
		r.hook(m)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, m)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func (r *recorder) last() *message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.got) == 0 {
		return nil
	}
	return r.got[len(r.got)-1]
}

func ok() *recorder { return &recorder{} }

func failing(msg string) *recorder { return &recorder{err: errors.New(msg)} }

func routed(id string, b RoutingBehaviour, d Destination) RoutedDestination {
	return RoutedDestination{ID: id, Destination: d, Routing: RoutingInfo{Behaviour: b}}
}

func msg(level message.Level, component string) *message.Message {
	return message.NewBuilder().Level(level).Title("t").Body("body").Component(component).Timestamp(1700000000000).Build()
}
