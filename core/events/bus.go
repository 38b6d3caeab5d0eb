package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-credentials/core"
)

type (
	// Handler reacts to one event. Handlers must not block on network calls.
	Handler interface {
		HandleEvent(ctx context.Context, e Event) error
	}

	// HandlerFunc adapts a plain function to Handler.
	HandlerFunc func(ctx context.Context, e Event) error

	Publisher interface {
		Publish(ctx context.Context, e Event) error
	}

	BusOption func(*Bus)

	// Bus delivers published events synchronously to the handlers subscribed to their type.
	Bus struct {
		mu     sync.RWMutex
		subs   map[Type][]Handler
		logger core.Logger
	}
)

var _ Publisher = (*Bus)(nil)

func (f HandlerFunc) HandleEvent(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// BusWithLogger injects a logger used to report handler failures.
func BusWithLogger(logger core.Logger) BusOption {
	return func(b *Bus) {
		b.logger = logger
	}
}

func NewBus(opts ...BusOption) *Bus {
	b := &Bus{subs: make(map[Type][]Handler)}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[t] = append(b.subs[t], h)
}

// Publish runs every handler of the event's type, in subscription order.
// All handlers run even if some fail; the first failure is returned.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	if e == nil {
		return errors.New("publishing nil event")
	}
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subs[e.EventType()]...)
	b.mu.RUnlock()

	var firstErr error
	for _, h := range handlers {
		if err := h.HandleEvent(ctx, e); err != nil {
			err = errors.Wrapf(err, "handling %s", e.EventType())
			if b.logger != nil {
				b.logger.Error(fmt.Sprintf("event handler failed: %v", err), err, map[string]interface{}{"event": e})
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
