package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/NordCoder/Feedwatch/internal/domain/activity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

type Handler func(ctx context.Context, eventType string, item activity.Item)

type subscription struct {
	id uint64
	h  Handler
}

// Bus is an in-process publish/subscribe hub keyed by channel name. Handlers
// run synchronously on the publisher's goroutine in subscription order, so a
// single channel sees events in exactly the order they were published.
type Bus struct {
	log *zap.Logger

	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]subscription
}

var _ activity.Publisher = (*Bus)(nil)

var (
	busDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bus_deliveries_total", Help: "Events handed to subscribers.",
	}, []string{"channel"})
	busPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bus_handler_panics_total", Help: "Subscriber handlers that panicked.",
	})
)

func New(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		log:  log.With(zap.String("component", "bus")),
		subs: make(map[string][]subscription),
	}
}

// Subscribe registers h on channel. The returned func removes it again and is
// safe to call more than once.
func (b *Bus) Subscribe(channel string, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[channel] = append(b.subs[channel], subscription{id: id, h: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(channel, id) })
	}
}

func (b *Bus) unsubscribe(channel string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[channel]
	for i, s := range list {
		if s.id != id {
			continue
		}
		rest := make([]subscription, 0, len(list)-1)
		rest = append(rest, list[:i]...)
		rest = append(rest, list[i+1:]...)
		if len(rest) == 0 {
			delete(b.subs, channel)
		} else {
			b.subs[channel] = rest
		}
		return
	}
}

func (b *Bus) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

func (b *Bus) Publish(ctx context.Context, channel, eventType string, item activity.Item) {
	b.mu.RLock()
	list := b.subs[channel]
	b.mu.RUnlock()

	for _, s := range list {
		b.deliver(ctx, channel, s, eventType, item)
	}
}

func (b *Bus) deliver(ctx context.Context, channel string, s subscription, eventType string, item activity.Item) {
	defer func() {
		if r := recover(); r != nil {
			busPanics.Inc()
			b.log.Error("subscriber panic",
				zap.String("channel", channel),
				zap.Uint64("event_id", item.ID),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	s.h(ctx, eventType, item)
	busDelivered.WithLabelValues(channel).Inc()
}
