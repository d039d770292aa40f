package poller

import (
	"context"

	"github.com/NordCoder/Feedwatch/internal/domain/activity"
)

type Engine struct {
	Bus activity.Publisher
}

func NewEngine(bus activity.Publisher) *Engine { return &Engine{Bus: bus} }

// Process delivers every item newer than lastEventID in chronological order.
// items arrive newest first and are left untouched. advance, when set, is
// called after each item is fully delivered so the caller's high-water mark
// always points at the last completed item. Once ctx is done the remaining
// items are left for the next cycle.
func (e *Engine) Process(ctx context.Context, items []activity.Item, lastEventID uint64, advance func(id uint64)) (uint64, []activity.Item) {
	dispatched := make([]activity.Item, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			break
		}
		it := items[i]
		if it.ID <= lastEventID {
			continue
		}
		for _, ch := range ChannelsFor(it.Type) {
			if e.Bus.SubscriberCount(ch) > 0 {
				e.Bus.Publish(ctx, ch, it.Type, it)
			}
		}
		lastEventID = it.ID
		dispatched = append(dispatched, it)
		if advance != nil {
			advance(lastEventID)
		}
	}
	return lastEventID, dispatched
}
