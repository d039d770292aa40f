package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	ceevent "github.com/cloudevents/sdk-go/v2/event"

	"github.com/NordCoder/Feedwatch/internal/domain/activity"
	"github.com/NordCoder/Feedwatch/internal/domain/kafka"
)

const (
	EventSourcePrefix = "https://api.github.com/"
	EventTypePrefix   = "com.github."
	ContentType       = "application/cloudevents+json"
)

// ActivityEventsKafka publishes items as structured-mode CloudEvents.
type ActivityEventsKafka struct {
	p *Producer
}

func NewActivityEventsKafka(p *Producer) *ActivityEventsKafka { return &ActivityEventsKafka{p: p} }

var _ kafka.ActivityEvents = (*ActivityEventsKafka)(nil)

func (e *ActivityEventsKafka) PublishActivity(ctx context.Context, target activity.Target, item activity.Item) error {
	ev, err := ToCloudEvent(target, item)
	if err != nil {
		return err
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode cloudevent: %w", err)
	}
	return e.p.Publish(ctx, KeyFromUint64(item.ID), value, map[string]string{
		"content-type": ContentType,
		"ce_type":      ev.Type(),
	})
}

func ToCloudEvent(target activity.Target, item activity.Item) (ceevent.Event, error) {
	ev := ceevent.New()
	ev.SetID(fmt.Sprintf("%d", item.ID))
	ev.SetType(EventTypePrefix + item.Type)
	ev.SetSource(EventSourcePrefix + target.String())
	if item.Repo != "" {
		ev.SetSubject(item.Repo)
	}
	if item.CreatedAt.IsZero() {
		ev.SetTime(time.Now().UTC())
	} else {
		ev.SetTime(item.CreatedAt)
	}
	if item.Actor != "" {
		ev.SetExtension("actor", item.Actor)
	}

	payload := item.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	if err := ev.SetData(ceevent.ApplicationJSON, payload); err != nil {
		return ceevent.Event{}, fmt.Errorf("set cloudevent data: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return ceevent.Event{}, fmt.Errorf("invalid cloudevent: %w", err)
	}
	return ev, nil
}
