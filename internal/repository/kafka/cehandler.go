package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	ceevent "github.com/cloudevents/sdk-go/v2/event"
)

// CloudEventHandler decodes structured-mode CloudEvents before handing them on.
func CloudEventHandler(handle func(ctx context.Context, key []byte, ev ceevent.Event) error) Handler {
	return func(ctx context.Context, key, value []byte) error {
		var ev ceevent.Event
		if err := json.Unmarshal(value, &ev); err != nil {
			return fmt.Errorf("decode cloudevent: %w", err)
		}
		return handle(ctx, key, ev)
	}
}
