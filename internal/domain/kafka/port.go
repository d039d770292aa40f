package kafka

import (
	"context"

	"github.com/NordCoder/Feedwatch/internal/domain/activity"
)

// ActivityEvents forwards dispatched activity items to the message broker.
type ActivityEvents interface {
	PublishActivity(ctx context.Context, target activity.Target, item activity.Item) error
}
