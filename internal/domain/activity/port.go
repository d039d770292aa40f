package activity

import "context"

type Transport interface {
	Fetch(ctx context.Context, t Target, validator string) (Page, error)
	FetchNext(ctx context.Context, t Target, prev Page) (Page, error)
}

type Publisher interface {
	SubscriberCount(channel string) int
	Publish(ctx context.Context, channel, eventType string, item Item)
}
