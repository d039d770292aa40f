package forwarder

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/NordCoder/Feedwatch/internal/bus"
	"github.com/NordCoder/Feedwatch/internal/domain/activity"
	"github.com/NordCoder/Feedwatch/internal/domain/kafka"
	"github.com/NordCoder/Feedwatch/internal/obs"
	"github.com/NordCoder/Feedwatch/internal/obs/retry"
	"github.com/NordCoder/Feedwatch/internal/services/poller"
)

var (
	mForwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forwarder_events_total", Help: "Activity items handed to the broker",
	}, []string{"type"})
	mDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forwarder_dropped_total", Help: "Activity items given up after retries",
	})
)

type Subscriber interface {
	Subscribe(channel string, h bus.Handler) (unsubscribe func())
}

// Forwarder mirrors everything published on the wildcard channel to Kafka.
type Forwarder struct {
	log    *zap.Logger
	sink   kafka.ActivityEvents
	policy retry.Policy
}

func New(log *zap.Logger, sink kafka.ActivityEvents, policy retry.Policy) *Forwarder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Forwarder{
		log:    log.With(zap.String("component", "forwarder")),
		sink:   sink,
		policy: policy,
	}
}

func (f *Forwarder) Attach(s Subscriber) func() {
	return s.Subscribe(poller.AllChannel, f.Handle)
}

// Handle blocks the dispatching cycle until the item is accepted or the
// retry policy gives up. A dropped item is logged and counted, never
// propagated back into the poll loop.
func (f *Forwarder) Handle(ctx context.Context, eventType string, item activity.Item) {
	target, _ := activity.TargetFrom(ctx)

	err := retry.Do(ctx, func() error {
		return f.sink.PublishActivity(ctx, target, item)
	}, f.policy)
	if err != nil {
		mDropped.Inc()
		obs.WithTrace(ctx, f.log).Error("forward failed",
			zap.Uint64("id", item.ID),
			zap.String("type", eventType),
			zap.Error(err),
		)
		return
	}
	mForwarded.WithLabelValues(eventType).Inc()
}
