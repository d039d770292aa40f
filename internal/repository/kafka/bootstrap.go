package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"
)

func BootstrapConsumer(ctx context.Context, cfg *ConsumerConfig, logger *zap.Logger) *Consumer {
	_ = EnsureTopic(ctx, cfg.Brokers, TopicSpec{
		Name:              cfg.Topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
		MaxWait:           5 * time.Second,
	}, logger)

	return NewConsumer(cfg)
}

func BootstrapProducer(ctx context.Context, brokers []string, ts TopicSpec, logger *zap.Logger) *Producer {
	if err := EnsureTopic(ctx, brokers, ts, logger); err != nil && logger != nil {
		logger.Warn("topic bootstrap failed; relying on auto-create", zap.Error(err))
	}
	return NewProducer(brokers, ts.Name).WithLogger(logger)
}
