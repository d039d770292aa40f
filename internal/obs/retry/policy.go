package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ForwardPolicy is the short variant for writes made inline with a poll
// cycle: three attempts and well under a second of backoff per item, so an
// outage drops items quickly instead of stalling the cycle behind them.
func ForwardPolicy(name string, log *zap.Logger) Policy {
	p := PublishPolicy(name, log)
	p.Attempts = 3
	p.Backoff = ExpoJitter{Base: 100 * time.Millisecond, Max: 400 * time.Millisecond, Jitter: 0.2}
	return p
}

// PublishPolicy retries broker writes with exponential backoff. Context
// cancellation is never retried.
func PublishPolicy(name string, log *zap.Logger) Policy {
	if log == nil {
		log = zap.NewNop()
	}
	return Policy{
		Name:     name,
		Attempts: 6,
		Backoff:  ExpoJitter{Base: 200 * time.Millisecond, Max: 30 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		},
		OnAttempt: func(i int, err error) {
			log.Warn("publish retry", zap.String("op", name), zap.Int("attempt", i+1), zap.Error(err))
		},
		OnExhaust: func(err error) {
			if !errors.Is(err, context.Canceled) {
				log.Error("publish retries exhausted", zap.String("op", name), zap.Error(err))
			}
		},
	}
}
