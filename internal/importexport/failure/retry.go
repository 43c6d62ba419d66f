package failure

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Service runs idempotent steps with exponential backoff.
type Service struct {
	attempts uint
	initial  time.Duration
	max      time.Duration
	log      *zap.Logger
}

// NewService returns a Service making at most attempts tries, waiting initial
// before the first retry and doubling after that.
func NewService(attempts int, initial time.Duration, log *zap.Logger) *Service {
	if attempts < 1 {
		attempts = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		attempts: uint(attempts),
		initial:  initial,
		max:      initial * 32,
		log:      log,
	}
}

// WithRetry runs fn until it succeeds, returns a Permanent error, the
// attempts are exhausted, or ctx is done. It returns the number of attempts
// made and the last error.
func (s *Service) WithRetry(ctx context.Context, action string, fn func(ctx context.Context) error) (int, error) {
	attempts := 0

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.initial
	b.MaxInterval = s.max
	b.Multiplier = 2
	b.RandomizationFactor = 0.1

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		if err := fn(ctx); err != nil {
			if Classify(err) == Permanent {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.attempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.log.Warn("retrying",
				zap.String("action", action),
				zap.Int("attempt", attempts),
				zap.Duration("next", next),
				zap.Error(err),
			)
		}),
	)
	return attempts, err
}
