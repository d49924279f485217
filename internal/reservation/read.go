package reservation

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/driesverstreepen/studio-reservations/internal/repository"
)

// readPolicy retries read steps on transient store errors.  Writes never
// go through it: a write whose response was lost may already be applied.
type readPolicy struct {
	attempts uint
	delay    time.Duration
}

func (p readPolicy) do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.attempts
	if attempts < 1 {
		attempts = 1
	}
	return retry.Do(
		func() error { return fn(ctx) },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(p.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(repository.IsRetryable),
	)
}
