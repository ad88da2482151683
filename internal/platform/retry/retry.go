// Package retry provides bounded exponential backoff for transient faults
// against external services. Classification is the caller's business: only
// errors the classifier reports as transient are retried, everything else
// aborts immediately.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Clock          clockwork.Clock
}

// Transient reports whether an error is worth retrying.
type Transient func(err error) bool

// Do runs op up to p.MaxAttempts times, sleeping with doubling backoff
// between attempts. The last error is returned wrapped with the attempt
// count when all attempts fail.
func Do(ctx context.Context, p Policy, transient Transient, op func() error) error {
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	backoff := p.InitialBackoff
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !transient(err) {
			return err
		}
		if attempt >= p.MaxAttempts {
			return fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
		}

		timer := clock.NewTimer(backoff)
		select {
		case <-timer.Chan():
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}

		backoff *= 2
		if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}
}
