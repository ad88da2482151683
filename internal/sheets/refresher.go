package sheets

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/KevinIssaDev/AppMonitor/internal/metrics"
)

// Refresher periodically re-authenticates the sheets client and swaps the
// shared service handle. Failures are logged and retried on the next cycle;
// the loop never terminates on its own.
type Refresher struct {
	client   *Client
	interval time.Duration
	clock    clockwork.Clock
	stopCh   chan struct{}
}

func NewRefresher(client *Client, interval time.Duration, clock clockwork.Clock) *Refresher {
	return &Refresher{
		client:   client,
		interval: interval,
		clock:    clock,
		stopCh:   make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled or Stop is called.
func (r *Refresher) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			r.refresh(ctx)
		case <-r.stopCh:
			slog.Info("Credential refresher stopped")
			return
		case <-ctx.Done():
			slog.Info("Credential refresher context cancelled")
			return
		}
	}
}

// Stop gracefully stops the refresh loop.
func (r *Refresher) Stop() {
	close(r.stopCh)
}

func (r *Refresher) refresh(ctx context.Context) {
	// The token source keeps ctx for its own future token renewals, so the
	// long-lived loop context is passed through, not a timeout child.
	if err := r.client.Reauthorize(ctx); err != nil {
		metrics.CredentialRefreshesTotal.WithLabelValues("error").Inc()
		slog.Error("Credential refresh failed, keeping previous handle", "error", err)
		return
	}

	metrics.CredentialRefreshesTotal.WithLabelValues("ok").Inc()
	slog.Info("Store credentials refreshed")
}
