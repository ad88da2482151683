package watchlist

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/KevinIssaDev/AppMonitor/internal/domain"
	"github.com/KevinIssaDev/AppMonitor/internal/metrics"
	"github.com/KevinIssaDev/AppMonitor/internal/platform/correlation"
)

// Notifier is the background drift scanner. After a short startup delay it
// scans every user's collection on a fixed interval: records not yet
// notified are checked against the live catalog version, and on drift a
// single notification is dispatched and the record is marked notified. The
// stored version is deliberately left untouched here - only an explicit
// refresh updates it - so a drifted record is not re-notified until the user
// refreshes it.
type Notifier struct {
	store        domain.WatchStore
	catalog      domain.CatalogClient
	sink         domain.NotificationSink
	startupDelay time.Duration
	interval     time.Duration
	clock        clockwork.Clock
	stopCh       chan struct{}
}

func NewNotifier(
	store domain.WatchStore,
	catalog domain.CatalogClient,
	sink domain.NotificationSink,
	startupDelay, interval time.Duration,
	clock clockwork.Clock,
) *Notifier {
	return &Notifier{
		store:        store,
		catalog:      catalog,
		sink:         sink,
		startupDelay: startupDelay,
		interval:     interval,
		clock:        clock,
		stopCh:       make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled or Stop is called. No iteration failure
// terminates the loop.
func (n *Notifier) Run(ctx context.Context) {
	startup := n.clock.NewTimer(n.startupDelay)
	select {
	case <-startup.Chan():
	case <-n.stopCh:
		startup.Stop()
		return
	case <-ctx.Done():
		startup.Stop()
		return
	}

	n.scan(ctx)

	ticker := n.clock.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			n.scan(ctx)
		case <-n.stopCh:
			slog.Info("Notifier stopped")
			return
		case <-ctx.Done():
			slog.Info("Notifier context cancelled")
			return
		}
	}
}

// Stop gracefully stops the scan loop.
func (n *Notifier) Stop() {
	close(n.stopCh)
}

// scan walks all collections sequentially. Per-record failures are logged
// and skipped; the next cycle retries naturally.
func (n *Notifier) scan(ctx context.Context) {
	scanCtx := correlation.WithID(ctx, correlation.NewID())
	start := n.clock.Now()

	users, err := n.store.ListCollections(scanCtx)
	if err != nil {
		slog.ErrorContext(scanCtx, "Scan: listing collections failed", "error", err)
		return
	}

	for _, user := range users {
		records, err := n.store.GetRecords(scanCtx, user)
		if err != nil {
			slog.WarnContext(scanCtx, "Scan: reading records failed", "user", user, "error", err)
			continue
		}
		for _, rec := range records {
			if rec.Notified {
				continue
			}
			n.checkRecord(scanCtx, user, rec)
		}
	}

	metrics.ScanCyclesTotal.Inc()
	metrics.ScanDuration.Observe(n.clock.Since(start).Seconds())
}

func (n *Notifier) checkRecord(ctx context.Context, user string, rec domain.TrackedApplication) {
	latest, err := n.catalog.FetchVersion(ctx, rec.BundleID, rec.Region)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.DebugContext(ctx, "Scan: bundle gone from catalog", "user", user, "bundle_id", rec.BundleID)
		} else {
			slog.WarnContext(ctx, "Scan: version fetch failed", "user", user, "bundle_id", rec.BundleID, "error", err)
		}
		return
	}
	if latest == rec.Version {
		return
	}

	// Notify first, then mark: a failed delivery is retried next cycle, a
	// marked record is never notified twice.
	if err := n.sink.NotifyUpdate(ctx, user, rec, latest); err != nil {
		metrics.NotificationsTotal.WithLabelValues("send_error").Inc()
		slog.WarnContext(ctx, "Scan: notification dispatch failed", "user", user, "bundle_id", rec.BundleID, "error", err)
		return
	}

	index, err := n.store.FindRecord(ctx, user, rec.BundleID)
	if err != nil {
		// The user may have removed the record mid-scan; benign.
		if !errors.Is(err, domain.ErrNotFound) {
			metrics.NotificationsTotal.WithLabelValues("mark_error").Inc()
			slog.WarnContext(ctx, "Scan: relocating record failed", "user", user, "bundle_id", rec.BundleID, "error", err)
		}
		return
	}
	if err := n.store.UpdateField(ctx, user, index, domain.FieldNotified, "1"); err != nil {
		metrics.NotificationsTotal.WithLabelValues("mark_error").Inc()
		slog.WarnContext(ctx, "Scan: marking record notified failed", "user", user, "bundle_id", rec.BundleID, "error", err)
		return
	}

	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	slog.InfoContext(ctx, "Update notification sent", "user", user, "bundle_id", rec.BundleID, "stored_version", rec.Version, "latest_version", latest)
}
