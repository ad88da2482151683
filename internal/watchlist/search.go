package watchlist

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/KevinIssaDev/AppMonitor/internal/domain"
)

// SearchFlow is the stateless search-and-confirm flow: query the catalog,
// present the first result with a single confirm symbol, and add the result
// to the invoker's watch-list on confirmation. Remaining results are not
// offered.
type SearchFlow struct {
	user    string
	view    domain.SearchView
	catalog domain.CatalogClient
	manager *Manager
	timeout time.Duration
	clock   clockwork.Clock
}

func NewSearchFlow(
	user string,
	view domain.SearchView,
	catalog domain.CatalogClient,
	manager *Manager,
	timeout time.Duration,
	clock clockwork.Clock,
) *SearchFlow {
	return &SearchFlow{
		user:    user,
		view:    view,
		catalog: catalog,
		manager: manager,
		timeout: timeout,
		clock:   clock,
	}
}

// Run executes one flow. It returns the added record on confirmation, or
// (nil, nil) when the flow timed out without action. Zero search results
// surface as domain.ErrNotFound.
func (f *SearchFlow) Run(ctx context.Context, query, region string) (*domain.TrackedApplication, error) {
	entries, err := f.catalog.Search(ctx, query, region)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, domain.ErrNotFound
	}

	entry := entries[0]
	offered := []string{domain.SymbolConfirm}
	if err := f.view.ShowResult(ctx, entry, offered); err != nil {
		return nil, err
	}

	timer := f.clock.NewTimer(f.timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timer.Chan():
			return nil, f.view.RevokeOffer(ctx)

		case ev, ok := <-f.view.Events():
			if !ok {
				return nil, nil
			}
			if ev.Actor != f.user || ev.Symbol != domain.SymbolConfirm {
				f.view.Revert(ctx, ev)
				continue
			}
			return f.manager.Add(ctx, f.user, entry.BundleID, domain.DefaultRegion)
		}
	}
}
