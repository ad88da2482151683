package watchlist

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/KevinIssaDev/AppMonitor/internal/domain"
	"github.com/KevinIssaDev/AppMonitor/internal/metrics"
)

// State is a pagination session state.
type State int

const (
	StateRendering State = iota
	StateAwaitingInput
	StatePaging
	StateClosed
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateRendering:
		return "rendering"
	case StateAwaitingInput:
		return "awaiting_input"
	case StatePaging:
		return "paging"
	case StateClosed:
		return "closed"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

var outdatedAliases = []string{"o", "out", "outdated", "old"}

// Session presents a sorted, paged, optionally-filtered view of one user's
// collection and reacts to owner-driven navigation. The snapshot is taken
// once at construction; page freshness is re-fetched on every render.
type Session struct {
	owner        string
	view         domain.SessionView
	catalog      domain.CatalogClient
	pages        [][]domain.TrackedApplication
	cursor       int
	outdatedOnly bool
	shownAny     bool
	timeout      time.Duration
	clock        clockwork.Clock
	state        State
}

// NewSession sorts and pages a snapshot of the owner's records. sortKey is
// "name", "version", "bundle_id" (alias "bundle"), or one of the outdated
// aliases; anything else falls back to notified-first ordering.
func NewSession(
	owner string,
	records []domain.TrackedApplication,
	sortKey string,
	view domain.SessionView,
	catalog domain.CatalogClient,
	timeout time.Duration,
	clock clockwork.Clock,
) *Session {
	return &Session{
		owner:        owner,
		view:         view,
		catalog:      catalog,
		pages:        paginate(sortRecords(records, sortKey), domain.PageSize),
		outdatedOnly: slices.Contains(outdatedAliases, sortKey),
		timeout:      timeout,
		clock:        clock,
		state:        StateRendering,
	}
}

// Run drives the session to a terminal state. The caller guarantees a
// non-empty collection; an empty snapshot terminates immediately.
func (s *Session) Run(ctx context.Context) error {
	if len(s.pages) == 0 {
		return nil
	}

	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	for {
		switch s.state {
		case StateRendering:
			done, err := s.render(ctx)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
			s.state = StateAwaitingInput

		case StateAwaitingInput:
			if err := s.awaitInput(ctx); err != nil {
				metrics.SessionOutcomes.WithLabelValues("cancelled").Inc()
				return err
			}

		case StatePaging:
			s.state = StateRendering

		case StateClosed:
			metrics.SessionOutcomes.WithLabelValues("closed").Inc()
			if err := s.view.ShowClosed(ctx); err != nil {
				return err
			}
			return s.view.ClearSymbols(ctx)

		case StateExpired:
			metrics.SessionOutcomes.WithLabelValues("expired").Inc()
			if err := s.view.ShowExpired(ctx); err != nil {
				return err
			}
			return s.view.ClearSymbols(ctx)
		}
	}
}

// State reports the session's current state.
func (s *Session) State() State {
	return s.state
}

func (s *Session) render(ctx context.Context) (done bool, err error) {
	if err := s.view.ShowFetching(ctx); err != nil {
		return false, err
	}

	pv := s.renderPage(ctx)
	// The indicator replaces entering navigation at all; once a page has
	// been shown, a later all-current page must not tear the session down.
	if s.outdatedOnly && len(pv.Entries) == 0 && !s.shownAny {
		metrics.SessionOutcomes.WithLabelValues("no_outdated").Inc()
		return true, s.view.ShowNoOutdated(ctx)
	}

	s.shownAny = true
	return false, s.view.ShowPage(ctx, pv, offeredSymbols(s.cursor, len(s.pages)))
}

// renderPage fetches the live version of every record on the current page.
// A failed lookup leaves the entry visible with unknown freshness rather
// than aborting the page.
func (s *Session) renderPage(ctx context.Context) domain.PageView {
	pv := domain.PageView{
		Owner:     s.owner,
		Page:      s.cursor + 1,
		PageCount: len(s.pages),
	}

	for _, rec := range s.pages[s.cursor] {
		entry := domain.PageEntry{App: rec}
		latest, err := s.catalog.FetchVersion(ctx, rec.BundleID, rec.Region)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				slog.WarnContext(ctx, "Render: version fetch failed", "bundle_id", rec.BundleID, "error", err)
			}
		} else {
			entry.FreshnessKnown = true
			entry.LatestVersion = latest
			entry.Outdated = latest != rec.Version
		}

		if s.outdatedOnly && entry.FreshnessKnown && !entry.Outdated {
			continue
		}
		if entry.Outdated {
			pv.AnyOutdated = true
		}
		pv.Entries = append(pv.Entries, entry)
	}
	return pv
}

// awaitInput waits for a valid owner event or the expiry deadline. The
// timer runs from the last render: rejected events do not extend it.
func (s *Session) awaitInput(ctx context.Context) error {
	offered := offeredSymbols(s.cursor, len(s.pages))
	timer := s.clock.NewTimer(s.timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timer.Chan():
			s.state = StateExpired
			return nil

		case ev, ok := <-s.view.Events():
			if !ok {
				s.state = StateClosed
				return nil
			}
			next, cursor, accepted := apply(s.owner, offered, s.cursor, ev)
			if !accepted {
				s.view.Revert(ctx, ev)
				continue
			}
			if err := s.view.ClearSymbols(ctx); err != nil {
				slog.WarnContext(ctx, "Session: clearing symbols failed", "error", err)
			}
			s.state = next
			s.cursor = cursor
			return nil
		}
	}
}

// apply is the pure transition function for an input event observed while
// awaiting input. Events from non-owners or with unoffered symbols are
// rejected and leave the cursor unchanged.
func apply(owner string, offered []string, cursor int, ev domain.InputEvent) (next State, newCursor int, accepted bool) {
	if ev.Actor != owner || !slices.Contains(offered, ev.Symbol) {
		return StateAwaitingInput, cursor, false
	}
	switch ev.Symbol {
	case domain.SymbolForward:
		return StatePaging, cursor + 1, true
	case domain.SymbolBack:
		return StatePaging, cursor - 1, true
	case domain.SymbolClose:
		return StateClosed, cursor, true
	default:
		return StateAwaitingInput, cursor, false
	}
}

// offeredSymbols returns the navigation symbols valid for a page position:
// back unless on the first page, forward unless on the last, close always.
func offeredSymbols(cursor, pageCount int) []string {
	var symbols []string
	if cursor > 0 {
		symbols = append(symbols, domain.SymbolBack)
	}
	if cursor < pageCount-1 {
		symbols = append(symbols, domain.SymbolForward)
	}
	return append(symbols, domain.SymbolClose)
}

// sortRecords returns a sorted copy. Recognized keys sort case-insensitively
// ascending; anything else sorts notified-first so drifted-but-unacknowledged
// records surface at the top.
func sortRecords(records []domain.TrackedApplication, sortKey string) []domain.TrackedApplication {
	sorted := make([]domain.TrackedApplication, len(records))
	copy(sorted, records)

	if sortKey == "bundle" {
		sortKey = "bundle_id"
	}

	var key func(rec domain.TrackedApplication) string
	switch sortKey {
	case "name":
		key = func(rec domain.TrackedApplication) string { return rec.Name }
	case "version":
		key = func(rec domain.TrackedApplication) string { return rec.Version }
	case "bundle_id":
		key = func(rec domain.TrackedApplication) string { return rec.BundleID }
	default:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Notified && !sorted[j].Notified
		})
		return sorted
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return strings.ToLower(key(sorted[i])) < strings.ToLower(key(sorted[j]))
	})
	return sorted
}

func paginate(records []domain.TrackedApplication, pageSize int) [][]domain.TrackedApplication {
	var pages [][]domain.TrackedApplication
	for start := 0; start < len(records); start += pageSize {
		end := min(start+pageSize, len(records))
		pages = append(pages, records[start:end])
	}
	return pages
}
