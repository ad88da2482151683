package domain

import "context"

// --- Model types ---

// TrackedApplication is one row of a user's watch-list collection. The
// descriptive fields are captured from the catalog at add-time; Version is
// the last version recorded locally, not necessarily the live one.
type TrackedApplication struct {
	BundleID string
	Name     string
	Version  string
	Region   string
	IconURL  string
	StoreURL string
	Notified bool
}

// CatalogEntry is a single result from a catalog lookup or search.
type CatalogEntry struct {
	Name        string
	BundleID    string
	Version     string
	IconURL     string
	StoreURL    string
	Price       string
	Seller      string
	Rating      float64
	RatingCount int64
	ReleaseDate string
}

// Field names a writable column of a tracked-application row.
type Field string

const (
	FieldVersion  Field = "version"
	FieldNotified Field = "notified"
)

const (
	// MaxTrackedApplications caps a single user's collection.
	MaxTrackedApplications = 50

	// MaxBatchSize caps a single batch-add invocation (bundle ids plus an
	// optional trailing region token).
	MaxBatchSize = 11

	// PageSize is the fixed number of records per watch-list page.
	PageSize = 10

	// DefaultRegion is used when a region token is absent or unresolvable.
	DefaultRegion = "us"
)

// Input symbols offered on interactive views.
const (
	SymbolBack    = "⬅"     // left arrow
	SymbolForward = "➡"     // right arrow
	SymbolClose   = "\U0001f6ab" // no-entry sign
	SymbolConfirm = "✅"     // check mark
)

// --- Shared value types ---

// InputEvent is a single reaction event from the chat transport.
type InputEvent struct {
	Symbol string
	Actor  string
}

// PageEntry is one record of a rendered watch-list page, annotated with the
// live version fetched at render time. FreshnessKnown is false when the
// render-time lookup failed; the entry is still shown with its stored state.
type PageEntry struct {
	App            TrackedApplication
	LatestVersion  string
	Outdated       bool
	FreshnessKnown bool
}

// PageView is one rendered page of a watch-list session.
type PageView struct {
	Owner       string
	Page        int // 1-based
	PageCount   int
	Entries     []PageEntry
	AnyOutdated bool
}

// --- Interfaces ---

// WatchStore abstracts the external tabular persistence service: one row
// collection per user plus a shared region reference table. Every call is a
// synchronous round trip; there is no local caching.
type WatchStore interface {
	ListCollections(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, user string) error
	GetRecords(ctx context.Context, user string) ([]TrackedApplication, error)
	AppendRecord(ctx context.Context, user string, rec TrackedApplication) error
	FindRecord(ctx context.Context, user, bundleID string) (int, error)
	UpdateField(ctx context.Context, user string, index int, field Field, value string) error
	DeleteRecord(ctx context.Context, user string, index int) error
	Regions(ctx context.Context) (map[string]string, error)
}

// CatalogClient queries the external app catalog.
type CatalogClient interface {
	// FetchVersion returns the live version of a bundle id, never a stale or
	// sentinel value. ErrNotFound on zero results, ErrLookupFailed on faults.
	FetchVersion(ctx context.Context, bundleID, region string) (string, error)

	// Lookup returns the single unambiguous catalog match for a bundle id,
	// or ErrNotFound when the catalog yields zero or multiple results.
	Lookup(ctx context.Context, bundleID, region string) (*CatalogEntry, error)

	// Search runs a free-text catalog search.
	Search(ctx context.Context, name, region string) ([]CatalogEntry, error)
}

// NotificationSink delivers a one-time update notification to a user.
// Delivery failures are not retried by the caller within a scan cycle.
type NotificationSink interface {
	NotifyUpdate(ctx context.Context, user string, app TrackedApplication, latestVersion string) error
}

// SessionView is the message surface backing one pagination session. The
// adapter owns offering and revoking reaction symbols; Events delivers raw
// reaction events without any ownership filtering.
type SessionView interface {
	ShowFetching(ctx context.Context) error
	ShowPage(ctx context.Context, view PageView, symbols []string) error
	ShowNoOutdated(ctx context.Context) error
	ShowClosed(ctx context.Context) error
	ShowExpired(ctx context.Context) error
	Revert(ctx context.Context, ev InputEvent)
	ClearSymbols(ctx context.Context) error
	Events() <-chan InputEvent
}

// SearchView is the message surface backing one search-and-confirm flow.
type SearchView interface {
	ShowResult(ctx context.Context, entry CatalogEntry, symbols []string) error
	Revert(ctx context.Context, ev InputEvent)
	RevokeOffer(ctx context.Context) error
	Events() <-chan InputEvent
}
