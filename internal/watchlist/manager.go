package watchlist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/KevinIssaDev/AppMonitor/internal/domain"
)

// Manager implements the watch-list mutation operations against the store
// and the catalog.
type Manager struct {
	store   domain.WatchStore
	catalog domain.CatalogClient
}

func NewManager(store domain.WatchStore, catalog domain.CatalogClient) *Manager {
	return &Manager{store: store, catalog: catalog}
}

// EnsureCollection lazily creates the user's collection on first touch.
func (m *Manager) EnsureCollection(ctx context.Context, user string) error {
	users, err := m.store.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("ensuring collection: %w", err)
	}
	for _, u := range users {
		if u == user {
			return nil
		}
	}
	return m.store.CreateCollection(ctx, user)
}

// Add resolves the bundle id against the catalog and appends a new record.
// The capacity check leaves room for exactly one more record below the cap.
func (m *Manager) Add(ctx context.Context, user, bundleID, region string) (*domain.TrackedApplication, error) {
	records, err := m.store.GetRecords(ctx, user)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if len(records) > domain.MaxTrackedApplications-1 {
		return nil, domain.ErrCapacityExceeded
	}

	if _, err := m.store.FindRecord(ctx, user, bundleID); err == nil {
		return nil, domain.ErrDuplicateEntry
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	entry, err := m.catalog.Lookup(ctx, bundleID, region)
	if err != nil {
		return nil, err
	}

	rec := domain.TrackedApplication{
		BundleID: bundleID,
		Name:     entry.Name,
		Version:  entry.Version,
		Region:   region,
		IconURL:  entry.IconURL,
		StoreURL: entry.StoreURL,
		Notified: false,
	}
	if err := m.store.AppendRecord(ctx, user, rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// AddBatch adds up to MaxBatchSize tokens in left-to-right order. When more
// than one token is given, the last token is matched once against the region
// table: on a match it becomes the region for all preceding bundle ids,
// otherwise it is treated as another bundle id and the default region is
// used throughout. The first failure aborts the remaining batch without
// rolling back records already added; both the added records and the error
// are returned.
func (m *Manager) AddBatch(ctx context.Context, user string, tokens []string) ([]domain.TrackedApplication, error) {
	if len(tokens) == 0 || len(tokens) > domain.MaxBatchSize {
		return nil, domain.ErrBatchTooLarge
	}

	region := domain.DefaultRegion
	ids := tokens
	if len(tokens) > 1 {
		if code, ok := m.resolveRegion(ctx, tokens[len(tokens)-1]); ok {
			region = code
			ids = tokens[:len(tokens)-1]
		}
	}

	var added []domain.TrackedApplication
	for _, bundleID := range ids {
		rec, err := m.Add(ctx, user, bundleID, region)
		if err != nil {
			return added, err
		}
		added = append(added, *rec)
	}
	return added, nil
}

// Remove deletes the matching record and returns its descriptive fields.
func (m *Manager) Remove(ctx context.Context, user, bundleID string) (*domain.TrackedApplication, error) {
	index, err := m.store.FindRecord(ctx, user, bundleID)
	if err != nil {
		return nil, err
	}
	records, err := m.store.GetRecords(ctx, user)
	if err != nil {
		return nil, err
	}
	if index >= len(records) {
		// The record vanished between the two round trips.
		return nil, fmt.Errorf("%w: %q not in watch-list", domain.ErrNotFound, bundleID)
	}
	rec := records[index]
	if err := m.store.DeleteRecord(ctx, user, index); err != nil {
		return nil, err
	}
	return &rec, nil
}

// RefreshOne re-fetches the live version using the record's stored region,
// overwrites the stored version, and clears the notified flag.
func (m *Manager) RefreshOne(ctx context.Context, user, bundleID string) (*domain.TrackedApplication, error) {
	index, err := m.store.FindRecord(ctx, user, bundleID)
	if err != nil {
		return nil, err
	}
	records, err := m.store.GetRecords(ctx, user)
	if err != nil {
		return nil, err
	}
	if index >= len(records) {
		return nil, fmt.Errorf("%w: %q not in watch-list", domain.ErrNotFound, bundleID)
	}
	rec := records[index]

	version, err := m.catalog.FetchVersion(ctx, bundleID, rec.Region)
	if err != nil {
		return nil, err
	}

	if err := m.store.UpdateField(ctx, user, index, domain.FieldVersion, version); err != nil {
		return nil, err
	}
	if err := m.store.UpdateField(ctx, user, index, domain.FieldNotified, "0"); err != nil {
		return nil, err
	}

	rec.Version = version
	rec.Notified = false
	return &rec, nil
}

// Records is the read path feeding the pagination session.
func (m *Manager) Records(ctx context.Context, user string) ([]domain.TrackedApplication, error) {
	return m.store.GetRecords(ctx, user)
}

// ResolveRegion matches a human-readable region name case-insensitively
// against the region table. Unresolved or empty names fall back to the
// default region.
func (m *Manager) ResolveRegion(ctx context.Context, name string) string {
	if code, ok := m.resolveRegion(ctx, name); ok {
		return code
	}
	return domain.DefaultRegion
}

func (m *Manager) resolveRegion(ctx context.Context, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	regions, err := m.store.Regions(ctx)
	if err != nil {
		return "", false
	}
	code, ok := regions[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	return strings.ToLower(code), true
}
