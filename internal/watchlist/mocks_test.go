package watchlist

import (
	"context"
	"fmt"
	"sync"

	"github.com/KevinIssaDev/AppMonitor/internal/domain"
)

// --- In-memory watch store ---

type fakeStore struct {
	mu          sync.Mutex
	collections map[string][]domain.TrackedApplication
	regions     map[string]string

	appendCalls int
	updateCalls int

	listErr   error
	getErr    error
	appendErr error
	updateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		collections: make(map[string][]domain.TrackedApplication),
		regions:     make(map[string]string),
	}
}

func (s *fakeStore) seed(user string, recs ...domain.TrackedApplication) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[user] = append([]domain.TrackedApplication{}, recs...)
}

func (s *fakeStore) records(user string) []domain.TrackedApplication {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.TrackedApplication{}, s.collections[user]...)
}

func (s *fakeStore) ListCollections(_ context.Context) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]string, 0, len(s.collections))
	for user := range s.collections {
		users = append(users, user)
	}
	return users, nil
}

func (s *fakeStore) CreateCollection(_ context.Context, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[user]; !ok {
		s.collections[user] = nil
	}
	return nil
}

func (s *fakeStore) GetRecords(_ context.Context, user string) ([]domain.TrackedApplication, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, ok := s.collections[user]
	if !ok {
		return nil, fmt.Errorf("%w: no collection for user %q", domain.ErrNotFound, user)
	}
	return append([]domain.TrackedApplication{}, recs...), nil
}

func (s *fakeStore) AppendRecord(_ context.Context, user string, rec domain.TrackedApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendCalls++
	if s.appendErr != nil {
		return s.appendErr
	}
	if _, ok := s.collections[user]; !ok {
		return fmt.Errorf("%w: no collection for user %q", domain.ErrNotFound, user)
	}
	s.collections[user] = append(s.collections[user], rec)
	return nil
}

func (s *fakeStore) FindRecord(_ context.Context, user, bundleID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, ok := s.collections[user]
	if !ok {
		return 0, fmt.Errorf("%w: no collection for user %q", domain.ErrNotFound, user)
	}
	for i, rec := range recs {
		if rec.BundleID == bundleID {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q not in watch-list", domain.ErrNotFound, bundleID)
}

func (s *fakeStore) UpdateField(_ context.Context, user string, index int, field domain.Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	if s.updateErr != nil {
		return s.updateErr
	}
	recs, ok := s.collections[user]
	if !ok || index >= len(recs) {
		return fmt.Errorf("%w: record %d for user %q", domain.ErrNotFound, index, user)
	}
	switch field {
	case domain.FieldVersion:
		recs[index].Version = value
	case domain.FieldNotified:
		recs[index].Notified = value == "1"
	default:
		return fmt.Errorf("field %q is not writable", field)
	}
	return nil
}

func (s *fakeStore) DeleteRecord(_ context.Context, user string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, ok := s.collections[user]
	if !ok || index >= len(recs) {
		return fmt.Errorf("%w: record %d for user %q", domain.ErrNotFound, index, user)
	}
	s.collections[user] = append(recs[:index], recs[index+1:]...)
	return nil
}

func (s *fakeStore) Regions(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.regions))
	for name, code := range s.regions {
		out[name] = code
	}
	return out, nil
}

// --- Catalog mock ---

type fakeCatalog struct {
	mu            sync.Mutex
	versions      map[string]string // bundle id -> live version
	entries       map[string]domain.CatalogEntry
	searchResults []domain.CatalogEntry

	fetchErrs  map[string]error
	searchErr  error
	fetchCalls int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		versions:  make(map[string]string),
		entries:   make(map[string]domain.CatalogEntry),
		fetchErrs: make(map[string]error),
	}
}

func (c *fakeCatalog) FetchVersion(_ context.Context, bundleID, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchCalls++
	if err, ok := c.fetchErrs[bundleID]; ok {
		return "", err
	}
	version, ok := c.versions[bundleID]
	if !ok {
		return "", fmt.Errorf("%w: no catalog entry for %q", domain.ErrNotFound, bundleID)
	}
	return version, nil
}

func (c *fakeCatalog) Lookup(_ context.Context, bundleID, _ string) (*domain.CatalogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[bundleID]
	if !ok {
		return nil, fmt.Errorf("%w: no catalog entry for %q", domain.ErrNotFound, bundleID)
	}
	return &entry, nil
}

func (c *fakeCatalog) Search(_ context.Context, _, _ string) ([]domain.CatalogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	return append([]domain.CatalogEntry{}, c.searchResults...), nil
}

// --- Notification sink mock ---

type sentNotification struct {
	User          string
	BundleID      string
	LatestVersion string
}

type fakeSink struct {
	mu      sync.Mutex
	sendErr error
	sent    []sentNotification
}

func (s *fakeSink) NotifyUpdate(_ context.Context, user string, app domain.TrackedApplication, latestVersion string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, sentNotification{User: user, BundleID: app.BundleID, LatestVersion: latestVersion})
	return nil
}

func (s *fakeSink) notifications() []sentNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentNotification{}, s.sent...)
}

// --- Session view mock ---

type fakeSessionView struct {
	mu         sync.Mutex
	events     chan domain.InputEvent
	pages      []domain.PageView
	symbols    [][]string
	reverted   []domain.InputEvent
	fetching   int
	noOutdated int
	closed     int
	expired    int
	cleared    int
}

func newFakeSessionView() *fakeSessionView {
	return &fakeSessionView{events: make(chan domain.InputEvent, 16)}
}

func (v *fakeSessionView) ShowFetching(_ context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fetching++
	return nil
}

func (v *fakeSessionView) ShowPage(_ context.Context, pv domain.PageView, symbols []string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pages = append(v.pages, pv)
	v.symbols = append(v.symbols, symbols)
	return nil
}

func (v *fakeSessionView) ShowNoOutdated(_ context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.noOutdated++
	return nil
}

func (v *fakeSessionView) ShowClosed(_ context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed++
	return nil
}

func (v *fakeSessionView) ShowExpired(_ context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.expired++
	return nil
}

func (v *fakeSessionView) Revert(_ context.Context, ev domain.InputEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reverted = append(v.reverted, ev)
}

func (v *fakeSessionView) ClearSymbols(_ context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cleared++
	return nil
}

func (v *fakeSessionView) Events() <-chan domain.InputEvent {
	return v.events
}

func (v *fakeSessionView) shownPages() []domain.PageView {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.PageView{}, v.pages...)
}

func (v *fakeSessionView) expiredCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.expired
}

func (v *fakeSessionView) revertedEvents() []domain.InputEvent {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.InputEvent{}, v.reverted...)
}

// --- Search view mock ---

type fakeSearchView struct {
	mu       sync.Mutex
	events   chan domain.InputEvent
	results  []domain.CatalogEntry
	reverted []domain.InputEvent
	revoked  int
}

func newFakeSearchView() *fakeSearchView {
	return &fakeSearchView{events: make(chan domain.InputEvent, 16)}
}

func (v *fakeSearchView) ShowResult(_ context.Context, entry domain.CatalogEntry, _ []string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.results = append(v.results, entry)
	return nil
}

func (v *fakeSearchView) Revert(_ context.Context, ev domain.InputEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reverted = append(v.reverted, ev)
}

func (v *fakeSearchView) RevokeOffer(_ context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.revoked++
	return nil
}

func (v *fakeSearchView) Events() <-chan domain.InputEvent {
	return v.events
}

func (v *fakeSearchView) revokedCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.revoked
}
