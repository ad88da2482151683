package appstore

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KevinIssaDev/AppMonitor/internal/domain"
)

const lookupBody = `{
	"resultCount": 1,
	"results": [{
		"trackName": "Example App",
		"bundleId": "com.example.app",
		"version": "3.1.4",
		"artworkUrl512": "https://cdn.example.com/icon512.png",
		"artworkUrl100": "https://cdn.example.com/icon100.png",
		"trackViewUrl": "https://apps.example.com/app/id1",
		"formattedPrice": "Free",
		"sellerName": "Example Inc.",
		"averageUserRating": 4.5,
		"userRatingCount": 1234,
		"currentVersionReleaseDate": "2020-05-01T12:00:00Z"
	}]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), srv.URL)
}

func TestClientFetchVersion(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/de/lookup", r.URL.Path)
		assert.Equal(t, "com.example.app", r.URL.Query().Get("bundleId"))
		fmt.Fprint(w, lookupBody)
	})

	version, err := client.FetchVersion(context.Background(), "com.example.app", "de")
	require.NoError(t, err)
	assert.Equal(t, "3.1.4", version)
}

func TestClientFetchVersionNoResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"resultCount": 0, "results": []}`)
	})

	_, err := client.FetchVersion(context.Background(), "com.nope", "us")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClientLookup(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, lookupBody)
	})

	entry, err := client.Lookup(context.Background(), "com.example.app", "us")
	require.NoError(t, err)
	assert.Equal(t, "Example App", entry.Name)
	assert.Equal(t, "com.example.app", entry.BundleID)
	assert.Equal(t, "3.1.4", entry.Version)
	assert.Equal(t, "https://cdn.example.com/icon512.png", entry.IconURL)
	assert.Equal(t, "https://apps.example.com/app/id1", entry.StoreURL)
	assert.Equal(t, "Free", entry.Price)
	assert.Equal(t, "Example Inc.", entry.Seller)
	assert.InDelta(t, 4.5, entry.Rating, 0.001)
	assert.EqualValues(t, 1234, entry.RatingCount)
}

func TestClientLookupAmbiguous(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"resultCount": 2, "results": [{}, {}]}`)
	})

	_, err := client.Lookup(context.Background(), "com.example.app", "us")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClientSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "example app", r.URL.Query().Get("term"))
		assert.Equal(t, "software", r.URL.Query().Get("entity"))
		assert.Equal(t, "de", r.URL.Query().Get("country"))
		fmt.Fprint(w, `{
			"resultCount": 2,
			"results": [
				{"trackName": "First", "bundleId": "com.first", "version": "1.0", "artworkUrl100": "https://cdn.example.com/first.png"},
				{"trackName": "Second", "bundleId": "com.second", "version": "2.0"}
			]
		}`)
	})

	entries, err := client.Search(context.Background(), "example app", "de")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "First", entries[0].Name)
	// Falls back to the small artwork when no 512px variant exists.
	assert.Equal(t, "https://cdn.example.com/first.png", entries[0].IconURL)
	assert.Equal(t, "com.second", entries[1].BundleID)
}

func TestClientServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.FetchVersion(context.Background(), "com.example.app", "us")
	assert.ErrorIs(t, err, domain.ErrLookupFailed)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestClientMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"resultCount": "not a number"`)
	})

	_, err := client.Lookup(context.Background(), "com.example.app", "us")
	assert.ErrorIs(t, err, domain.ErrLookupFailed)
}

func TestClientResultCountMismatch(t *testing.T) {
	// resultCount claims an entry the results array does not carry.
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"resultCount": 1, "results": []}`)
	})

	_, err := client.FetchVersion(context.Background(), "com.example.app", "us")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = client.Lookup(context.Background(), "com.example.app", "us")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClientFetchVersionDetachedFromCallerContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, lookupBody)
	})

	// The shared fetch outlives any single caller's cancellation.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	version, err := client.FetchVersion(ctx, "com.example.app", "us")
	require.NoError(t, err)
	assert.Equal(t, "3.1.4", version)
}

func TestClientBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 5; i++ {
		_, err := client.FetchVersion(context.Background(), fmt.Sprintf("com.app.%d", i), "us")
		require.Error(t, err)
	}
	require.EqualValues(t, 5, requests.Load())

	// The breaker is open now; the request never reaches the server.
	_, err := client.FetchVersion(context.Background(), "com.app.final", "us")
	assert.ErrorIs(t, err, domain.ErrLookupFailed)
	assert.EqualValues(t, 5, requests.Load())
}

func TestClientDefaults(t *testing.T) {
	client := NewClient(nil, "")
	assert.Equal(t, defaultBaseURL, client.baseURL)
	assert.NotNil(t, client.httpClient)
}
