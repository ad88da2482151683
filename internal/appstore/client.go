// Package appstore implements the catalog lookup client against the iTunes
// Search API.
package appstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/KevinIssaDev/AppMonitor/internal/domain"
	"github.com/KevinIssaDev/AppMonitor/internal/metrics"
)

const (
	defaultBaseURL = "https://itunes.apple.com"
	requestTimeout = 15 * time.Second

	endpointLookup = "lookup"
	endpointSearch = "search"
)

// Client queries the iTunes lookup and search endpoints. Identical
// concurrent version fetches are collapsed via singleflight (in-flight
// dedupe only, responses are never cached), and all requests run through a
// shared circuit breaker so a flapping catalog fails fast instead of tying
// up every scan cycle.
type Client struct {
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker
	group      singleflight.Group
}

// NewClient creates a catalog client. httpClient and baseURL may be zero
// values, in which case production defaults are used.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "itunes",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(_ string, _, to gobreaker.State) {
			metrics.BreakerStateChanges.WithLabelValues(to.String()).Inc()
		},
	})

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		breaker:    breaker,
	}
}

type catalogResult struct {
	TrackName                 string  `json:"trackName"`
	BundleID                  string  `json:"bundleId"`
	Version                   string  `json:"version"`
	ArtworkURL512             string  `json:"artworkUrl512"`
	ArtworkURL100             string  `json:"artworkUrl100"`
	TrackViewURL              string  `json:"trackViewUrl"`
	FormattedPrice            string  `json:"formattedPrice"`
	SellerName                string  `json:"sellerName"`
	AverageUserRating         float64 `json:"averageUserRating"`
	UserRatingCount           int64   `json:"userRatingCount"`
	CurrentVersionReleaseDate string  `json:"currentVersionReleaseDate"`
}

type catalogResponse struct {
	ResultCount int             `json:"resultCount"`
	Results     []catalogResult `json:"results"`
}

// FetchVersion returns the live version of bundleID in the given region.
func (c *Client) FetchVersion(ctx context.Context, bundleID, region string) (string, error) {
	key := region + "/" + bundleID
	v, err, _ := c.group.Do(key, func() (any, error) {
		// The fetch is shared between concurrent callers, so it must not
		// inherit the first caller's cancellation; the HTTP client timeout
		// bounds it instead.
		resp, err := c.lookup(context.WithoutCancel(ctx), bundleID, region)
		if err != nil {
			return "", err
		}
		// Gate on the results array, not resultCount: the two have been
		// observed to disagree in malformed responses.
		if len(resp.Results) == 0 {
			return "", fmt.Errorf("%w: no catalog entry for %q in region %q", domain.ErrNotFound, bundleID, region)
		}
		return resp.Results[0].Version, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Lookup returns the single unambiguous catalog match for bundleID.
func (c *Client) Lookup(ctx context.Context, bundleID, region string) (*domain.CatalogEntry, error) {
	resp, err := c.lookup(ctx, bundleID, region)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) != 1 {
		return nil, fmt.Errorf("%w: %d catalog entries for %q in region %q", domain.ErrNotFound, len(resp.Results), bundleID, region)
	}
	entry := toEntry(resp.Results[0])
	return &entry, nil
}

// Search runs a free-text software search in the given region.
func (c *Client) Search(ctx context.Context, name, region string) ([]domain.CatalogEntry, error) {
	query := url.Values{}
	query.Set("term", name)
	query.Set("entity", "software")
	query.Set("country", region)

	resp, err := c.get(ctx, endpointSearch, c.baseURL+"/search?"+query.Encode())
	if err != nil {
		return nil, err
	}

	entries := make([]domain.CatalogEntry, 0, len(resp.Results))
	for _, r := range resp.Results {
		entries = append(entries, toEntry(r))
	}
	return entries, nil
}

func (c *Client) lookup(ctx context.Context, bundleID, region string) (*catalogResponse, error) {
	query := url.Values{}
	query.Set("bundleId", bundleID)
	return c.get(ctx, endpointLookup, fmt.Sprintf("%s/%s/lookup?%s", c.baseURL, url.PathEscape(region), query.Encode()))
}

func (c *Client) get(ctx context.Context, endpoint, requestURL string) (*catalogResponse, error) {
	start := time.Now()
	result, err := c.breaker.Execute(func() (any, error) {
		return c.doGet(ctx, requestURL)
	})
	metrics.LookupDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: circuit open: %w", domain.ErrLookupFailed, err)
		}
		metrics.LookupRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, err
	}

	metrics.LookupRequestsTotal.WithLabelValues(endpoint, "ok").Inc()
	return result.(*catalogResponse), nil
}

func (c *Client) doGet(ctx context.Context, requestURL string) (*catalogResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", domain.ErrLookupFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLookupFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrLookupFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", domain.ErrLookupFailed, err)
	}

	var parsed catalogResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", domain.ErrLookupFailed, err)
	}
	return &parsed, nil
}

func toEntry(r catalogResult) domain.CatalogEntry {
	icon := r.ArtworkURL512
	if icon == "" {
		icon = r.ArtworkURL100
	}
	return domain.CatalogEntry{
		Name:        r.TrackName,
		BundleID:    r.BundleID,
		Version:     r.Version,
		IconURL:     icon,
		StoreURL:    r.TrackViewURL,
		Price:       r.FormattedPrice,
		Seller:      r.SellerName,
		Rating:      r.AverageUserRating,
		RatingCount: r.UserRatingCount,
		ReleaseDate: r.CurrentVersionReleaseDate,
	}
}
