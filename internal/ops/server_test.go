package ops

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KevinIssaDev/AppMonitor/internal/domain"
)

// stubStore only needs a working Regions round trip for readiness checks.
type stubStore struct {
	regionsErr error
}

func (s *stubStore) ListCollections(context.Context) ([]string, error) { return nil, nil }
func (s *stubStore) CreateCollection(context.Context, string) error    { return nil }
func (s *stubStore) GetRecords(context.Context, string) ([]domain.TrackedApplication, error) {
	return nil, nil
}
func (s *stubStore) AppendRecord(context.Context, string, domain.TrackedApplication) error {
	return nil
}
func (s *stubStore) FindRecord(context.Context, string, string) (int, error) { return 0, nil }
func (s *stubStore) UpdateField(context.Context, string, int, domain.Field, string) error {
	return nil
}
func (s *stubStore) DeleteRecord(context.Context, string, int) error { return nil }
func (s *stubStore) Regions(context.Context) (map[string]string, error) {
	if s.regionsErr != nil {
		return nil, s.regionsErr
	}
	return map[string]string{"germany": "de"}, nil
}

func doRequest(s *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestLiveness(t *testing.T) {
	s := NewServer("0", &stubStore{})
	rec := doRequest(s, "/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestReadiness(t *testing.T) {
	s := NewServer("0", &stubStore{})
	rec := doRequest(s, "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadinessStoreDown(t *testing.T) {
	s := NewServer("0", &stubStore{regionsErr: errors.New("auth expired")})
	rec := doRequest(s, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unavailable")
}

func TestMetricsEndpoint(t *testing.T) {
	s := NewServer("0", &stubStore{})
	rec := doRequest(s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
