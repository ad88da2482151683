package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"

	"github.com/KevinIssaDev/AppMonitor/internal/domain"
	"github.com/KevinIssaDev/AppMonitor/internal/metrics"
	"github.com/KevinIssaDev/AppMonitor/internal/platform/retry"
)

// regionsSheet is the shared reference worksheet mapping region names to
// region codes. It is read-only to the bot and excluded from user listings.
const regionsSheet = "countries"

// Store implements domain.WatchStore over one spreadsheet. Every operation
// is a synchronous round trip; transient transport faults (429, 5xx) are
// retried with backoff, everything else surfaces to the caller.
type Store struct {
	client *Client
	policy retry.Policy
}

func NewStore(client *Client) *Store {
	return &Store{
		client: client,
		policy: retry.Policy{
			MaxAttempts:    3,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     5 * time.Second,
		},
	}
}

func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	var titles []string
	err := s.do(ctx, "list_collections", func(svc *sheets.Service) error {
		spreadsheet, err := svc.Spreadsheets.Get(s.client.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
		if err != nil {
			return err
		}
		titles = titles[:0]
		for _, sheet := range spreadsheet.Sheets {
			if sheet.Properties == nil || sheet.Properties.Title == regionsSheet {
				continue
			}
			titles = append(titles, sheet.Properties.Title)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	return titles, nil
}

func (s *Store) CreateCollection(ctx context.Context, user string) error {
	err := s.do(ctx, "create_collection", func(svc *sheets.Service) error {
		req := &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: user},
				},
			}},
		}
		if _, err := svc.Spreadsheets.BatchUpdate(s.client.spreadsheetID, req).Context(ctx).Do(); err != nil {
			// Concurrent command invocations may race on lazy creation;
			// a sheet that already exists is fine.
			if isAlreadyExists(err) {
				return nil
			}
			return err
		}

		header := &sheets.ValueRange{Values: [][]any{headerRow}}
		_, err := svc.Spreadsheets.Values.Update(s.client.spreadsheetID, rangeFor(user, "A1"), header).
			ValueInputOption("RAW").Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("creating collection for %q: %w", user, err)
	}
	return nil
}

func (s *Store) GetRecords(ctx context.Context, user string) ([]domain.TrackedApplication, error) {
	var records []domain.TrackedApplication
	err := s.do(ctx, "get_records", func(svc *sheets.Service) error {
		resp, err := svc.Spreadsheets.Values.Get(s.client.spreadsheetID, rangeFor(user, "A2:G")).Context(ctx).Do()
		if err != nil {
			return err
		}
		records = records[:0]
		for i, row := range resp.Values {
			rec, err := decodeRow(row)
			if err != nil {
				slog.WarnContext(ctx, "Skipping malformed watch-list row", "user", user, "row", i+2, "error", err)
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		if isMissingSheet(err) {
			return nil, fmt.Errorf("%w: no collection for user %q", domain.ErrNotFound, user)
		}
		return nil, fmt.Errorf("reading records for %q: %w", user, err)
	}
	return records, nil
}

func (s *Store) AppendRecord(ctx context.Context, user string, rec domain.TrackedApplication) error {
	err := s.do(ctx, "append_record", func(svc *sheets.Service) error {
		vr := &sheets.ValueRange{Values: [][]any{encodeRow(rec)}}
		_, err := svc.Spreadsheets.Values.Append(s.client.spreadsheetID, rangeFor(user, "A1:G"), vr).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		return err
	})
	if err != nil {
		if isMissingSheet(err) {
			return fmt.Errorf("%w: no collection for user %q", domain.ErrNotFound, user)
		}
		return fmt.Errorf("appending record for %q: %w", user, err)
	}
	return nil
}

func (s *Store) FindRecord(ctx context.Context, user, bundleID string) (int, error) {
	index := -1
	err := s.do(ctx, "find_record", func(svc *sheets.Service) error {
		resp, err := svc.Spreadsheets.Values.Get(s.client.spreadsheetID, rangeFor(user, "A2:A")).Context(ctx).Do()
		if err != nil {
			return err
		}
		index = -1
		for i, row := range resp.Values {
			if len(row) > 0 && cellString(row[0]) == bundleID {
				index = i
				break
			}
		}
		return nil
	})
	if err != nil {
		if isMissingSheet(err) {
			return 0, fmt.Errorf("%w: no collection for user %q", domain.ErrNotFound, user)
		}
		return 0, fmt.Errorf("finding record for %q: %w", user, err)
	}
	if index < 0 {
		return 0, fmt.Errorf("%w: %q not in watch-list", domain.ErrNotFound, bundleID)
	}
	return index, nil
}

func (s *Store) UpdateField(ctx context.Context, user string, index int, field domain.Field, value string) error {
	column, ok := fieldColumns[field]
	if !ok {
		return fmt.Errorf("field %q is not writable", field)
	}

	err := s.do(ctx, "update_field", func(svc *sheets.Service) error {
		vr := &sheets.ValueRange{Values: [][]any{{value}}}
		_, err := svc.Spreadsheets.Values.Update(s.client.spreadsheetID, rangeFor(user, fmt.Sprintf("%s%d", column, index+2)), vr).
			ValueInputOption("RAW").Context(ctx).Do()
		return err
	})
	if err != nil {
		if isMissingSheet(err) {
			return fmt.Errorf("%w: no collection for user %q", domain.ErrNotFound, user)
		}
		return fmt.Errorf("updating %s for %q: %w", field, user, err)
	}
	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, user string, index int) error {
	err := s.do(ctx, "delete_record", func(svc *sheets.Service) error {
		sheetID, err := s.sheetID(ctx, svc, user)
		if err != nil {
			return err
		}
		req := &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				DeleteDimension: &sheets.DeleteDimensionRequest{
					Range: &sheets.DimensionRange{
						SheetId:    sheetID,
						Dimension:  "ROWS",
						StartIndex: int64(index + 1), // 0-based, row 0 is the header
						EndIndex:   int64(index + 2),
					},
				},
			}},
		}
		_, err = svc.Spreadsheets.BatchUpdate(s.client.spreadsheetID, req).Context(ctx).Do()
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("deleting record %d for %q: %w", index, user, err)
	}
	return nil
}

func (s *Store) Regions(ctx context.Context) (map[string]string, error) {
	regions := make(map[string]string)
	err := s.do(ctx, "regions", func(svc *sheets.Service) error {
		resp, err := svc.Spreadsheets.Values.Get(s.client.spreadsheetID, rangeFor(regionsSheet, "A2:B")).Context(ctx).Do()
		if err != nil {
			return err
		}
		clear(regions)
		for _, row := range resp.Values {
			if len(row) < 2 {
				continue
			}
			name := strings.ToLower(cellString(row[0]))
			code := strings.ToLower(cellString(row[1]))
			if name == "" || code == "" {
				continue
			}
			regions[name] = code
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading region table: %w", err)
	}
	return regions, nil
}

// do runs a store operation through the retry policy and records metrics.
func (s *Store) do(ctx context.Context, operation string, fn func(svc *sheets.Service) error) error {
	start := time.Now()
	err := retry.Do(ctx, s.policy, isTransient, func() error {
		return fn(s.client.service())
	})
	metrics.StoreOpDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.StoreOpsTotal.WithLabelValues(operation, status).Inc()
	return err
}

func (s *Store) sheetID(ctx context.Context, svc *sheets.Service, user string) (int64, error) {
	spreadsheet, err := svc.Spreadsheets.Get(s.client.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == user {
			return sheet.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("%w: no collection for user %q", domain.ErrNotFound, user)
}

// rangeFor builds an A1-notation range for a worksheet title. Titles are
// user identifiers (all digits), which must be quoted.
func rangeFor(title, ref string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(title, "'", "''"), ref)
}

func isTransient(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	return false
}

// isMissingSheet detects the API's response to a range naming a worksheet
// that does not exist.
func isMissingSheet(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == http.StatusNotFound {
		return true
	}
	return apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "Unable to parse range")
}

func isAlreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "already exists")
}
