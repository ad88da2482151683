package sheets

import (
	"fmt"
	"strings"

	"github.com/KevinIssaDev/AppMonitor/internal/domain"
)

// Worksheet layout: header row, then one record per row.
var headerRow = []any{"bundle_id", "name", "version", "region", "icon", "url", "notified"}

// Column letters for writable fields. Row 1 is the header, so record index i
// lives in sheet row i+2.
var fieldColumns = map[domain.Field]string{
	domain.FieldVersion:  "C",
	domain.FieldNotified: "G",
}

func encodeRow(rec domain.TrackedApplication) []any {
	notified := "0"
	if rec.Notified {
		notified = "1"
	}
	return []any{rec.BundleID, rec.Name, rec.Version, rec.Region, rec.IconURL, rec.StoreURL, notified}
}

// decodeRow turns a raw sheet row into a record. The Sheets values API
// returns cells as strings or numbers depending on formatting, so every cell
// goes through cellString. Rows missing the bundle id are malformed and
// rejected here rather than propagated inward.
func decodeRow(row []any) (domain.TrackedApplication, error) {
	cell := func(i int) string {
		if i >= len(row) {
			return ""
		}
		return cellString(row[i])
	}

	rec := domain.TrackedApplication{
		BundleID: cell(0),
		Name:     cell(1),
		Version:  cell(2),
		Region:   cell(3),
		IconURL:  cell(4),
		StoreURL: cell(5),
		Notified: cell(6) == "1",
	}
	if rec.BundleID == "" {
		return domain.TrackedApplication{}, fmt.Errorf("row has no bundle_id")
	}
	return rec, nil
}

func cellString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimPrefix(val, "'")
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case bool:
		if val {
			return "1"
		}
		return "0"
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
