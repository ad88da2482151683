// Package sheets implements the watch store on top of a Google Sheets
// spreadsheet: one worksheet per user plus a shared region reference
// worksheet.
package sheets

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var scopes = []string{
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/drive.file",
}

// Client holds the authorized Sheets service behind an atomic pointer. Every
// store call resolves the current handle at call time, so a credential
// refresh swapping the handle is observed by all subsequent calls without
// further synchronization. A call already in flight during a swap keeps its
// old handle; that is a known hazard, not a guarantee.
type Client struct {
	spreadsheetID   string
	credentialsFile string
	svc             atomic.Pointer[sheets.Service]
}

// NewClient builds an authorized client from a service-account key file.
func NewClient(ctx context.Context, credentialsFile, spreadsheetID string) (*Client, error) {
	c := &Client{
		spreadsheetID:   spreadsheetID,
		credentialsFile: credentialsFile,
	}
	if err := c.Reauthorize(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Reauthorize rebuilds the Sheets service from the key file and swaps it in.
func (c *Client) Reauthorize(ctx context.Context) error {
	data, err := os.ReadFile(c.credentialsFile)
	if err != nil {
		return fmt.Errorf("reading credentials file: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(data, scopes...)
	if err != nil {
		return fmt.Errorf("parsing service account key: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithTokenSource(jwt.TokenSource(ctx)))
	if err != nil {
		return fmt.Errorf("creating sheets service: %w", err)
	}

	c.svc.Store(svc)
	return nil
}

func (c *Client) service() *sheets.Service {
	return c.svc.Load()
}
