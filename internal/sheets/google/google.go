// Package google mirrors transactions into a Google Sheets tab, one row per
// transaction id.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"finanzas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	defaultSheetName = "Transactions"
	defaultCacheTTL  = 2 * time.Minute
	lastColumn       = "I"
	unknownSheetID   = -1
	// tombstoneSuffix names the hidden tab holding "id, version" of deleted rows.
	tombstoneSuffix = "_deleted"
)

type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID  string
	sheetName      string
	tombstoneSheet string

	mu        sync.Mutex
	sheetID   int64
	tabsReady bool
	// rowIndex maps transaction id to its 1-based sheet row.
	rowIndex           map[string]indexedRow
	tombstones         map[string]int64
	cachedRowCount     int
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

type indexedRow struct {
	number  int
	version int64
}

// Ensure interface conformance
var (
	_ sheets.TransactionMirror = (*Client)(nil)
	_ sheets.RowLister         = (*Client)(nil)
)

// New creates a client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg.ServiceAccountJSON, cfg.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetName:          sheetName,
		tombstoneSheet:     sheetName + tombstoneSuffix,
		sheetID:            unknownSheetID,
		cacheValidDuration: defaultCacheTTL,
	}
}

// newSheetsService builds a Sheets service from inline JSON, a key file or
// GOOGLE_APPLICATION_CREDENTIALS, in that order.
func newSheetsService(ctx context.Context, inlineJSON, file string) (*gsheet.Service, error) {
	inlineJSON = strings.TrimSpace(inlineJSON)
	file = strings.TrimSpace(file)
	if inlineJSON == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case inlineJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(inlineJSON)
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read credentials file", "path", file, "size", len(data))
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// InvalidateRowCache forces the next call to re-read the id column.
func (c *Client) InvalidateRowCache() {
	c.mu.Lock()
	c.cacheExpiresAt = time.Time{}
	c.mu.Unlock()
}

// indexLocked returns the row index, refreshing it and the tombstones from
// the sheet when stale. Callers hold mu.
func (c *Client) indexLocked(ctx context.Context) (map[string]indexedRow, error) {
	if c.rowIndex != nil && time.Now().Before(c.cacheExpiresAt) {
		return c.rowIndex, nil
	}
	if err := c.ensureTabsLocked(ctx); err != nil {
		return nil, err
	}
	values, err := c.readRange(ctx, c.sheetName, lastColumn)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		if err := c.writeRow(ctx, 1, headerValues()); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
		values = [][]any{headerValues()}
	}
	dead, err := c.readRange(ctx, c.tombstoneSheet, "B")
	if err != nil {
		return nil, err
	}
	c.rowIndex = buildIndex(values)
	c.tombstones = buildTombstones(dead)
	c.cachedRowCount = len(values)
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	return c.rowIndex, nil
}

func (c *Client) readRange(ctx context.Context, sheet, toColumn string) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:%s", sheet, toColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) writeRow(ctx context.Context, number int, values []any) error {
	rng := fmt.Sprintf("%s!A%d:%s%d", c.sheetName, number, lastColumn, number)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) Upsert(ctx context.Context, r sheets.Row) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, err := c.indexLocked(ctx)
	if err != nil {
		return false, err
	}
	if v, dead := c.tombstones[r.ID]; dead && v >= r.Version {
		slog.DebugContext(ctx, "Skipping write for deleted transaction", "id", r.ID, "deleted_version", v, "version", r.Version)
		return false, nil
	}
	cur, exists := idx[r.ID]
	if exists && cur.version >= r.Version {
		slog.DebugContext(ctx, "Skipping stale sheet row", "id", r.ID, "stored_version", cur.version, "version", r.Version)
		return false, nil
	}

	number := cur.number
	if !exists {
		number = c.cachedRowCount + 1
	}
	if err := c.writeRow(ctx, number, rowValues(r)); err != nil {
		c.cacheExpiresAt = time.Time{}
		return false, err
	}
	idx[r.ID] = indexedRow{number: number, version: r.Version}
	if !exists {
		c.cachedRowCount = number
	}
	slog.InfoContext(ctx, "Mirrored transaction to sheet", "id", r.ID, "row", number, "version", r.Version)
	return true, nil
}

// Delete records a tombstone for id at version and removes its row. A row
// newer than version is kept.
func (c *Client) Delete(ctx context.Context, id string, version int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, err := c.indexLocked(ctx)
	if err != nil {
		return false, err
	}
	cur, exists := idx[id]
	if exists && cur.version > version {
		return false, nil
	}
	if v, dead := c.tombstones[id]; !dead || v < version {
		// Tombstone first: if the row removal fails, redelivery still finds the row.
		if err := c.appendTombstone(ctx, id, version); err != nil {
			return false, err
		}
		c.tombstones[id] = version
	} else if !exists {
		return false, nil
	}
	if !exists {
		return true, nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    c.sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(cur.number - 1),
					EndIndex:   int64(cur.number),
				},
			},
		}},
	}
	// Rows below shift up either way, so the index is rebuilt next time.
	c.cacheExpiresAt = time.Time{}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return false, fmt.Errorf("delete row %d: %w", cur.number, err)
	}
	slog.InfoContext(ctx, "Removed transaction from sheet", "id", id, "row", cur.number, "version", version)
	return true, nil
}

func (c *Client) appendTombstone(ctx context.Context, id string, version int64) error {
	rng := fmt.Sprintf("%s!A:B", c.tombstoneSheet)
	vr := &gsheet.ValueRange{Values: [][]any{{id, strconv.FormatInt(version, 10)}}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append tombstone %s: %w", id, err)
	}
	return nil
}

// ensureTabsLocked resolves the mirror tab's sheet id and creates the hidden
// tombstone tab when it is missing.
func (c *Client) ensureTabsLocked(ctx context.Context) error {
	if c.tabsReady {
		return nil
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet properties: %w", err)
	}
	haveTombstones := false
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		switch sh.Properties.Title {
		case c.sheetName:
			c.sheetID = sh.Properties.SheetId
		case c.tombstoneSheet:
			haveTombstones = true
		}
	}
	if c.sheetID == unknownSheetID {
		return fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
	}
	if !haveTombstones {
		req := &gsheet.BatchUpdateSpreadsheetRequest{
			Requests: []*gsheet.Request{{
				AddSheet: &gsheet.AddSheetRequest{
					Properties: &gsheet.SheetProperties{Title: c.tombstoneSheet, Hidden: true},
				},
			}},
		}
		if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("create tab %s: %w", c.tombstoneSheet, err)
		}
		slog.InfoContext(ctx, "Created tombstone tab", "sheet", c.tombstoneSheet)
	}
	c.tabsReady = true
	return nil
}

// Rows lists the mirrored rows, skipping the header and unparsable lines.
func (c *Client) Rows(ctx context.Context) ([]sheets.Row, error) {
	values, err := c.readRange(ctx, c.sheetName, lastColumn)
	if err != nil {
		return nil, err
	}
	var out []sheets.Row
	for i, v := range values {
		r, err := parseRow(toStrings(v))
		if err != nil {
			if i > 0 {
				slog.WarnContext(ctx, "Skipping unparsable sheet row", "row", i+1, "error", err)
			}
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
