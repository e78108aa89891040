// Package sheets provides a client for the values API of a single
// Google spreadsheet, used as the backing store of the voting site.
package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/abrezinsky/motsvote/internal/logger"
)

// Row is one spreadsheet row of cell values
type Row []string

// Client defines the spreadsheet operations used by the repository
type Client interface {
	// GetValues reads a range in A1 notation ("Votes_S25!A:G")
	GetValues(ctx context.Context, rng string) ([]Row, error)
	// AppendValues appends rows after the last row of the range
	AppendValues(ctx context.Context, rng string, rows []Row) error
	// UpdateValues overwrites the cells starting at the range
	UpdateValues(ctx context.Context, rng string, rows []Row) error
	// ClearValues empties the cells of the range
	ClearValues(ctx context.Context, rng string) error
	// SheetTitles lists the tab titles of the spreadsheet
	SheetTitles(ctx context.Context) ([]string, error)
	// AddSheet creates a new tab
	AddSheet(ctx context.Context, title string) error
	// SpreadsheetID returns the configured spreadsheet
	SpreadsheetID() string
}

const valueInputRaw = "RAW"

// GoogleClient is a Client backed by the Sheets v4 API
type GoogleClient struct {
	id      string
	svc     *gsheets.Service
	log     logger.Logger
	timeout time.Duration
}

// NewGoogleClient creates a client for spreadsheetID authenticated with a
// service account key in JSON form.
func NewGoogleClient(ctx context.Context, log logger.Logger, spreadsheetID string, credentialsJSON []byte, timeout time.Duration) (*GoogleClient, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if len(credentialsJSON) == 0 {
		return nil, fmt.Errorf("service account credentials are required")
	}

	svc, err := gsheets.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(gsheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &GoogleClient{id: spreadsheetID, svc: svc, log: log, timeout: timeout}, nil
}

// SpreadsheetID returns the configured spreadsheet
func (c *GoogleClient) SpreadsheetID() string {
	return c.id
}

func (c *GoogleClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// GetValues reads a range
func (c *GoogleClient) GetValues(ctx context.Context, rng string) ([]Row, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.svc.Spreadsheets.Values.Get(c.id, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rng, err)
	}
	rows := make([]Row, 0, len(resp.Values))
	for _, raw := range resp.Values {
		rows = append(rows, toRow(raw))
	}
	c.log.Debug("Sheets read", "range", rng, "rows", len(rows))
	return rows, nil
}

// AppendValues appends rows to the range
func (c *GoogleClient) AppendValues(ctx context.Context, rng string, rows []Row) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.svc.Spreadsheets.Values.Append(c.id, rng, &gsheets.ValueRange{Values: toValues(rows)}).
		ValueInputOption(valueInputRaw).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append %s: %w", rng, err)
	}
	c.log.Debug("Sheets append", "range", rng, "rows", len(rows))
	return nil
}

// UpdateValues overwrites cells starting at the range
func (c *GoogleClient) UpdateValues(ctx context.Context, rng string, rows []Row) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.svc.Spreadsheets.Values.Update(c.id, rng, &gsheets.ValueRange{Values: toValues(rows)}).
		ValueInputOption(valueInputRaw).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// ClearValues empties a range
func (c *GoogleClient) ClearValues(ctx context.Context, rng string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if _, err := c.svc.Spreadsheets.Values.Clear(c.id, rng, &gsheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

// SheetTitles lists the tabs of the spreadsheet
func (c *GoogleClient) SheetTitles(ctx context.Context) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	ss, err := c.svc.Spreadsheets.Get(c.id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}
	titles := make([]string, 0, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	return titles, nil
}

// AddSheet creates a tab
func (c *GoogleClient) AddSheet(ctx context.Context, title string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{Properties: &gsheets.SheetProperties{Title: title}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.id, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	c.log.Info("Created sheet tab", "title", title)
	return nil
}

func toRow(raw []interface{}) Row {
	row := make(Row, len(raw))
	for i, v := range raw {
		row[i] = fmt.Sprint(v)
	}
	return row
}

func toValues(rows []Row) [][]interface{} {
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		vals := make([]interface{}, len(r))
		for j, v := range r {
			vals[j] = v
		}
		values[i] = vals
	}
	return values
}

// EnsureSheet creates the tab when it does not exist and, for a new or
// empty tab, writes the header row. Returns whether the header was written.
func EnsureSheet(ctx context.Context, c Client, title string, header Row) (bool, error) {
	titles, err := c.SheetTitles(ctx)
	if err != nil {
		return false, err
	}
	exists := false
	for _, t := range titles {
		if t == title {
			exists = true
			break
		}
	}
	if !exists {
		if err := c.AddSheet(ctx, title); err != nil {
			return false, err
		}
	} else {
		rows, err := c.GetValues(ctx, Range(title, "A1:Z1"))
		if err != nil {
			return false, err
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			return false, nil
		}
	}
	if len(header) == 0 {
		return false, nil
	}
	if err := c.UpdateValues(ctx, Range(title, "A1"), []Row{header}); err != nil {
		return false, err
	}
	return true, nil
}

// Range builds an A1 range for a tab, quoting titles that need it
func Range(title, cells string) string {
	if strings.ContainsAny(title, " '!") {
		title = "'" + strings.ReplaceAll(title, "'", "''") + "'"
	}
	if cells == "" {
		return title
	}
	return title + "!" + cells
}
