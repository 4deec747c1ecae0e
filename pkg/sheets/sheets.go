package sheets

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"sheetstore/pkg/record"
	"sheetstore/pkg/table"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Client is a table.GridStore backed by the Google Sheets values API.
// Range.Document is the spreadsheet ID and Range.Name the tab (or A1 range).
type Client struct {
	service     *sheets.Service
	renderMode  string
	maxRetries  int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

var _ table.GridStore = (*Client)(nil)

// Options configures NewClient.
type Options struct {
	// CredentialsJSON is a service account key. It takes precedence over
	// CredentialsFile. With neither set the client relies on ClientOptions
	// or application default credentials.
	CredentialsJSON []byte
	CredentialsFile string
	// TokenCachePath persists access tokens between runs when set.
	TokenCachePath string
	// ValueRenderOption defaults to RenderFormatted, which returns cells as
	// displayed and so depends on each cell's number format. Under
	// USER_ENTERED input the store also keeps numbers as doubles, losing
	// integers above 2^53. Tables that need exact numeric round trips should
	// use RenderUnformatted, or write with InputRaw.
	ValueRenderOption string
	// MaxRetries bounds retries of rate limited calls. Zero disables them.
	MaxRetries    int
	BaseBackoff   time.Duration
	ClientOptions []option.ClientOption
}

// NewClient builds a client from a service account key when one is given,
// otherwise from opts.ClientOptions alone.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	clientOpts := append([]option.ClientOption(nil), opts.ClientOptions...)

	key := opts.CredentialsJSON
	if len(key) == 0 && opts.CredentialsFile != "" {
		var err error
		if key, err = CredentialsFromFile(opts.CredentialsFile); err != nil {
			return nil, err
		}
	}
	if len(key) > 0 {
		ts, err := tokenSource(ctx, key, opts.TokenCachePath)
		if err != nil {
			return nil, err
		}
		clientOpts = append(clientOpts, option.WithTokenSource(ts))
	}

	srv, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets client: %w", err)
	}

	c := &Client{
		service:     srv,
		renderMode:  opts.ValueRenderOption,
		maxRetries:  opts.MaxRetries,
		baseBackoff: opts.BaseBackoff,
		maxBackoff:  60 * time.Second,
	}
	if c.renderMode == "" {
		c.renderMode = RenderFormatted
	}
	if c.baseBackoff <= 0 {
		c.baseBackoff = time.Second
	}
	return c, nil
}

func (c *Client) Clear(ctx context.Context, rng table.Range) error {
	log.WithField("range", rng.String()).Debug("Clearing range")
	return c.retry(ctx, table.OpClear, func() error {
		_, err := c.service.Spreadsheets.Values.Clear(
			rng.Document,
			rng.Name,
			&sheets.ClearValuesRequest{},
		).Context(ctx).Do()
		return err
	})
}

func (c *Client) Write(ctx context.Context, rng table.Range, grid record.Grid, mode table.InputMode) error {
	log.WithFields(log.Fields{"range": rng.String(), "rows": len(grid)}).Debug("Writing rows")
	req := &sheets.ValueRange{
		Range:  rng.Name,
		Values: toValues(grid),
	}
	return c.retry(ctx, table.OpWrite, func() error {
		_, err := c.service.Spreadsheets.Values.Update(rng.Document, rng.Name, req).
			ValueInputOption(string(mode)).
			IncludeValuesInResponse(false).
			Context(ctx).Do()
		return err
	})
}

func (c *Client) Append(ctx context.Context, rng table.Range, row []string, mode table.InputMode) error {
	log.WithField("range", rng.String()).Debug("Appending row")
	req := &sheets.ValueRange{
		Range:  rng.Name,
		Values: toValues(record.Grid{row}),
	}
	return c.retry(ctx, table.OpAppend, func() error {
		_, err := c.service.Spreadsheets.Values.Append(rng.Document, rng.Name, req).
			ValueInputOption(string(mode)).
			InsertDataOption(insertRows).
			IncludeValuesInResponse(false).
			Context(ctx).Do()
		return err
	})
}

// Read returns the range as text cells. The API omits trailing empty cells,
// so rows are padded to the width of the widest row.
func (c *Client) Read(ctx context.Context, rng table.Range) (record.Grid, bool, error) {
	var resp *sheets.ValueRange
	err := c.retry(ctx, table.OpRead, func() error {
		var err error
		resp, err = c.service.Spreadsheets.Values.Get(rng.Document, rng.Name).
			ValueRenderOption(c.renderMode).
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if resp == nil || len(resp.Values) == 0 {
		log.WithField("range", rng.String()).Debug("Range has no values")
		return nil, false, nil
	}
	grid := toGrid(resp.Values)
	log.WithFields(log.Fields{"range": rng.String(), "rows": len(grid)}).Debug("Read rows")
	return grid, true, nil
}

// EnsureTab adds a tab called title to the document unless one exists.
func (c *Client) EnsureTab(ctx context.Context, document, title string) error {
	ss, err := c.service.Spreadsheets.Get(document).Context(ctx).Do()
	if err != nil {
		return err
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}
	log.WithField("tab", title).Info("Adding missing tab")
	addSheetReq := &sheets.Request{
		AddSheet: &sheets.AddSheetRequest{
			Properties: &sheets.SheetProperties{
				Title: title,
			},
		},
	}
	_, err = c.service.Spreadsheets.BatchUpdate(document, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{addSheetReq},
	}).Context(ctx).Do()
	return err
}

func (c *Client) retry(ctx context.Context, op string, call func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = call(); err == nil {
			return nil
		}
		if !isRateLimited(err) || attempt >= c.maxRetries {
			return err
		}
		backoff := time.Duration(math.Pow(2, float64(attempt))) * c.baseBackoff
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
		log.WithField("op", op).Warnf("Rate limited by Google Sheets API, retrying in %v...", backoff)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func isRateLimited(err error) bool {
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		return false
	}
	switch gErr.Code {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		for _, item := range gErr.Errors {
			if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
				return true
			}
		}
	}
	return false
}

func toValues(grid record.Grid) [][]interface{} {
	values := make([][]interface{}, len(grid))
	for i, row := range grid {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		values[i] = cells
	}
	return values
}

func toGrid(values [][]interface{}) record.Grid {
	width := 0
	for _, row := range values {
		if len(row) > width {
			width = len(row)
		}
	}
	grid := make(record.Grid, len(values))
	for i, row := range values {
		cells := make([]string, width)
		for j, v := range row {
			cells[j] = cellText(v)
		}
		grid[i] = cells
	}
	return grid
}

func cellText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
