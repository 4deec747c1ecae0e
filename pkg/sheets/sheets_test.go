package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"sheetstore/pkg/record"
	"sheetstore/pkg/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const testDocument = "doc"

// fakeSheets mimics the values endpoints closely enough for the client:
// USER_ENTERED coercion of numbers and booleans, trailing empty cells
// dropped on read and no values field for an empty range.
type fakeSheets struct {
	mu        sync.Mutex
	tabs      map[string][][]interface{}
	titles    []string
	throttled map[string]int
	requests  []string
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{
		tabs:      map[string][][]interface{}{},
		titles:    []string{"Sheet1"},
		throttled: map[string]int{},
	}
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const docPrefix = "/v4/spreadsheets/" + testDocument
	valuesPrefix := docPrefix + "/values/"

	if !strings.HasPrefix(r.URL.Path, valuesPrefix) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == docPrefix:
			f.requests = append(f.requests, "get")
			ss := &sheets.Spreadsheet{SpreadsheetId: testDocument}
			for _, title := range f.titles {
				ss.Sheets = append(ss.Sheets, &sheets.Sheet{Properties: &sheets.SheetProperties{Title: title}})
			}
			writeJSON(w, ss)
		case r.Method == http.MethodPost && r.URL.Path == docPrefix+":batchUpdate":
			f.requests = append(f.requests, "batchUpdate")
			var req sheets.BatchUpdateSpreadsheetRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			for _, rq := range req.Requests {
				if rq.AddSheet != nil {
					f.titles = append(f.titles, rq.AddSheet.Properties.Title)
				}
			}
			writeJSON(w, &sheets.BatchUpdateSpreadsheetResponse{SpreadsheetId: testDocument})
		default:
			http.NotFound(w, r)
		}
		return
	}

	name, action, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, valuesPrefix), ":")
	op := action
	if op == "" {
		op = map[string]string{http.MethodGet: table.OpRead, http.MethodPut: table.OpWrite}[r.Method]
	}
	f.requests = append(f.requests, op)

	if f.throttled[op] > 0 {
		f.throttled[op]--
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":429,"message":"Quota exceeded","errors":[{"reason":"rateLimitExceeded","message":"Quota exceeded"}]}}`)
		return
	}

	switch op {
	case table.OpClear:
		delete(f.tabs, name)
		writeJSON(w, &sheets.ClearValuesResponse{SpreadsheetId: testDocument})
	case table.OpWrite, table.OpAppend:
		var vr sheets.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mode := r.URL.Query().Get("valueInputOption")
		rows := make([][]interface{}, len(vr.Values))
		for i, row := range vr.Values {
			rows[i] = make([]interface{}, len(row))
			for j, cell := range row {
				rows[i][j] = enter(cell, mode)
			}
		}
		if op == table.OpAppend {
			f.tabs[name] = append(f.tabs[name], rows...)
		} else {
			existing := f.tabs[name]
			for i, row := range rows {
				if i < len(existing) {
					existing[i] = row
				} else {
					existing = append(existing, row)
				}
			}
			f.tabs[name] = existing
		}
		writeJSON(w, map[string]string{"spreadsheetId": testDocument})
	case table.OpRead:
		resp := &sheets.ValueRange{Range: name, MajorDimension: "ROWS"}
		for _, row := range f.tabs[name] {
			end := len(row)
			for end > 0 && row[end-1] == "" {
				end--
			}
			resp.Values = append(resp.Values, row[:end])
		}
		writeJSON(w, resp)
	default:
		http.NotFound(w, r)
	}
}

func enter(cell interface{}, mode string) interface{} {
	s, ok := cell.(string)
	if !ok || mode != string(table.InputUserEntered) {
		return cell
	}
	if strings.HasPrefix(s, "'") {
		return s[1:]
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if strings.EqualFold(s, "true") || strings.EqualFold(s, "false") {
		return strings.EqualFold(s, "true")
	}
	return s
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, fake *fakeSheets, maxRetries int) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), Options{
		MaxRetries:  maxRetries,
		BaseBackoff: time.Millisecond,
		ClientOptions: []option.ClientOption{
			option.WithEndpoint(srv.URL + "/"),
			option.WithoutAuthentication(),
		},
	})
	require.NoError(t, err)
	return c
}

type cacheRow struct {
	Code       string
	Difficulty float64
	Favorites  int
	Found      bool
	Note       string
}

var cacheSchema = record.MustSchema(
	record.String("Code", func(c *cacheRow) *string { return &c.Code }),
	record.Float("Diff", func(c *cacheRow) *float64 { return &c.Difficulty }),
	record.Int("Fav", func(c *cacheRow) *int { return &c.Favorites }),
	record.Bool("Found", func(c *cacheRow) *bool { return &c.Found }),
	record.String("Note", func(c *cacheRow) *string { return &c.Note }),
)

func TestClientTableRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeSheets()
	rng := table.Range{Document: testDocument, Name: "Queensland"}
	tbl := table.New(newTestClient(t, fake, 0), rng, cacheSchema)

	rows := []cacheRow{
		{Code: "GC12345", Difficulty: 2, Favorites: 10, Found: true, Note: "solved, \"finally\"\nsee log"},
		{Code: "GC23456", Difficulty: 1.5, Favorites: 0},
		{Code: "GC34567", Difficulty: 4.5, Favorites: 3, Note: "last"},
	}
	require.NoError(t, tbl.Replace(ctx, rows[:2]))
	require.NoError(t, tbl.Append(ctx, rows[2]))

	got, err := tbl.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	// Cells were coerced by the store and the blank trailing note elided.
	assert.Equal(t, 2.0, fake.tabs["Queensland"][1][1])
	assert.Equal(t, true, fake.tabs["Queensland"][1][3])

	require.NoError(t, tbl.Replace(ctx, nil))
	_, err = tbl.Read(ctx)
	assert.ErrorIs(t, err, table.ErrNoData)
	assert.Equal(t, []string{"clear", "write", "append", "read", "clear", "read"}, fake.requests)
}

func TestClientRetriesRateLimit(t *testing.T) {
	ctx := context.Background()
	fake := newFakeSheets()
	fake.throttled[table.OpAppend] = 2
	c := newTestClient(t, fake, 3)
	rng := table.Range{Document: testDocument, Name: "Tab"}

	require.NoError(t, c.Append(ctx, rng, []string{"a"}, table.InputRaw))
	assert.Equal(t, []string{"append", "append", "append"}, fake.requests)
	assert.Equal(t, [][]interface{}{{"a"}}, fake.tabs["Tab"])
}

func TestClientGivesUpAfterMaxRetries(t *testing.T) {
	fake := newFakeSheets()
	fake.throttled[table.OpRead] = 5
	c := newTestClient(t, fake, 1)

	_, _, err := c.Read(context.Background(), table.Range{Document: testDocument, Name: "Tab"})
	var gErr *googleapi.Error
	require.True(t, errors.As(err, &gErr))
	assert.Equal(t, http.StatusTooManyRequests, gErr.Code)
	assert.Len(t, fake.requests, 2)
}

func TestClientEnsureTab(t *testing.T) {
	ctx := context.Background()
	fake := newFakeSheets()
	c := newTestClient(t, fake, 0)

	require.NoError(t, c.EnsureTab(ctx, testDocument, "Sheet1"))
	require.NoError(t, c.EnsureTab(ctx, testDocument, "IntegrationTest"))
	assert.Equal(t, []string{"Sheet1", "IntegrationTest"}, fake.titles)
	assert.Equal(t, []string{"get", "get", "batchUpdate"}, fake.requests)
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("boom"), false},
		{&googleapi.Error{Code: 429}, true},
		{fmt.Errorf("wrapped: %w", &googleapi.Error{Code: 429}), true},
		{&googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}}}, true},
		{&googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "forbidden"}}}, false},
		{&googleapi.Error{Code: 404}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isRateLimited(tt.err), "%v", tt.err)
	}
}

func TestToGrid(t *testing.T) {
	grid := toGrid([][]interface{}{
		{"Code", "Diff", "Found", "Note"},
		{"GC1", 2.0, true},
		{"GC2", 1234567.0},
	})
	assert.Equal(t, record.Grid{
		{"Code", "Diff", "Found", "Note"},
		{"GC1", "2", "true", ""},
		{"GC2", "1234567", "", ""},
	}, grid)
}
