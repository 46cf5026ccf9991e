package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"bilancio/internal/core"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const testSpreadsheetID = "sheet-123"

// fakeSheets serves the handful of Sheets endpoints the mirror calls and
// keeps the tabs in memory.
type fakeSheets struct {
	mu      sync.Mutex
	tabs    map[string][][]any
	updates []string
	batches []string
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{tabs: map[string][][]any{}}
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/"+testSpreadsheetID)

	switch {
	case r.Method == http.MethodGet && path == "":
		writeJSON(w, map[string]any{
			"sheets": []any{
				map[string]any{"properties": map[string]any{"sheetId": 0, "title": "Expenses"}},
				map[string]any{"properties": map[string]any{"sheetId": 7, "title": "Income"}},
			},
		})

	case r.Method == http.MethodPost && path == ":batchUpdate":
		f.batches = append(f.batches, string(body))
		var req gsheet.BatchUpdateSpreadsheetRequest
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, rq := range req.Requests {
			if d := rq.DeleteDimension; d != nil {
				rows := f.tabs["Expenses"]
				f.tabs["Expenses"] = append(rows[:d.Range.StartIndex:d.Range.StartIndex], rows[d.Range.EndIndex:]...)
			}
		}
		writeJSON(w, map[string]any{"spreadsheetId": testSpreadsheetID})

	case strings.HasPrefix(path, "/values/"):
		rng := strings.TrimPrefix(path, "/values/")
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, map[string]any{"range": rng, "values": f.tabs[sheetOf(rng)]})
		case http.MethodPost:
			rng = strings.TrimSuffix(rng, ":append")
			var vr gsheet.ValueRange
			if err := json.Unmarshal(body, &vr); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			sheet := sheetOf(rng)
			f.tabs[sheet] = append(f.tabs[sheet], vr.Values...)
			n := len(f.tabs[sheet])
			writeJSON(w, map[string]any{"updates": map[string]any{"updatedRange": sheet + "!A" + strconv.Itoa(n)}})
		case http.MethodPut:
			var vr gsheet.ValueRange
			if err := json.Unmarshal(body, &vr); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.updates = append(f.updates, rng)
			row := rowOf(rng)
			f.tabs[sheetOf(rng)][row-1] = vr.Values[0]
			writeJSON(w, map[string]any{"updatedRange": rng})
		}

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSheets) rows(sheet string) [][]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]any(nil), f.tabs[sheet]...)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func sheetOf(rng string) string {
	return strings.SplitN(rng, "!", 2)[0]
}

// rowOf extracts 2 from "Income!A2:D2".
func rowOf(rng string) int {
	cells := strings.SplitN(rng, "!", 2)[1]
	first := strings.Split(cells, ":")[0]
	n, _ := strconv.Atoi(first[1:])
	return n
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := newFakeSheets()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	svc.BasePath = srv.URL + "/"

	c, err := NewWithService(svc, Options{SpreadsheetID: testSpreadsheetID})
	if err != nil {
		t.Fatalf("NewWithService: %v", err)
	}
	return c, fake
}

func testExpense(t *testing.T, id int64, date string) core.Expense {
	t.Helper()
	d, err := core.ParseDate(date)
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	e, err := core.NewExpense("Food", decimal.RequireFromString("12.5"), d, "lunch")
	if err != nil {
		t.Fatalf("NewExpense: %v", err)
	}
	e.ID = id
	return e
}

func TestNew_RequiresCredentials(t *testing.T) {
	if _, err := New(context.Background(), nil, Options{SpreadsheetID: "x"}); err == nil {
		t.Fatal("expected error for empty credentials")
	}
	if _, err := New(context.Background(), []byte("not json"), Options{SpreadsheetID: "x"}); err == nil {
		t.Fatal("expected error for malformed credentials")
	}
}

func TestNewWithService_Validation(t *testing.T) {
	if _, err := NewWithService(nil, Options{SpreadsheetID: "x"}); err == nil {
		t.Fatal("expected error for nil service")
	}
	svc := &gsheet.Service{}
	if _, err := NewWithService(svc, Options{}); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	c, err := NewWithService(svc, Options{SpreadsheetID: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.expensesSheet != "Expenses" || c.incomeSheet != "Income" {
		t.Errorf("default sheet names = %q, %q", c.expensesSheet, c.incomeSheet)
	}
}

func TestExpenseRow(t *testing.T) {
	row := ExpenseRow(testExpense(t, 42, "2024-06-15"))
	want := []any{int64(42), "2024-06-15", "Food", "lunch", 12.5, 6, 2024}
	if len(row) != len(ExpenseHeader) {
		t.Fatalf("row has %d cells, header has %d", len(row), len(ExpenseHeader))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("cell %d = %#v, want %#v", i, row[i], want[i])
		}
	}
}

func TestFindExpenseRow(t *testing.T) {
	rows := [][]any{
		{"ID"},
		{"3"},
		{},
		{float64(9)},
		{" 11 "},
	}
	tests := []struct {
		id   int64
		want int
	}{
		{3, 2},
		{9, 4},
		{11, 5},
		{4, 0},
	}
	for _, tt := range tests {
		if got := findExpenseRow(rows, tt.id); got != tt.want {
			t.Errorf("findExpenseRow(%d) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestFindIncomeRow(t *testing.T) {
	rows := [][]any{
		IncomeHeader,
		{"2024", "5", "2000"},
		{float64(2024), float64(6), float64(3000)},
		{"2023"},
	}
	if got := findIncomeRow(rows, core.Period{Year: 2024, Month: 6}); got != 3 {
		t.Errorf("June = %d, want 3", got)
	}
	if got := findIncomeRow(rows, core.Period{Year: 2024, Month: 5}); got != 2 {
		t.Errorf("May = %d, want 2", got)
	}
	if got := findIncomeRow(rows, core.Period{Year: 2023, Month: 1}); got != 0 {
		t.Errorf("missing period = %d, want 0", got)
	}
}

func TestAppendExpense_HeaderOnceAndIdempotent(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	if err := c.AppendExpense(ctx, testExpense(t, 1, "2024-06-15")); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := c.AppendExpense(ctx, testExpense(t, 2, "2024-06-16")); err != nil {
		t.Fatalf("second append: %v", err)
	}
	if err := c.AppendExpense(ctx, testExpense(t, 1, "2024-06-15")); err != nil {
		t.Fatalf("redelivered append: %v", err)
	}

	rows := fake.rows("Expenses")
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d: %v", len(rows), rows)
	}
	if rows[0][0] != "ID" {
		t.Errorf("first row should be the header, got %v", rows[0])
	}
	if rows[1][0] != float64(1) || rows[2][0] != float64(2) {
		t.Errorf("unexpected ids: %v, %v", rows[1][0], rows[2][0])
	}
}

func TestAppendExpense_RejectsInvalid(t *testing.T) {
	c, fake := newTestClient(t)
	if err := c.AppendExpense(context.Background(), core.Expense{ID: 1}); err == nil {
		t.Fatal("expected validation error")
	}
	if len(fake.rows("Expenses")) != 0 {
		t.Error("nothing should be written for an invalid expense")
	}
}

func TestUpsertIncome_UpdatesExistingPeriod(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	june := core.Income{ID: 1, Amount: decimal.NewFromInt(2000), Month: 6, Year: 2024}
	if err := c.UpsertIncome(ctx, june); err != nil {
		t.Fatalf("insert: %v", err)
	}
	july := core.Income{ID: 2, Amount: decimal.NewFromInt(2100), Month: 7, Year: 2024}
	if err := c.UpsertIncome(ctx, july); err != nil {
		t.Fatalf("insert july: %v", err)
	}
	june.Amount = decimal.NewFromInt(3000)
	if err := c.UpsertIncome(ctx, june); err != nil {
		t.Fatalf("update: %v", err)
	}

	rows := fake.rows("Income")
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 periods, got %d: %v", len(rows), rows)
	}
	if rows[1][2] != float64(3000) {
		t.Errorf("june amount = %v, want 3000", rows[1][2])
	}
	if len(fake.updates) != 1 || fake.updates[0] != "Income!A2:D2" {
		t.Errorf("updates = %v", fake.updates)
	}
}

func TestDeleteExpense_RemovesRow(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	for i, date := range []string{"2024-06-01", "2024-06-02", "2024-06-03"} {
		if err := c.AppendExpense(ctx, testExpense(t, int64(i+1), date)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	if err := c.DeleteExpense(ctx, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}

	rows := fake.rows("Expenses")
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[1][0] != float64(1) || rows[2][0] != float64(3) {
		t.Errorf("wrong row removed: %v", rows)
	}

	if len(fake.batches) != 1 {
		t.Fatalf("expected one batch update, got %d", len(fake.batches))
	}
	if !strings.Contains(fake.batches[0], `"sheetId":0`) {
		t.Errorf("sheet id 0 must be sent explicitly: %s", fake.batches[0])
	}
	if !strings.Contains(fake.batches[0], `"startIndex":2`) {
		t.Errorf("expected zero-based start index 2: %s", fake.batches[0])
	}
}

func TestDeleteExpense_MissingRowIsNoop(t *testing.T) {
	c, fake := newTestClient(t)
	if err := c.DeleteExpense(context.Background(), 99); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if len(fake.batches) != 0 {
		t.Errorf("no batch update expected, got %v", fake.batches)
	}
}
