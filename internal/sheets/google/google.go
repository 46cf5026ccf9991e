package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/sheets"

	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Header rows written to an empty sheet before the first record.
var (
	ExpenseHeader = []any{"ID", "Date", "Category", "Description", "Amount", "Month", "Year"}
	IncomeHeader  = []any{"Year", "Month", "Amount", "ID"}
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	expensesSheet string
	incomeSheet   string
	logger        *log.Logger
}

var _ sheets.Mirror = (*Client)(nil)

// Options selects the spreadsheet and the two tabs the mirror writes to.
type Options struct {
	SpreadsheetID string
	ExpensesSheet string
	IncomeSheet   string
	Logger        *log.Logger
}

// New authenticates with service account credentials and returns a mirror
// writing to opts.SpreadsheetID.
func New(ctx context.Context, credentialsJSON []byte, opts Options) (*Client, error) {
	svc, err := newSheetsService(ctx, credentialsJSON)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, opts)
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, opts Options) (*Client, error) {
	if svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if opts.ExpensesSheet == "" {
		opts.ExpensesSheet = "Expenses"
	}
	if opts.IncomeSheet == "" {
		opts.IncomeSheet = "Income"
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		expensesSheet: opts.ExpensesSheet,
		incomeSheet:   opts.IncomeSheet,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials
// over a pooled HTTP transport.
func newSheetsService(ctx context.Context, credentialsJSON []byte) (*gsheet.Service, error) {
	if len(credentialsJSON) == 0 {
		return nil, errors.New("missing service account credentials")
	}

	creds, err := googleauth.CredentialsFromJSON(ctx, credentialsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	// oauth2 builds its transport on top of the client stored in the context.
	authCtx := context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	client := oauth2.NewClient(authCtx, creds.TokenSource)
	client.Timeout = 60 * time.Second

	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client optimized for Google Sheets API
// with connection pooling, proper timeouts, and keep-alive settings
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// AppendExpense adds one row per expense. Redelivered events find their id
// already present and are skipped.
func (c *Client) AppendExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	rows, err := c.readRows(ctx, c.expensesSheet, "A:A")
	if err != nil {
		return err
	}
	if row := findExpenseRow(rows, e.ID); row > 0 {
		c.logger.DebugContext(ctx, "Expense already mirrored",
			log.FieldExpenseID, e.ID,
			log.FieldSheetsRef, rowRef(c.expensesSheet, row, "G"))
		return nil
	}

	values := [][]any{ExpenseRow(e)}
	if len(rows) == 0 {
		values = append([][]any{ExpenseHeader}, values...)
	}

	rng := fmt.Sprintf("%s!A:G", c.expensesSheet)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.expensesSheet, err)
	}

	ref := rng
	if resp != nil && resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.InfoContext(ctx, "Expense mirrored",
		log.FieldExpenseID, e.ID,
		log.FieldSheetsRef, ref)
	return nil
}

// UpsertIncome rewrites the row holding the income's period, appending one
// when the period is new.
func (c *Client) UpsertIncome(ctx context.Context, inc core.Income) error {
	if err := inc.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	rows, err := c.readRows(ctx, c.incomeSheet, "A:D")
	if err != nil {
		return err
	}

	if row := findIncomeRow(rows, inc.Period()); row > 0 {
		rng := rowRef(c.incomeSheet, row, "D")
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{IncomeRow(inc)}}).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		c.logger.InfoContext(ctx, "Income updated",
			log.FieldPeriod, inc.Period().String(),
			log.FieldSheetsRef, rng)
		return nil
	}

	values := [][]any{IncomeRow(inc)}
	if len(rows) == 0 {
		values = append([][]any{IncomeHeader}, values...)
	}
	rng := fmt.Sprintf("%s!A:D", c.incomeSheet)
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.incomeSheet, err)
	}
	c.logger.InfoContext(ctx, "Income mirrored", log.FieldPeriod, inc.Period().String())
	return nil
}

// DeleteExpense removes the row whose first column holds id.
func (c *Client) DeleteExpense(ctx context.Context, id int64) error {
	rows, err := c.readRows(ctx, c.expensesSheet, "A:A")
	if err != nil {
		return err
	}
	row := findExpenseRow(rows, id)
	if row == 0 {
		c.logger.DebugContext(ctx, "Expense not in sheet, nothing to delete", log.FieldExpenseID, id)
		return nil
	}

	sheetID, err := c.sheetID(ctx, c.expensesSheet)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
					// The first tab has id 0, which omitempty would drop.
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in sheet %s: %w", row, c.expensesSheet, err)
	}

	c.logger.InfoContext(ctx, "Expense removed from sheet",
		log.FieldExpenseID, id,
		log.FieldSheetsRef, rowRef(c.expensesSheet, row, "G"))
	return nil
}

func (c *Client) readRows(ctx context.Context, sheetName, cols string) ([][]any, error) {
	rng := fmt.Sprintf("%s!%s", sheetName, cols)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) sheetID(ctx context.Context, title string) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return s.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", title)
}

// ExpenseRow lays out an expense in ExpenseHeader order.
func ExpenseRow(e core.Expense) []any {
	return []any{
		e.ID,
		e.Date.String(),
		e.Category,
		e.Description,
		e.Amount.InexactFloat64(),
		e.Month,
		e.Year,
	}
}

// IncomeRow lays out an income in IncomeHeader order.
func IncomeRow(inc core.Income) []any {
	return []any{inc.Year, inc.Month, inc.Amount.InexactFloat64(), inc.ID}
}

// findExpenseRow returns the 1-based sheet row whose first cell is id, or 0.
func findExpenseRow(rows [][]any, id int64) int {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if n, ok := cellInt(row[0]); ok && n == id {
			return i + 1
		}
	}
	return 0
}

// findIncomeRow returns the 1-based sheet row holding the period, or 0.
func findIncomeRow(rows [][]any, p core.Period) int {
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		y, okY := cellInt(row[0])
		m, okM := cellInt(row[1])
		if okY && okM && int(y) == p.Year && int(m) == p.Month {
			return i + 1
		}
	}
	return 0
}

// cellInt reads a whole number from a cell, which the API returns as a
// formatted string or, for unformatted reads, a float.
func cellInt(v any) (int64, bool) {
	switch val := v.(type) {
	case float64:
		if val != float64(int64(val)) {
			return 0, false
		}
		return int64(val), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		return n, err == nil
	default:
		n, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(val)), 10, 64)
		return n, err == nil
	}
}

func rowRef(sheetName string, row int, lastCol string) string {
	return fmt.Sprintf("%s!A%d:%s%d", sheetName, row, lastCol, row)
}
