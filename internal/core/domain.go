package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the only accepted wire format for expense dates.
const DateLayout = "2006-01-02"

const maxCategoryLength = 50
const maxDescriptionLength = 200

func init() {
	// Amounts travel as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

type (
	// Period identifies one calendar month.
	Period struct {
		Year  int
		Month int
	}

	// Date is a calendar date without a time component.
	Date struct {
		time.Time
	}

	// Income is the single income figure recorded for a period.
	Income struct {
		ID     int64           `json:"id"`
		Amount decimal.Decimal `json:"amount"`
		Month  int             `json:"month"`
		Year   int             `json:"year"`
	}

	// Expense is one dated spending event. Month and Year always mirror Date.
	Expense struct {
		ID          int64           `json:"id"`
		Category    string          `json:"category"`
		Amount      decimal.Decimal `json:"amount"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		Month       int             `json:"month"`
		Year        int             `json:"year"`
	}
)

// NewPeriod builds a validated period.
func NewPeriod(year, month int) (Period, error) {
	p := Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return NewValidationError("month", "must be between 1 and 12")
	}
	if p.Year < 1 || p.Year > 9999 {
		return NewValidationError("year", "must be between 1 and 9999")
	}
	return nil
}

// String renders the period as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a strict YYYY-MM-DD string. Out of range components such as
// month 13 or February 30 are rejected rather than normalized.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, NewValidationError("date", "must be a valid date in YYYY-MM-DD format")
	}
	return Date{Time: t}, nil
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// Period returns the calendar month the date falls in.
func (d Date) Period() Period {
	return Period{Year: d.Year(), Month: d.Month()}
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return NewValidationError("date", "must be a string")
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Period returns the income's period.
func (i Income) Period() Period {
	return Period{Year: i.Year, Month: i.Month}
}

func (i Income) Validate() error {
	if err := i.Period().Validate(); err != nil {
		return err
	}
	if i.Amount.IsNegative() {
		return NewValidationError("amount", "must not be negative")
	}
	return nil
}

// NewExpense normalizes user input into an Expense, deriving month and year
// from the date. The amount sign is not checked.
func NewExpense(category string, amount decimal.Decimal, date Date, description string) (Expense, error) {
	e := Expense{
		Category:    strings.TrimSpace(category),
		Amount:      amount,
		Date:        date,
		Description: strings.TrimSpace(description),
		Month:       date.Month(),
		Year:        date.Year(),
	}
	if err := e.Validate(); err != nil {
		return Expense{}, err
	}
	return e, nil
}

// Period returns the expense's period.
func (e Expense) Period() Period {
	return Period{Year: e.Year, Month: e.Month}
}

func (e Expense) Validate() error {
	if e.Date.IsZero() {
		return NewValidationError("date", "is required")
	}
	if e.Month != e.Date.Month() || e.Year != e.Date.Year() {
		return NewValidationError("date", "month and year do not match the date")
	}
	if e.Category == "" {
		return NewValidationError("category", "is required")
	}
	if len(e.Category) > maxCategoryLength {
		return NewValidationError("category", fmt.Sprintf("too long (max %d characters)", maxCategoryLength))
	}
	if len(e.Description) > maxDescriptionLength {
		return NewValidationError("description", fmt.Sprintf("too long (max %d characters)", maxDescriptionLength))
	}
	return nil
}
