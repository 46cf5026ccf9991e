package log

// Attribute keys shared by every component.
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldYear          = "year"
	FieldMonth         = "month"
	FieldPeriod        = "period"
	FieldExpenseID     = "expense_id"
	FieldIncomeID      = "income_id"
	FieldCategory      = "category"
	FieldAmount        = "amount"
	FieldEventType     = "event_type"
	FieldSheetsRef     = "sheets_ref"
	FieldBackend       = "backend"
)

// Component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentExpense = "expense"
	ComponentIncome  = "income"
	ComponentSummary = "summary"
	ComponentStorage = "storage"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
	ComponentTrace   = "trace"
	ComponentBackend = "backend"
)

// Operation names
const (
	OpCreate = "create"
	OpDelete = "delete"
	OpUpsert = "upsert"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithPeriod adds year and month fields
func (f LogFields) WithPeriod(year, month int) LogFields {
	f[FieldYear] = year
	f[FieldMonth] = month
	return f
}

// WithExpense adds the fields identifying an expense record.
func (f LogFields) WithExpense(id int64, category, amount string, year, month int) LogFields {
	f[FieldExpenseID] = id
	f[FieldCategory] = category
	f[FieldAmount] = amount
	return f.WithPeriod(year, month)
}

// ToSlice flattens the fields into slog key/value pairs.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
