package log

import (
	"errors"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldOperation     = "operation"
	FieldMonth         = "month"
	FieldAmount        = "amount"
	FieldPerson        = "person"
	FieldCategory      = "category"
	FieldTransactionID = "transaction_id"
	FieldDebtID        = "debt_id"
	FieldBalanceDelta  = "balance_delta"
	FieldCount         = "count"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentReport    = "report"
	ComponentImport    = "import"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpRecordDebt   = "record_debt"
	OpClearDebt    = "clear_debt"
	OpClearAll     = "clear_all_debts"
	OpSpend        = "spend"
	OpIncome       = "income"
	OpPaid         = "paid"
	OpDelete       = "delete_transaction"
	OpClearCat     = "clear_category"
	OpImport       = "import"
	OpSetBalance   = "set_balance"
	OpFixBalance   = "fix_balance"
	OpAdjust       = "adjust_balance"
	OpReconcile    = "reconcile"
	OpSetBudget    = "set_budget"
	OpDeleteBudget = "delete_budget"
	OpPublish      = "publish"
	OpMirror       = "mirror"
	OpShutdown     = "shutdown"
	OpStartup      = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeNotFound   = "not_found_error"
	ErrorTypeInternal   = "internal_error"
)

// ErrorType classifies err for the error_type field.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrSamePerson):
		return ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return ErrorTypeNotFound
	default:
		return ErrorTypeInternal
	}
}

// IsClientError reports errors caused by the caller's input.
func IsClientError(err error) bool {
	return ErrorType(err) != ErrorTypeInternal
}

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds error and error_type fields
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldErrorType] = ErrorType(err)
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithAmount(d decimal.Decimal) LogFields {
	f[FieldAmount] = d.StringFixed(2)
	return f
}

func (f LogFields) WithPerson(p core.PersonRef) LogFields {
	f[FieldPerson] = string(p)
	return f
}

func (f LogFields) WithCategory(c core.Category) LogFields {
	f[FieldCategory] = string(c)
	return f
}

func (f LogFields) WithTransaction(t core.Transaction) LogFields {
	f[FieldTransactionID] = t.ID
	f[FieldAmount] = t.Amount.StringFixed(2)
	f[FieldCategory] = string(t.Category)
	return f
}

func (f LogFields) WithBalanceDelta(d decimal.Decimal) LogFields {
	f[FieldBalanceDelta] = d.StringFixed(2)
	return f
}

func (f LogFields) WithCount(n int) LogFields {
	f[FieldCount] = n
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
