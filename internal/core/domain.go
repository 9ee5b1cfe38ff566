package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Owner is the distinguished person the ledger is kept for.
const Owner PersonRef = "me"

// TimestampLayout is the textual form of every created_at value. Month
// filtering matches on its "YYYY-MM" prefix, so the layout must sort
// lexically in time order.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	KindSpend  Kind = "spend"
	KindIncome Kind = "income"
)

const (
	Food          Category = "food"
	Transport     Category = "transport"
	Shopping      Category = "shopping"
	Bills         Category = "bills"
	Entertainment Category = "entertainment"
	Health        Category = "health"
	Travel        Category = "travel"
	Income        Category = "income"
	Other         Category = "other"
)

// Categories lists the closed category set in classifier priority order.
var Categories = []Category{Food, Transport, Shopping, Bills, Entertainment, Health, Travel, Income, Other}

type (
	// PersonRef is either Owner or a case-normalized handle.
	PersonRef string

	Kind string

	Category string

	// DebtState is either Open or Settled.
	DebtState interface {
		debtState()
	}

	// Open is an outstanding debt. Outstanding only ever decreases.
	Open struct {
		Outstanding decimal.Decimal
	}

	// Settled is a debt cleared in full. Amount is what was outstanding when
	// it was settled.
	Settled struct {
		Amount decimal.Decimal
	}

	DebtRecord struct {
		ID          int64
		Creditor    PersonRef
		Debtor      PersonRef
		Description string
		State       DebtState
		CreatedAt   string
	}

	Transaction struct {
		ID          int64
		Amount      decimal.Decimal
		Kind        Kind
		Category    Category
		Description string
		CreatedAt   string
	}

	Budget struct {
		Category Category
		Limit    decimal.Decimal
	}

	// Transfer is one payment of a settlement plan.
	Transfer struct {
		Payer    PersonRef
		Receiver PersonRef
		Amount   decimal.Decimal
	}
)

func (Open) debtState()    {}
func (Settled) debtState() {}

// NewPersonRef normalizes a handle: surrounding space and a leading "@" are
// dropped and the result is lower-cased.
func NewPersonRef(s string) PersonRef {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "@")
	return PersonRef(strings.ToLower(s))
}

func (p PersonRef) IsOwner() bool { return p == Owner }

func (p PersonRef) String() string { return string(p) }

func (p PersonRef) Validate() error {
	if strings.TrimSpace(string(p)) == "" {
		return &ValidationError{Field: "person", Reason: "empty"}
	}
	if strings.ContainsAny(string(p), " \t\n") {
		return &ValidationError{Field: "person", Value: string(p), Reason: "must be a single word"}
	}
	return nil
}

// NewOpenDebt builds a debt record in the Open state.
func NewOpenDebt(creditor, debtor PersonRef, amount decimal.Decimal, description string) DebtRecord {
	return DebtRecord{
		Creditor:    creditor,
		Debtor:      debtor,
		Description: description,
		State:       Open{Outstanding: Round2(amount)},
	}
}

func (d DebtRecord) Validate() error {
	if err := d.Creditor.Validate(); err != nil {
		return err
	}
	if err := d.Debtor.Validate(); err != nil {
		return err
	}
	if d.Creditor == d.Debtor {
		return fmt.Errorf("%w: %s", ErrSamePerson, d.Creditor)
	}
	if open, ok := d.State.(Open); ok {
		if !open.Outstanding.IsPositive() {
			return &ValidationError{Field: "amount", Value: open.Outstanding.String(), Reason: "must be greater than zero"}
		}
		return CheckAmount("amount", open.Outstanding)
	}
	return nil
}

// IsOpen reports whether the debt still counts toward net positions.
func (d DebtRecord) IsOpen() bool {
	_, ok := d.State.(Open)
	return ok
}

// Outstanding is the open amount, or zero once settled.
func (d DebtRecord) Outstanding() decimal.Decimal {
	if open, ok := d.State.(Open); ok {
		return open.Outstanding
	}
	return decimal.Zero
}

// Involves reports whether p is either party of the debt.
func (d DebtRecord) Involves(p PersonRef) bool {
	return d.Creditor == p || d.Debtor == p
}

func (k Kind) Validate() error {
	switch k {
	case KindSpend, KindIncome:
		return nil
	default:
		return &ValidationError{Field: "kind", Value: string(k), Reason: "must be spend or income"}
	}
}

// ParseCategory lower-cases and checks c against the closed set.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsKnown() {
		return "", &ValidationError{Field: "category", Value: s, Reason: "unknown category"}
	}
	return c, nil
}

func (c Category) IsKnown() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }

// Effect is the signed change the transaction applies to the cash balance.
func (t Transaction) Effect() decimal.Decimal {
	if t.Kind == KindIncome {
		return t.Amount
	}
	return t.Amount.Neg()
}

func (t Transaction) Validate() error {
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if t.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Value: t.Amount.String(), Reason: "must not be negative"}
	}
	if err := CheckAmount("amount", t.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(string(t.Category)) == "" {
		return &ValidationError{Field: "category", Reason: "empty"}
	}
	if utf8.RuneCountInString(t.Description) > 200 {
		return &ValidationError{Field: "description", Reason: "too long (max 200 characters)"}
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(string(b.Category)) == "" {
		return &ValidationError{Field: "category", Reason: "empty"}
	}
	if !b.Limit.IsPositive() {
		return &ValidationError{Field: "amount", Value: b.Limit.String(), Reason: "must be greater than zero"}
	}
	return CheckAmount("amount", b.Limit)
}

// Timestamp formats t with TimestampLayout.
func Timestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// Month is a calendar month used for prefix filtering of created_at values.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Prefix is the "YYYY-MM" prefix shared by every timestamp in the month.
func (m Month) Prefix() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) String() string {
	return fmt.Sprintf("%s %d", m.Month.String(), m.Year)
}

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseMonth accepts "YYYY-MM" or a three-letter month name, which is taken
// in the year of now. An empty string selects the month of now.
func ParseMonth(s string, now time.Time) (Month, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return MonthOf(now), nil
	}
	if m, ok := monthNames[s]; ok {
		return Month{Year: now.Year(), Month: m}, nil
	}
	y, m, found := strings.Cut(s, "-")
	if !found {
		return Month{}, &ValidationError{Field: "month", Value: s, Reason: "expected YYYY-MM or a month name"}
	}
	year, err := strconv.Atoi(y)
	if err != nil || year < 1 || year > 9999 {
		return Month{}, &ValidationError{Field: "month", Value: s, Reason: "invalid year"}
	}
	month, err := strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return Month{}, &ValidationError{Field: "month", Value: s, Reason: "invalid month"}
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
}

// NormalizeDate converts a statement date to TimestampLayout. Day-first
// layouts win over month-first ones for slash dates. ok is false when no
// layout matches.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp(t), true
		}
	}
	return "", false
}
