// Package report aggregates transactions into monthly summaries, budget
// statuses and the weekly report, and renders them as plain text.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// TopCategories is how many spending categories the weekly report lists.
const TopCategories = 5

var hundred = decimal.NewFromInt(100)

type BudgetLevel int

const (
	BudgetOK BudgetLevel = iota
	BudgetApproaching
	BudgetAlert
	BudgetOver
)

func (l BudgetLevel) String() string {
	switch l {
	case BudgetApproaching:
		return "approaching"
	case BudgetAlert:
		return "alert"
	case BudgetOver:
		return "over"
	default:
		return "ok"
	}
}

// BudgetLevelFor maps a spent/limit percentage to its level.
func BudgetLevelFor(pct decimal.Decimal) BudgetLevel {
	switch {
	case pct.GreaterThanOrEqual(decimal.NewFromInt(100)):
		return BudgetOver
	case pct.GreaterThanOrEqual(decimal.NewFromInt(90)):
		return BudgetAlert
	case pct.GreaterThanOrEqual(decimal.NewFromInt(75)):
		return BudgetApproaching
	default:
		return BudgetOK
	}
}

type BudgetStatus struct {
	Category core.Category
	Limit    decimal.Decimal
	Spent    decimal.Decimal
	Percent  decimal.Decimal
	Level    BudgetLevel
}

func NewBudgetStatus(b core.Budget, spent decimal.Decimal) BudgetStatus {
	pct := percent(spent, b.Limit)
	return BudgetStatus{
		Category: b.Category,
		Limit:    b.Limit,
		Spent:    core.Round2(spent),
		Percent:  pct,
		Level:    BudgetLevelFor(pct),
	}
}

// BudgetStatuses pairs each budget with its spend, ordered by category.
func BudgetStatuses(budgets []core.Budget, spent map[core.Category]decimal.Decimal) []BudgetStatus {
	out := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, NewBudgetStatus(b, spent[b.Category]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

type RunwayLevel int

const (
	RunwayOK RunwayLevel = iota
	RunwayWarning
	RunwayLow
	RunwayCritical
)

func (l RunwayLevel) String() string {
	switch l {
	case RunwayWarning:
		return "warning"
	case RunwayLow:
		return "low"
	case RunwayCritical:
		return "critical"
	default:
		return "ok"
	}
}

// Runway is the share of the initial balance still on hand.
type Runway struct {
	Percent decimal.Decimal
	Level   RunwayLevel
}

// ComputeRunway returns false when there is no positive initial balance to
// compare against.
func ComputeRunway(balance, initial decimal.Decimal) (Runway, bool) {
	if !initial.IsPositive() {
		return Runway{}, false
	}
	pct := balance.Div(initial).Mul(hundred).Round(1)
	r := Runway{Percent: pct, Level: RunwayOK}
	switch {
	case pct.LessThanOrEqual(decimal.NewFromInt(5)):
		r.Level = RunwayCritical
	case pct.LessThanOrEqual(decimal.NewFromInt(15)):
		r.Level = RunwayLow
	case pct.LessThanOrEqual(decimal.NewFromInt(20)):
		r.Level = RunwayWarning
	}
	return r, true
}

// CategoryTotal is a category's spend and its share of all spend.
type CategoryTotal struct {
	Category core.Category
	Amount   decimal.Decimal
	Share    decimal.Decimal
}

// Totals are the income and spend of a set of transactions.
type Totals struct {
	Income decimal.Decimal
	Spend  decimal.Decimal
}

func (t Totals) Net() decimal.Decimal { return core.Round2(t.Income.Sub(t.Spend)) }

func SumTotals(txs []core.Transaction) Totals {
	t := Totals{Income: decimal.Zero, Spend: decimal.Zero}
	for _, tx := range txs {
		if tx.Kind == core.KindIncome {
			t.Income = t.Income.Add(tx.Amount)
		} else {
			t.Spend = t.Spend.Add(tx.Amount)
		}
	}
	t.Income = core.Round2(t.Income)
	t.Spend = core.Round2(t.Spend)
	return t
}

// SpendByCategory groups spend transactions, largest first.
func SpendByCategory(txs []core.Transaction) []CategoryTotal {
	sums := make(map[core.Category]decimal.Decimal)
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Kind != core.KindSpend {
			continue
		}
		sums[tx.Category] = sums[tx.Category].Add(tx.Amount)
		total = total.Add(tx.Amount)
	}
	out := make([]CategoryTotal, 0, len(sums))
	for c, amt := range sums {
		out = append(out, CategoryTotal{Category: c, Amount: core.Round2(amt), Share: percent(amt, total).Round(0)})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// MonthSummary is the monthly view. Start and End are only set when a
// balance exists; Start is the current balance minus the month's net.
type MonthSummary struct {
	Month        core.Month
	Transactions int
	Totals
	Balance    decimal.NullDecimal
	Start      decimal.Decimal
	End        decimal.Decimal
	Categories []CategoryTotal
	Budgets    []BudgetStatus
}

func Summarize(month core.Month, txs []core.Transaction, balance decimal.NullDecimal, budgets []BudgetStatus) MonthSummary {
	s := MonthSummary{
		Month:        month,
		Transactions: len(txs),
		Totals:       SumTotals(txs),
		Balance:      balance,
		Categories:   SpendByCategory(txs),
		Budgets:      budgets,
	}
	if balance.Valid {
		s.End = core.Round2(balance.Decimal)
		s.Start = core.Round2(s.End.Sub(s.Net()))
	}
	return s
}

// Weekly is the scheduled report: balance, month to date figures, the top
// spending categories and the budgets that need attention.
type Weekly struct {
	Date    time.Time
	Month   core.Month
	Balance decimal.NullDecimal
	Runway  *Runway
	Totals
	Top    []CategoryTotal
	Alerts []BudgetStatus
}

func BuildWeekly(now time.Time, monthTxs []core.Transaction, balance, initial decimal.NullDecimal, budgets []BudgetStatus) Weekly {
	w := Weekly{
		Date:    now,
		Month:   core.MonthOf(now),
		Balance: balance,
		Totals:  SumTotals(monthTxs),
	}
	if balance.Valid && initial.Valid {
		if r, ok := ComputeRunway(balance.Decimal, initial.Decimal); ok {
			w.Runway = &r
		}
	}
	w.Top = SpendByCategory(monthTxs)
	if len(w.Top) > TopCategories {
		w.Top = w.Top[:TopCategories]
	}
	for _, b := range budgets {
		if b.Level >= BudgetApproaching {
			w.Alerts = append(w.Alerts, b)
		}
	}
	return w
}

func percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}
