package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

const barWidth = 10

// ProgressBar draws pct (capped at 100) with width cells.
func ProgressBar(pct decimal.Decimal, width int) string {
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	if pct.IsNegative() {
		pct = decimal.Zero
	}
	filled := int(pct.Mul(decimal.NewFromInt(int64(width))).Div(hundred).IntPart())
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func budgetMarker(l BudgetLevel) string {
	switch l {
	case BudgetOver:
		return "[OVER]"
	case BudgetAlert:
		return "[ALERT]"
	case BudgetApproaching:
		return "[NEAR]"
	default:
		return "[OK]"
	}
}

// RunwayLine describes a runway level, or "" when it needs no attention.
func RunwayLine(r Runway) string {
	pct := r.Percent.StringFixed(1)
	switch r.Level {
	case RunwayCritical:
		return fmt.Sprintf("CRITICAL: %s%% of initial balance remaining", pct)
	case RunwayLow:
		return fmt.Sprintf("LOW: %s%% of initial balance remaining", pct)
	case RunwayWarning:
		return fmt.Sprintf("Warning: %s%% of initial balance remaining", pct)
	default:
		return ""
	}
}

// RenderBudget formats one budget status with its progress bar.
func RenderBudget(b BudgetStatus, currency string) string {
	return fmt.Sprintf("%-7s %s %s %s%%  %s / %s",
		budgetMarker(b.Level), b.Category, ProgressBar(b.Percent, barWidth), b.Percent.StringFixed(0),
		core.FormatAmount(currency, b.Spent), core.FormatAmount(currency, b.Limit))
}

func RenderSummary(s MonthSummary, currency string) string {
	var b strings.Builder
	money := func(d decimal.Decimal) string { return core.FormatAmount(currency, d) }

	fmt.Fprintf(&b, "Summary for %s\n\n", s.Month)
	if s.Transactions == 0 {
		fmt.Fprintf(&b, "No transactions for %s.\n", s.Month)
		return b.String()
	}
	if s.Balance.Valid {
		b.WriteString("Balance flow:\n")
		fmt.Fprintf(&b, "  Start of month: %s\n", money(s.Start))
		fmt.Fprintf(&b, "  + Income:       %s\n", money(s.Income))
		fmt.Fprintf(&b, "  - Spent:        %s\n", money(s.Spend))
		fmt.Fprintf(&b, "  = End of month: %s\n", money(s.End))
	} else {
		fmt.Fprintf(&b, "Income: %s\n", money(s.Income))
		fmt.Fprintf(&b, "Spent:  %s\n", money(s.Spend))
	}
	fmt.Fprintf(&b, "Net change: %s\n", money(s.Net()))

	if len(s.Categories) > 0 {
		b.WriteString("\nSpending by category:\n")
		for _, c := range s.Categories {
			fmt.Fprintf(&b, "  - %s: %s (%s%%)\n", c.Category, money(c.Amount), c.Share.StringFixed(0))
		}
	}
	if len(s.Budgets) > 0 {
		b.WriteString("\nBudget status:\n")
		for _, st := range s.Budgets {
			fmt.Fprintf(&b, "  %s\n", RenderBudget(st, currency))
		}
	}
	return b.String()
}

func RenderWeekly(w Weekly, currency string) string {
	var b strings.Builder
	money := func(d decimal.Decimal) string { return core.FormatAmount(currency, d) }

	fmt.Fprintf(&b, "Weekly report for %s\n\n", w.Date.Format("02 Jan 2006"))
	if w.Balance.Valid {
		fmt.Fprintf(&b, "Balance: %s\n", money(w.Balance.Decimal))
	} else {
		b.WriteString("Balance: not set\n")
	}
	if w.Runway != nil {
		if line := RunwayLine(*w.Runway); line != "" {
			b.WriteString(line + "\n")
		}
	}

	fmt.Fprintf(&b, "\nThis month (%s):\n", w.Month.Month)
	fmt.Fprintf(&b, "  Income: %s\n", money(w.Income))
	fmt.Fprintf(&b, "  Spent:  %s\n", money(w.Spend))
	fmt.Fprintf(&b, "  Net:    %s\n", money(w.Net()))

	if len(w.Top) == 0 {
		b.WriteString("\nTop spending: none this month\n")
	} else {
		b.WriteString("\nTop spending:\n")
		for _, c := range w.Top {
			fmt.Fprintf(&b, "  - %s: %s\n", c.Category, money(c.Amount))
		}
	}
	if len(w.Alerts) > 0 {
		b.WriteString("\nBudget alerts:\n")
		for _, st := range w.Alerts {
			fmt.Fprintf(&b, "  %s\n", RenderBudget(st, currency))
		}
	}
	return b.String()
}
