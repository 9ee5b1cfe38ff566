package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/report"
)

var (
	successSymbol = "✓"
	errorSymbol   = "✗"
	infoSymbol    = "→"
	warnSymbol    = "!"

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D787", Dark: "#00D787"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D7AF00", Dark: "#FFD75F"})
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})
	headerStyle  = lipgloss.NewStyle().Bold(true)
)

func printSuccess(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", successStyle.Render(successSymbol), message)
}

// PrintError writes a styled error line.
func PrintError(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", errorStyle.Render(errorSymbol), errorStyle.Render(message))
}

func printInfof(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "%s %s\n", infoStyle.Render(infoSymbol), fmt.Sprintf(format, args...))
}

func printWarn(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", warnStyle.Render(warnSymbol), warnStyle.Render(message))
}

func printHeader(w io.Writer, title string) {
	_, _ = fmt.Fprintln(w, headerStyle.Render(title))
}

func printMuted(w io.Writer, message string) {
	_, _ = fmt.Fprintln(w, mutedStyle.Render(message))
}

// printBalance reports the balance after a mutation and the runway warning
// when there is one.
func printBalance(w io.Writer, currency string, balance decimal.NullDecimal, runway *report.Runway) {
	if !balance.Valid {
		printMuted(w, "Balance not set (use: tally balance set <amount>)")
		return
	}
	printInfof(w, "Balance: %s", core.FormatAmount(currency, balance.Decimal))
	if runway != nil {
		if line := report.RunwayLine(*runway); line != "" {
			printWarn(w, line)
		}
	}
}

func printBudget(w io.Writer, currency string, b *report.BudgetStatus) {
	if b == nil {
		return
	}
	line := report.RenderBudget(*b, currency)
	if b.Level >= report.BudgetApproaching {
		printWarn(w, line)
		return
	}
	printMuted(w, line)
}
