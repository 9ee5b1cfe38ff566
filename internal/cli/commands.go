package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/report"
	"tally/internal/services"
	"tally/internal/storage"
)

// App is bound into every command's Run.
type App struct {
	Ctx      context.Context
	Ledger   *services.LedgerService
	Currency string
	Out      io.Writer
	Now      func() time.Time
	// DBPath is the SQLite file, empty for the memory backend.
	DBPath string
}

func (a *App) money(d decimal.Decimal) string { return core.FormatAmount(a.Currency, d) }

// Globals defines global flags available to all commands.
type Globals struct {
	EnvFile string `help:"Environment file loaded before the configuration." default:".env" type:"path"`
}

type Commands struct {
	Globals

	Debt     DebtCmd     `cmd:"" help:"Record that a debtor owes a creditor."`
	Owe      OweCmd      `cmd:"" help:"Record that you owe a person."`
	Owes     OwesCmd     `cmd:"" help:"Record that a person owes you."`
	Paid     PaidCmd     `cmd:"" help:"Log a spend you paid, optionally on behalf of someone."`
	Debts    DebtsCmd    `cmd:"" help:"List open debts."`
	Balances BalancesCmd `cmd:"" help:"Show net positions against you."`
	Settle   SettleCmd   `cmd:"" help:"Show the transfers that settle every open debt."`
	Clear    ClearCmd    `cmd:"" help:"Clear debts with a person, fully or up to an amount."`
	ClearAll ClearAllCmd `cmd:"" name:"clear-all" help:"Clear every open debt."`

	Spend         SpendCmd         `cmd:"" help:"Log a spend."`
	Income        IncomeCmd        `cmd:"" help:"Log an income."`
	History       HistoryCmd       `cmd:"" help:"Show recent transactions."`
	Delete        DeleteCmd        `cmd:"" help:"Delete a transaction and reverse its effect."`
	ClearCategory ClearCategoryCmd `cmd:"" name:"clear-category" help:"Delete a category's transactions for a month."`
	Import        ImportCmd        `cmd:"" help:"Import a CSV or XLSX bank statement."`

	Balance   BalanceCmd   `cmd:"" help:"Show or change the balance."`
	Audit     AuditCmd     `cmd:"" help:"Recompute the balance from history and report drift."`
	Reconcile ReconcileCmd `cmd:"" help:"Repair balance drift."`

	Budget  BudgetCmd  `cmd:"" help:"Manage monthly category budgets."`
	Summary SummaryCmd `cmd:"" help:"Show a month summary."`
	Weekly  WeeklyCmd  `cmd:"" help:"Show the weekly report."`

	Schema SchemaCmd `cmd:"" help:"Show the applied database schema version."`
}

type DebtCmd struct {
	Creditor    string   `arg:"" help:"Who is owed."`
	Debtor      string   `arg:"" help:"Who owes."`
	Amount      string   `arg:"" help:"Positive amount."`
	Description []string `arg:"" optional:"" help:"What it was for."`
}

func (c *DebtCmd) Run(app *App) error {
	amount, err := core.ParseAmount(c.Amount)
	if err != nil {
		return err
	}
	d, err := app.Ledger.RecordDebt(app.Ctx, c.Creditor, c.Debtor, amount, strings.Join(c.Description, " "))
	if err != nil {
		return err
	}
	printDebt(app, d)
	return nil
}

type OweCmd struct {
	Person      string   `arg:"" help:"Who you owe."`
	Amount      string   `arg:"" help:"Positive amount."`
	Description []string `arg:"" optional:"" help:"What it was for."`
}

func (c *OweCmd) Run(app *App) error {
	amount, err := core.ParseAmount(c.Amount)
	if err != nil {
		return err
	}
	d, err := app.Ledger.Owe(app.Ctx, c.Person, amount, strings.Join(c.Description, " "))
	if err != nil {
		return err
	}
	printDebt(app, d)
	return nil
}

type OwesCmd struct {
	Person      string   `arg:"" help:"Who owes you."`
	Amount      string   `arg:"" help:"Positive amount."`
	Description []string `arg:"" optional:"" help:"What it was for."`
}

func (c *OwesCmd) Run(app *App) error {
	amount, err := core.ParseAmount(c.Amount)
	if err != nil {
		return err
	}
	d, err := app.Ledger.Owes(app.Ctx, c.Person, amount, strings.Join(c.Description, " "))
	if err != nil {
		return err
	}
	printDebt(app, d)
	return nil
}

func printDebt(app *App, d core.DebtRecord) {
	printSuccess(app.Out, fmt.Sprintf("@%s owes @%s %s (%s)", d.Debtor, d.Creditor, app.money(d.Outstanding()), d.Description))
}

type PaidCmd struct {
	Amount      string   `arg:"" help:"Positive amount."`
	Description []string `arg:"" optional:"" help:"What it was for."`
	For         string   `help:"Person you paid for; they now owe you the amount."`
}

func (c *PaidCmd) Run(app *App) error {
	amount, err := core.ParseAmount(c.Amount)
	if err != nil {
		return err
	}
	res, err := app.Ledger.Paid(app.Ctx, amount, strings.Join(c.Description, " "), c.For)
	if err != nil {
		return err
	}
	t := res.Transaction
	printSuccess(app.Out, fmt.Sprintf("Spent %s on %s: %s", app.money(t.Amount), t.Category, t.Description))
	if res.Debt != nil {
		printInfof(app.Out, "@%s owes you %s", res.Debt.Debtor, app.money(res.Debt.Outstanding()))
	}
	printBalance(app.Out, app.Currency, res.Balance, res.Runway)
	printBudget(app.Out, app.Currency, res.Budget)
	return nil
}

type DebtsCmd struct{}

func (c *DebtsCmd) Run(app *App) error {
	debts, err := app.Ledger.Debts(app.Ctx)
	if err != nil {
		return err
	}
	if len(debts) == 0 {
		printMuted(app.Out, "No open debts.")
		return nil
	}
	printHeader(app.Out, "Open debts")
	for _, d := range debts {
		fmt.Fprintf(app.Out, "  #%-4d @%s owes @%s %s  %s\n", d.ID, d.Debtor, d.Creditor, app.money(d.Outstanding()), mutedStyle.Render(d.Description))
	}
	return nil
}

type BalancesCmd struct{}

func (c *BalancesCmd) Run(app *App) error {
	p, err := app.Ledger.Balances(app.Ctx)
	if err != nil {
		return err
	}
	positions := p.Sorted()
	if len(positions) == 0 {
		printMuted(app.Out, "All square.")
		return nil
	}
	printHeader(app.Out, "Balances")
	for _, pos := range positions {
		switch {
		case pos.Net.IsPositive():
			fmt.Fprintf(app.Out, "  @%s owes you %s\n", pos.Person, app.money(pos.Net))
		case pos.Net.IsNegative():
			fmt.Fprintf(app.Out, "  you owe @%s %s\n", pos.Person, app.money(pos.Net.Neg()))
		}
	}
	fmt.Fprintln(app.Out)
	printInfof(app.Out, "Owed to you: %s", app.money(p.OwedToOwner()))
	printInfof(app.Out, "You owe:     %s", app.money(p.OwedByOwner()))
	return nil
}

type SettleCmd struct{}

func (c *SettleCmd) Run(app *App) error {
	plan, err := app.Ledger.SettlementPlan(app.Ctx)
	if err != nil {
		return err
	}
	if len(plan) == 0 {
		printMuted(app.Out, "Nothing to settle.")
		return nil
	}
	printHeader(app.Out, "Settlement plan")
	for _, t := range plan {
		fmt.Fprintf(app.Out, "  @%s pays @%s %s\n", t.Payer, t.Receiver, app.money(t.Amount))
	}
	return nil
}

type ClearCmd struct {
	Person string `arg:"" help:"Person to clear debts with."`
	Amount string `arg:"" optional:"" help:"Clear at most this much, oldest debts first."`
}

func (c *ClearCmd) Run(app *App) error {
	var amount decimal.NullDecimal
	if c.Amount != "" {
		d, err := core.ParseAmount(c.Amount)
		if err != nil {
			return err
		}
		amount = decimal.NewNullDecimal(d)
	}
	res, err := app.Ledger.ClearDebt(app.Ctx, c.Person, amount)
	if err != nil {
		return err
	}
	if res.Records == 0 {
		printMuted(app.Out, fmt.Sprintf("No open debts with @%s.", res.Person))
		return nil
	}
	printSuccess(app.Out, fmt.Sprintf("Cleared %s with @%s across %d debt(s)", app.money(res.Cleared), res.Person, res.Records))
	return nil
}

type ClearAllCmd struct{}

func (c *ClearAllCmd) Run(app *App) error {
	res, err := app.Ledger.ClearAllDebts(app.Ctx)
	if err != nil {
		return err
	}
	printSuccess(app.Out, fmt.Sprintf("Cleared %s across %d debt(s)", app.money(res.Cleared), res.Records))
	return nil
}

type SpendCmd struct {
	Amount      string   `arg:"" help:"Positive amount."`
	Description []string `arg:"" optional:"" help:"What it was for."`
	Category    string   `short:"c" help:"Category; classified from the description when omitted."`
}

func (c *SpendCmd) Run(app *App) error {
	amount, err := core.ParseAmount(c.Amount)
	if err != nil {
		return err
	}
	res, err := app.Ledger.Spend(app.Ctx, amount, c.Category, strings.Join(c.Description, " "))
	if err != nil {
		return err
	}
	printTransaction(app, res)
	return nil
}

type IncomeCmd struct {
	Amount      string   `arg:"" help:"Positive amount."`
	Description []string `arg:"" optional:"" help:"Where it came from."`
}

func (c *IncomeCmd) Run(app *App) error {
	amount, err := core.ParseAmount(c.Amount)
	if err != nil {
		return err
	}
	res, err := app.Ledger.Income(app.Ctx, amount, strings.Join(c.Description, " "))
	if err != nil {
		return err
	}
	printTransaction(app, res)
	return nil
}

func printTransaction(app *App, res services.TransactionResult) {
	t := res.Transaction
	verb := "Spent"
	if t.Kind == core.KindIncome {
		verb = "Received"
	}
	printSuccess(app.Out, fmt.Sprintf("%s %s (%s): %s [#%d]", verb, app.money(t.Amount), t.Category, t.Description, t.ID))
	printBalance(app.Out, app.Currency, res.Balance, res.Runway)
	printBudget(app.Out, app.Currency, res.Budget)
}

type HistoryCmd struct {
	Limit int `short:"n" default:"10" help:"Number of transactions to show."`
}

func (c *HistoryCmd) Run(app *App) error {
	txs, err := app.Ledger.History(app.Ctx, c.Limit)
	if err != nil {
		return err
	}
	if len(txs) == 0 {
		printMuted(app.Out, "No transactions yet.")
		return nil
	}
	printHeader(app.Out, "Recent transactions")
	for _, t := range txs {
		sign := "-"
		if t.Kind == core.KindIncome {
			sign = "+"
		}
		fmt.Fprintf(app.Out, "  #%-4d %s %s%s  %-13s %s\n", t.ID, mutedStyle.Render(t.CreatedAt), sign, app.money(t.Amount), t.Category, t.Description)
	}
	return nil
}

type DeleteCmd struct {
	ID int64 `arg:"" help:"Transaction id."`
}

func (c *DeleteCmd) Run(app *App) error {
	res, err := app.Ledger.DeleteTransaction(app.Ctx, c.ID)
	if err != nil {
		return err
	}
	t := res.Transaction
	printSuccess(app.Out, fmt.Sprintf("Deleted #%d: %s %s (%s)", t.ID, app.money(t.Amount), t.Category, t.Description))
	printBalance(app.Out, app.Currency, res.Balance, nil)
	return nil
}

type ClearCategoryCmd struct {
	Category string `arg:"" help:"Category to clear."`
	Month    string `arg:"" optional:"" help:"YYYY-MM or a month name; defaults to the current month."`
}

func (c *ClearCategoryCmd) Run(app *App) error {
	month, err := core.ParseMonth(c.Month, app.Now())
	if err != nil {
		return err
	}
	res, err := app.Ledger.ClearCategory(app.Ctx, c.Category, month)
	if err != nil {
		return err
	}
	printSuccess(app.Out, fmt.Sprintf("Removed %d %s transaction(s) from %s totalling %s", len(res.Removed), res.Category, res.Month, app.money(res.Total)))
	printBalance(app.Out, app.Currency, res.Balance, nil)
	return nil
}

type ImportCmd struct {
	File string `arg:"" type:"existingfile" help:"CSV or XLSX statement."`
}

func (c *ImportCmd) Run(app *App) error {
	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := app.Ledger.Import(app.Ctx, filepath.Base(c.File), f)
	for _, e := range res.Skipped {
		printWarn(app.Out, fmt.Sprintf("row %d skipped: %s", e.Row, e.Reason))
	}
	if err != nil {
		return err
	}
	printSuccess(app.Out, fmt.Sprintf("Imported %d transaction(s): spent %s, received %s", res.Imported, app.money(res.Spend), app.money(res.Income)))
	printMuted(app.Out, "batch "+res.BatchID)
	printBalance(app.Out, app.Currency, res.Balance, nil)
	return nil
}

type BalanceCmd struct {
	Show   BalanceShowCmd   `cmd:"" default:"1" help:"Show the balance and debt position."`
	Set    BalanceSetCmd    `cmd:"" help:"Set the balance and the initial balance."`
	Fix    BalanceFixCmd    `cmd:"" help:"Correct the balance without touching the initial balance."`
	Adjust BalanceAdjustCmd `cmd:"" help:"Add a signed amount to the balance (use -- before negatives)."`
}

type BalanceShowCmd struct{}

func (c *BalanceShowCmd) Run(app *App) error {
	s, err := app.Ledger.Snapshot(app.Ctx)
	if err != nil {
		return err
	}
	printHeader(app.Out, "Balance")
	fmt.Fprintf(app.Out, "  Cash:            %s\n", app.money(s.Balance))
	if s.Initial.Valid {
		fmt.Fprintf(app.Out, "  Initial:         %s\n", app.money(s.Initial.Decimal))
	}
	fmt.Fprintf(app.Out, "  Owed to you:     %s\n", app.money(s.OwedToMe))
	fmt.Fprintf(app.Out, "  You owe:         %s\n", app.money(s.IOwe))
	fmt.Fprintf(app.Out, "  With debts paid: %s\n", app.money(s.Effective))
	fmt.Fprintf(app.Out, "  After your debts: %s\n", app.money(s.AfterDebts))
	if s.Runway != nil {
		if line := report.RunwayLine(*s.Runway); line != "" {
			printWarn(app.Out, line)
		}
	}
	return nil
}

type BalanceSetCmd struct {
	Amount string `arg:"" help:"New balance."`
}

func (c *BalanceSetCmd) Run(app *App) error {
	x, err := core.ParseBalance(c.Amount)
	if err != nil {
		return err
	}
	balance, err := app.Ledger.SetBalance(app.Ctx, x)
	if err != nil {
		return err
	}
	printSuccess(app.Out, fmt.Sprintf("Balance set to %s", app.money(balance)))
	return nil
}

type BalanceFixCmd struct {
	Amount string `arg:"" help:"Actual balance."`
}

func (c *BalanceFixCmd) Run(app *App) error {
	x, err := core.ParseBalance(c.Amount)
	if err != nil {
		return err
	}
	ch, err := app.Ledger.FixBalance(app.Ctx, x)
	if err != nil {
		return err
	}
	printChange(app, ch)
	return nil
}

type BalanceAdjustCmd struct {
	Delta string `arg:"" help:"Signed amount, e.g. 25 or -- -25."`
}

func (c *BalanceAdjustCmd) Run(app *App) error {
	d, err := core.ParseSignedAmount(c.Delta)
	if err != nil {
		return err
	}
	ch, err := app.Ledger.AdjustBalance(app.Ctx, d)
	if err != nil {
		return err
	}
	printChange(app, ch)
	return nil
}

func printChange(app *App, ch services.BalanceChange) {
	printSuccess(app.Out, fmt.Sprintf("Balance is now %s", app.money(ch.Current)))
	if ch.Previous.Valid {
		printInfof(app.Out, "Was %s (%s)", app.money(ch.Previous.Decimal), app.money(ch.Diff))
	}
}

type AuditCmd struct{}

func (c *AuditCmd) Run(app *App) error {
	a, err := app.Ledger.Audit(app.Ctx)
	if err != nil {
		return err
	}
	printAudit(app, a.Recorded, a.Expected, a.Drift, a.InSync())
	return nil
}

type ReconcileCmd struct{}

func (c *ReconcileCmd) Run(app *App) error {
	a, err := app.Ledger.Reconcile(app.Ctx)
	if err != nil {
		return err
	}
	if a.InSync() {
		printSuccess(app.Out, "Balance already in sync")
		return nil
	}
	printSuccess(app.Out, fmt.Sprintf("Balance repaired: %s -> %s", app.money(a.Recorded), app.money(a.Expected)))
	return nil
}

func printAudit(app *App, recorded, expected, drift decimal.Decimal, inSync bool) {
	printHeader(app.Out, "Balance audit")
	fmt.Fprintf(app.Out, "  Recorded: %s\n", app.money(recorded))
	fmt.Fprintf(app.Out, "  Expected: %s\n", app.money(expected))
	if inSync {
		printSuccess(app.Out, "In sync")
		return
	}
	printWarn(app.Out, fmt.Sprintf("Drift of %s (run: tally reconcile)", app.money(drift)))
}

type BudgetCmd struct {
	List   BudgetListCmd   `cmd:"" default:"1" help:"Show budgets against this month's spend."`
	Set    BudgetSetCmd    `cmd:"" help:"Set a category's monthly limit."`
	Delete BudgetDeleteCmd `cmd:"" help:"Remove a category's budget."`
}

type BudgetListCmd struct {
	Month string `arg:"" optional:"" help:"YYYY-MM or a month name."`
}

func (c *BudgetListCmd) Run(app *App) error {
	month, err := core.ParseMonth(c.Month, app.Now())
	if err != nil {
		return err
	}
	statuses, err := app.Ledger.BudgetStatuses(app.Ctx, month)
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		printMuted(app.Out, "No budgets set.")
		return nil
	}
	printHeader(app.Out, fmt.Sprintf("Budgets for %s", month))
	for i := range statuses {
		printBudget(app.Out, app.Currency, &statuses[i])
	}
	return nil
}

type BudgetSetCmd struct {
	Category string `arg:"" help:"Category."`
	Limit    string `arg:"" help:"Monthly limit."`
}

func (c *BudgetSetCmd) Run(app *App) error {
	limit, err := core.ParseAmount(c.Limit)
	if err != nil {
		return err
	}
	b, err := app.Ledger.SetBudget(app.Ctx, c.Category, limit)
	if err != nil {
		return err
	}
	printSuccess(app.Out, fmt.Sprintf("Budget for %s set to %s", b.Category, app.money(b.Limit)))
	return nil
}

type BudgetDeleteCmd struct {
	Category string `arg:"" help:"Category."`
}

func (c *BudgetDeleteCmd) Run(app *App) error {
	if err := app.Ledger.DeleteBudget(app.Ctx, c.Category); err != nil {
		return err
	}
	printSuccess(app.Out, fmt.Sprintf("Budget for %s removed", strings.ToLower(c.Category)))
	return nil
}

type SummaryCmd struct {
	Month string `arg:"" optional:"" help:"YYYY-MM or a month name; defaults to the current month."`
}

func (c *SummaryCmd) Run(app *App) error {
	month, err := core.ParseMonth(c.Month, app.Now())
	if err != nil {
		return err
	}
	s, err := app.Ledger.Summary(app.Ctx, month)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(app.Out, report.RenderSummary(s, app.Currency))
	return err
}

type WeeklyCmd struct{}

func (c *WeeklyCmd) Run(app *App) error {
	w, err := app.Ledger.WeeklyReport(app.Ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(app.Out, report.RenderWeekly(w, app.Currency))
	return err
}

type SchemaCmd struct{}

func (c *SchemaCmd) Run(app *App) error {
	if app.DBPath == "" {
		printMuted(app.Out, "Memory backend has no schema.")
		return nil
	}
	version, dirty, err := storage.SchemaVersion(app.DBPath)
	if err != nil {
		return err
	}
	if dirty {
		printWarn(app.Out, fmt.Sprintf("Schema version %d is dirty", version))
		return nil
	}
	printSuccess(app.Out, fmt.Sprintf("Schema version %d", version))
	return nil
}
