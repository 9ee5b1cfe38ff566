package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/alecthomas/kong"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/services"
	"tally/internal/storage/memory"
)

func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	now := func() time.Time { return time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC) }
	ledger := services.NewLedgerService(memory.New(),
		services.WithClock(now),
		services.WithLogger(log.New(log.Config{Level: slog.LevelError, Output: io.Discard})),
	)
	out := &bytes.Buffer{}
	return &App{Ctx: context.Background(), Ledger: ledger, Currency: "AED", Out: out, Now: now}, out
}

// run parses args against the command tree and runs the selected command.
func run(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	var cmds Commands
	parser, err := kong.New(&cmds, kong.Name("tally"), kong.Writers(io.Discard, io.Discard))
	assert.NoError(t, err)
	ctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}
	out := app.Out.(*bytes.Buffer)
	out.Reset()
	err = ctx.Run(app)
	return out.String(), err
}

func mustRun(t *testing.T, app *App, args ...string) string {
	t.Helper()
	out, err := run(t, app, args...)
	assert.NoError(t, err, "tally %v", args)
	return out
}

func TestDebtCommands(t *testing.T) {
	app, _ := newTestApp(t)

	out := mustRun(t, app, "owes", "@Alice", "50", "concert", "tickets")
	assert.Contains(t, out, "@alice owes @me AED 50.00 (concert tickets)")

	mustRun(t, app, "owe", "bob", "20", "taxi")
	mustRun(t, app, "debt", "carol", "dave", "15")

	out = mustRun(t, app, "balances")
	assert.Contains(t, out, "@alice owes you AED 50.00")
	assert.Contains(t, out, "you owe @bob AED 20.00")

	out = mustRun(t, app, "settle")
	assert.Contains(t, out, "Settlement plan")

	out = mustRun(t, app, "clear", "alice", "30")
	assert.Contains(t, out, "Cleared AED 30.00 with @alice across 1 debt(s)")

	out = mustRun(t, app, "debts")
	assert.Contains(t, out, "@alice owes @me AED 20.00")

	out = mustRun(t, app, "clear-all")
	assert.Contains(t, out, "Cleared AED 55.00 across 3 debt(s)")

	out = mustRun(t, app, "debts")
	assert.Contains(t, out, "No open debts.")
}

func TestDebtCommandErrors(t *testing.T) {
	app, _ := newTestApp(t)

	_, err := run(t, app, "owes", "alice", "abc")
	assert.True(t, errors.Is(err, core.ErrValidation), "got %v", err)

	_, err = run(t, app, "debt", "alice", "alice", "5")
	assert.True(t, errors.Is(err, core.ErrSamePerson), "got %v", err)

	_, err = run(t, app, "clear", "me")
	assert.True(t, errors.Is(err, core.ErrValidation), "got %v", err)

	_, err = run(t, app, "owes")
	assert.Error(t, err)

	for _, args := range [][]string{
		{"spend", "400000000000000000", "typo"},
		{"paid", "1000000000000.01", "yacht"},
		{"budget", "set", "food", "10000000000000"},
	} {
		_, err = run(t, app, args...)
		assert.True(t, errors.Is(err, core.ErrInvalidAmount), "%v: got %v", args, err)
	}
}

func TestTransactionCommands(t *testing.T) {
	app, _ := newTestApp(t)

	out := mustRun(t, app, "spend", "10", "coffee")
	assert.Contains(t, out, "Balance not set")

	mustRun(t, app, "balance", "set", "1000")
	out = mustRun(t, app, "spend", "-c", "transport", "45.50", "metro", "card")
	assert.Contains(t, out, "Spent AED 45.50 (transport): metro card")
	assert.Contains(t, out, "Balance: AED 954.50")

	out = mustRun(t, app, "income", "2500", "salary")
	assert.Contains(t, out, "Received AED 2,500.00 (income)")

	out = mustRun(t, app, "paid", "90", "dinner", "--for", "carol")
	assert.Contains(t, out, "@carol owes you AED 90.00")

	out = mustRun(t, app, "history", "-n", "2")
	assert.Contains(t, out, "dinner (paid for @carol)")
	assert.Contains(t, out, "+AED 2,500.00")
	assert.NotContains(t, out, "metro card")

	out = mustRun(t, app, "delete", "2")
	assert.Contains(t, out, "Deleted #2")
	assert.Contains(t, out, "Balance: AED 3,410.00")

	_, err := run(t, app, "delete", "2")
	assert.True(t, errors.Is(err, core.ErrNotFound), "got %v", err)

	out = mustRun(t, app, "clear-category", "food", "feb")
	assert.Contains(t, out, "transaction(s) from")
}

func TestBalanceCommands(t *testing.T) {
	app, _ := newTestApp(t)

	_, err := run(t, app, "balance")
	assert.True(t, errors.Is(err, core.ErrNotFound), "got %v", err)

	mustRun(t, app, "balance", "set", "1000")
	mustRun(t, app, "owes", "alice", "100")

	out := mustRun(t, app, "balance")
	assert.Contains(t, out, "Cash:            AED 1,000.00")
	assert.Contains(t, out, "With debts paid: AED 1,100.00")

	out = mustRun(t, app, "balance", "fix", "950")
	assert.Contains(t, out, "Balance is now AED 950.00")
	assert.Contains(t, out, "Was AED 1,000.00 (AED -50.00)")

	out = mustRun(t, app, "balance", "adjust", "--", "-25")
	assert.Contains(t, out, "Balance is now AED 925.00")

	out = mustRun(t, app, "audit")
	assert.Contains(t, out, "In sync")

	out = mustRun(t, app, "reconcile")
	assert.Contains(t, out, "already in sync")
}

func TestBudgetAndReports(t *testing.T) {
	app, _ := newTestApp(t)
	mustRun(t, app, "balance", "set", "2000")

	out := mustRun(t, app, "budget", "set", "food", "100")
	assert.Contains(t, out, "Budget for food set to AED 100.00")

	out = mustRun(t, app, "spend", "-c", "food", "95", "groceries")
	assert.Contains(t, out, "[ALERT]")

	out = mustRun(t, app, "budget")
	assert.Contains(t, out, "Budgets for")
	assert.Contains(t, out, "AED 95.00 / AED 100.00")

	out = mustRun(t, app, "summary", "2026-02")
	assert.Contains(t, out, "Spending by category:")
	assert.Contains(t, out, "food: AED 95.00")

	out = mustRun(t, app, "weekly")
	assert.Contains(t, out, "Weekly report for 14 Feb 2026")

	mustRun(t, app, "budget", "delete", "food")
	_, err := run(t, app, "budget", "delete", "food")
	assert.True(t, errors.Is(err, core.ErrNotFound), "got %v", err)

	_, err = run(t, app, "summary", "2026-13")
	assert.True(t, errors.Is(err, core.ErrValidation), "got %v", err)
}

func TestImportCommand(t *testing.T) {
	app, _ := newTestApp(t)
	path := filepath.Join(t.TempDir(), "feb.csv")
	csv := "Date,Description,Amount\n2026-02-01,Carrefour groceries,-150.25\n2026-02-02,Salary,5000\nbad,row,x\n"
	assert.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	out := mustRun(t, app, "import", path)
	assert.Contains(t, out, "row 4 skipped")
	assert.Contains(t, out, "Imported 2 transaction(s): spent AED 150.25, received AED 5,000.00")

	_, err := run(t, app, "import", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestSchemaCommandMemory(t *testing.T) {
	app, _ := newTestApp(t)
	out := mustRun(t, app, "schema")
	assert.Contains(t, out, "Memory backend has no schema.")
}
