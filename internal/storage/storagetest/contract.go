// Package storagetest checks that a storage.Store implementation behaves
// like the ledger expects.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/storage"
)

// Run exercises newStore with the shared Store contract. Each subtest gets a
// fresh store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Helper()
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"debts", testDebts},
		{"transactions", testTransactions},
		{"months", testMonths},
		{"config", testConfig},
		{"budgets", testBudgets},
		{"atomic_commit", testAtomicCommit},
		{"atomic_rollback", testAtomicRollback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testDebts(t *testing.T, s storage.Store) {
	ctx := context.Background()
	first, err := s.AddDebt(ctx, core.DebtRecord{
		Creditor: core.Owner, Debtor: "alice", Description: "dinner",
		State: core.Open{Outstanding: dec("30")}, CreatedAt: "2026-01-02 10:00:00",
	})
	if err != nil {
		t.Fatalf("add debt: %v", err)
	}
	if first.ID == 0 {
		t.Fatalf("expected id to be assigned")
	}
	if _, err := s.AddDebt(ctx, core.DebtRecord{
		Creditor: "bob", Debtor: core.Owner,
		State: core.Open{Outstanding: dec("12.5")}, CreatedAt: "2026-01-01 10:00:00",
	}); err != nil {
		t.Fatalf("add debt: %v", err)
	}

	open, err := s.OpenDebts(ctx)
	if err != nil {
		t.Fatalf("open debts: %v", err)
	}
	if len(open) != 2 || open[0].Creditor != "bob" {
		t.Fatalf("expected 2 open debts oldest first, got %+v", open)
	}

	first.State = core.Open{Outstanding: dec("10")}
	if err := s.UpdateDebt(ctx, first); err != nil {
		t.Fatalf("partial update: %v", err)
	}
	open, _ = s.OpenDebts(ctx)
	if got := open[1].Outstanding().StringFixed(2); got != "10.00" {
		t.Fatalf("expected reduced amount 10.00, got %s", got)
	}

	first.State = core.Settled{Amount: dec("10")}
	if err := s.UpdateDebt(ctx, first); err != nil {
		t.Fatalf("settle: %v", err)
	}
	open, _ = s.OpenDebts(ctx)
	if len(open) != 1 {
		t.Fatalf("expected 1 open debt after settling, got %d", len(open))
	}
	if err := s.UpdateDebt(ctx, first); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected settled debt to be immutable, got %v", err)
	}
}

func testTransactions(t *testing.T, s storage.Store) {
	ctx := context.Background()
	var ids []int64
	for i, amount := range []string{"10", "20.25", "30"} {
		tx, err := s.AddTransaction(ctx, core.Transaction{
			Amount: dec(amount), Kind: core.KindSpend, Category: core.Food,
			CreatedAt: core.Timestamp(time.Date(2026, 2, 1+i, 12, 0, 0, 0, time.UTC)),
		})
		if err != nil {
			t.Fatalf("add transaction: %v", err)
		}
		ids = append(ids, tx.ID)
	}

	got, err := s.GetTransaction(ctx, ids[1])
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if got.Amount.StringFixed(2) != "20.25" || got.Kind != core.KindSpend {
		t.Fatalf("unexpected transaction %+v", got)
	}

	recent, err := s.RecentTransactions(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != ids[2] || recent[1].ID != ids[1] {
		t.Fatalf("expected newest first, got %+v", recent)
	}

	if err := s.DeleteTransaction(ctx, ids[0]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTransaction(ctx, ids[0]); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, err := s.GetTransaction(ctx, ids[0]); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	all, _ := s.Transactions(ctx)
	if len(all) != 2 {
		t.Fatalf("expected 2 transactions left, got %d", len(all))
	}
}

func testMonths(t *testing.T, s storage.Store) {
	ctx := context.Background()
	add := func(kind core.Kind, c core.Category, amount, at string) {
		if _, err := s.AddTransaction(ctx, core.Transaction{Amount: dec(amount), Kind: kind, Category: c, CreatedAt: at}); err != nil {
			t.Fatalf("add transaction: %v", err)
		}
	}
	add(core.KindSpend, core.Food, "10", "2026-01-31 23:59:59")
	add(core.KindSpend, core.Food, "15", "2026-02-01 00:00:00")
	add(core.KindSpend, core.Food, "5.5", "2026-02-14")
	add(core.KindSpend, core.Bills, "100", "2026-02-20 08:00:00")
	add(core.KindIncome, core.Income, "999", "2026-02-25 08:00:00")

	feb := core.Month{Year: 2026, Month: time.February}
	txs, err := s.MonthTransactions(ctx, feb)
	if err != nil {
		t.Fatalf("month transactions: %v", err)
	}
	if len(txs) != 4 {
		t.Fatalf("expected 4 transactions in February, got %d", len(txs))
	}
	spent, err := s.MonthlySpend(ctx, core.Food, feb)
	if err != nil {
		t.Fatalf("monthly spend: %v", err)
	}
	if spent.StringFixed(2) != "20.50" {
		t.Fatalf("expected food spend 20.50, got %s", spent.StringFixed(2))
	}
	none, _ := s.MonthlySpend(ctx, core.Travel, feb)
	if !none.IsZero() {
		t.Fatalf("expected zero travel spend, got %s", none)
	}
}

func testConfig(t *testing.T, s storage.Store) {
	ctx := context.Background()
	v, err := s.Amount(ctx, storage.KeyBalance)
	if err != nil || v.Valid {
		t.Fatalf("expected unset balance, got %v %v", v, err)
	}
	if err := s.AddAmount(ctx, storage.KeyBalance, dec("5")); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found adjusting unset balance, got %v", err)
	}
	if err := s.SetAmount(ctx, storage.KeyBalance, dec("1000")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.AddAmount(ctx, storage.KeyBalance, dec("-250.75")); err != nil {
		t.Fatalf("add: %v", err)
	}
	v, _ = s.Amount(ctx, storage.KeyBalance)
	if !v.Valid || v.Decimal.StringFixed(2) != "749.25" {
		t.Fatalf("expected 749.25, got %v", v)
	}
	if err := s.SetAmount(ctx, storage.KeyBalance, dec("-3")); err != nil {
		t.Fatalf("set negative: %v", err)
	}
	v, _ = s.Amount(ctx, storage.KeyBalance)
	if v.Decimal.StringFixed(2) != "-3.00" {
		t.Fatalf("expected -3.00, got %v", v)
	}
}

func testBudgets(t *testing.T, s storage.Store) {
	ctx := context.Background()
	if err := s.SetBudget(ctx, core.Budget{Category: core.Food, Limit: dec("500")}); err != nil {
		t.Fatalf("set budget: %v", err)
	}
	if err := s.SetBudget(ctx, core.Budget{Category: core.Food, Limit: dec("650")}); err != nil {
		t.Fatalf("upsert budget: %v", err)
	}
	if err := s.SetBudget(ctx, core.Budget{Category: core.Bills, Limit: dec("300")}); err != nil {
		t.Fatalf("set budget: %v", err)
	}
	budgets, err := s.Budgets(ctx)
	if err != nil {
		t.Fatalf("budgets: %v", err)
	}
	if len(budgets) != 2 || budgets[1].Category != core.Food || budgets[1].Limit.StringFixed(2) != "650.00" {
		t.Fatalf("unexpected budgets %+v", budgets)
	}
	if err := s.DeleteBudget(ctx, core.Food); err != nil {
		t.Fatalf("delete budget: %v", err)
	}
	if err := s.DeleteBudget(ctx, core.Food); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func testAtomicCommit(t *testing.T, s storage.Store) {
	ctx := context.Background()
	if err := s.SetAmount(ctx, storage.KeyBalance, dec("100")); err != nil {
		t.Fatalf("set: %v", err)
	}
	err := s.Atomic(ctx, func(tx storage.Store) error {
		if _, err := tx.AddTransaction(ctx, core.Transaction{Amount: dec("40"), Kind: core.KindSpend, Category: core.Food}); err != nil {
			return err
		}
		return tx.Atomic(ctx, func(inner storage.Store) error {
			return inner.AddAmount(ctx, storage.KeyBalance, dec("-40"))
		})
	})
	if err != nil {
		t.Fatalf("atomic: %v", err)
	}
	v, _ := s.Amount(ctx, storage.KeyBalance)
	all, _ := s.Transactions(ctx)
	if v.Decimal.StringFixed(2) != "60.00" || len(all) != 1 {
		t.Fatalf("expected committed unit, got balance %v and %d transactions", v, len(all))
	}
}

func testAtomicRollback(t *testing.T, s storage.Store) {
	ctx := context.Background()
	if err := s.SetAmount(ctx, storage.KeyBalance, dec("100")); err != nil {
		t.Fatalf("set: %v", err)
	}
	boom := errors.New("boom")
	err := s.Atomic(ctx, func(tx storage.Store) error {
		if _, err := tx.AddTransaction(ctx, core.Transaction{Amount: dec("40"), Kind: core.KindSpend, Category: core.Food}); err != nil {
			return err
		}
		if err := tx.AddAmount(ctx, storage.KeyBalance, dec("-40")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	v, _ := s.Amount(ctx, storage.KeyBalance)
	all, _ := s.Transactions(ctx)
	if v.Decimal.StringFixed(2) != "100.00" || len(all) != 0 {
		t.Fatalf("expected rollback, got balance %v and %d transactions", v, len(all))
	}
}
