package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/storage"
	"tally/internal/storage/storagetest"
)

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return New() })
}

func TestAtomicIsolatesFailedUnit(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.Atomic(ctx, func(tx storage.Store) error {
		_, _ = tx.AddDebt(ctx, core.NewOpenDebt(core.Owner, "alice", decimal.NewFromInt(5), ""))
		return core.NotFound("balance", "")
	})
	open, _ := s.OpenDebts(ctx)
	if len(open) != 0 {
		t.Fatalf("expected failed unit to leave no debts, got %d", len(open))
	}
	d, _ := s.AddDebt(ctx, core.NewOpenDebt(core.Owner, "alice", decimal.NewFromInt(5), ""))
	if d.ID != 1 {
		t.Fatalf("expected id sequence to be rolled back, got %d", d.ID)
	}
}

func TestRecentTransactionsLimit(t *testing.T) {
	s := New()
	got, err := s.RecentTransactions(context.Background(), 0)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected nothing for zero limit, got %v %v", got, err)
	}
}
