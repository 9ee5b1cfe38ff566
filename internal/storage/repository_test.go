package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/storage"
	"tally/internal/storage/storagetest"
)

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "tally.db"))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepositoryContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return newRepo(t) })
}

func TestSQLiteRepositoryPing(t *testing.T) {
	if err := newRepo(t).Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tally.db")
	for i := 0; i < 2; i++ {
		if err := storage.RunMigrations(path); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	v, dirty, err := storage.SchemaVersion(path)
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if v != 1 || dirty {
		t.Fatalf("expected clean version 1, got %d dirty=%v", v, dirty)
	}
}

func TestSQLiteRepositoryRejectsOverflowingCents(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	huge := decimal.RequireFromString("400000000000000000")

	if err := repo.SetAmount(ctx, storage.KeyBalance, decimal.Zero); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	_, err := repo.AddTransaction(ctx, core.Transaction{Kind: core.KindSpend, Category: core.Food, Amount: huge})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("add transaction error = %v, want validation error", err)
	}
	if err := repo.AddAmount(ctx, storage.KeyBalance, huge.Neg()); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("add amount error = %v, want validation error", err)
	}
	if err := repo.SetAmount(ctx, storage.KeyInitialBalance, huge); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("set amount error = %v, want validation error", err)
	}

	txs, err := repo.Transactions(ctx)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("stored %d transactions, want none", len(txs))
	}
	balance, err := repo.Amount(ctx, storage.KeyBalance)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Valid || !balance.Decimal.IsZero() {
		t.Errorf("balance = %v, want 0", balance)
	}
	initial, err := repo.Amount(ctx, storage.KeyInitialBalance)
	if err != nil {
		t.Fatalf("initial balance: %v", err)
	}
	if initial.Valid {
		t.Errorf("initial balance = %v, want unset", initial.Decimal)
	}
}
