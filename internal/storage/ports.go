package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// ConfigKey names a scalar amount kept in the config table.
type ConfigKey string

const (
	KeyBalance           ConfigKey = "balance"
	KeyInitialBalance    ConfigKey = "initial_balance"
	KeyBaselineEffect    ConfigKey = "baseline_effect"
	KeyManualAdjustments ConfigKey = "manual_adjustments"
)

type DebtStore interface {
	AddDebt(ctx context.Context, d core.DebtRecord) (core.DebtRecord, error)
	OpenDebts(ctx context.Context) ([]core.DebtRecord, error)
	// UpdateDebt persists a new state for an open record. Settled records
	// cannot change again.
	UpdateDebt(ctx context.Context, d core.DebtRecord) error
}

type TransactionStore interface {
	AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	Transactions(ctx context.Context) ([]core.Transaction, error)
	RecentTransactions(ctx context.Context, limit int) ([]core.Transaction, error)
	MonthTransactions(ctx context.Context, m core.Month) ([]core.Transaction, error)
	MonthlySpend(ctx context.Context, c core.Category, m core.Month) (decimal.Decimal, error)
}

// ConfigStore holds the scalar balance state. Amounts that were never set
// come back invalid.
type ConfigStore interface {
	Amount(ctx context.Context, key ConfigKey) (decimal.NullDecimal, error)
	SetAmount(ctx context.Context, key ConfigKey, v decimal.Decimal) error
	// AddAmount applies delta to a key that has been set, and returns a
	// core.NotFoundError otherwise.
	AddAmount(ctx context.Context, key ConfigKey, delta decimal.Decimal) error
}

type BudgetStore interface {
	SetBudget(ctx context.Context, b core.Budget) error
	DeleteBudget(ctx context.Context, c core.Category) error
	Budgets(ctx context.Context) ([]core.Budget, error)
}

// Store is the ledger persistence boundary.
type Store interface {
	DebtStore
	TransactionStore
	ConfigStore
	BudgetStore

	// Atomic runs fn against a Store whose writes commit together or not at
	// all. Nested calls join the outer unit.
	Atomic(ctx context.Context, fn func(Store) error) error
}
