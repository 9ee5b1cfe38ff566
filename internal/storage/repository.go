package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the SQLite-backed Store. Amounts are stored as
// integer cents.
type SQLiteRepository struct {
	*queryStore
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers at the driver.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		queryStore: &queryStore{q: New(db)},
		db:         db,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Atomic(ctx context.Context, fn func(Store) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	ts := &txStore{queryStore: &queryStore{q: r.q.WithTx(tx)}}
	if err := fn(ts); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type txStore struct {
	*queryStore
}

func (s *txStore) Atomic(_ context.Context, fn func(Store) error) error {
	return fn(s)
}

// queryStore maps Queries rows to domain values.
type queryStore struct {
	q *Queries
}

func (s *queryStore) AddDebt(ctx context.Context, d core.DebtRecord) (core.DebtRecord, error) {
	if d.CreatedAt == "" {
		d.CreatedAt = core.Timestamp(time.Now())
	}
	cents, err := core.ToCents(d.Outstanding())
	if err != nil {
		return core.DebtRecord{}, fmt.Errorf("create debt: %w", err)
	}
	row, err := s.q.CreateDebt(ctx, CreateDebtParams{
		Creditor:    string(d.Creditor),
		Debtor:      string(d.Debtor),
		AmountCents: cents,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
	})
	if err != nil {
		return core.DebtRecord{}, fmt.Errorf("create debt: %w", err)
	}
	return debtFromRow(row), nil
}

func (s *queryStore) OpenDebts(ctx context.Context) ([]core.DebtRecord, error) {
	rows, err := s.q.ListOpenDebts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open debts: %w", err)
	}
	out := make([]core.DebtRecord, len(rows))
	for i, row := range rows {
		out[i] = debtFromRow(row)
	}
	return out, nil
}

func (s *queryStore) UpdateDebt(ctx context.Context, d core.DebtRecord) error {
	params := UpdateDebtParams{ID: d.ID}
	var amount decimal.Decimal
	switch st := d.State.(type) {
	case core.Open:
		amount = st.Outstanding
	case core.Settled:
		amount = st.Amount
		params.Settled = true
	default:
		return fmt.Errorf("update debt %d: unknown state %T", d.ID, d.State)
	}
	cents, err := core.ToCents(amount)
	if err != nil {
		return fmt.Errorf("update debt %d: %w", d.ID, err)
	}
	params.AmountCents = cents
	n, err := s.q.UpdateDebt(ctx, params)
	if err != nil {
		return fmt.Errorf("update debt: %w", err)
	}
	if n == 0 {
		return core.NotFound("debt", strconv.FormatInt(d.ID, 10))
	}
	return nil
}

func (s *queryStore) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.CreatedAt == "" {
		t.CreatedAt = core.Timestamp(time.Now())
	}
	cents, err := core.ToCents(t.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	row, err := s.q.CreateTransaction(ctx, CreateTransactionParams{
		AmountCents: cents,
		Kind:        string(t.Kind),
		Category:    string(t.Category),
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return transactionFromRow(row), nil
}

func (s *queryStore) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := s.q.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NotFound("transaction", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return transactionFromRow(row), nil
}

func (s *queryStore) DeleteTransaction(ctx context.Context, id int64) error {
	n, err := s.q.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return core.NotFound("transaction", strconv.FormatInt(id, 10))
	}
	return nil
}

func (s *queryStore) Transactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.q.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return transactionsFromRows(rows), nil
}

func (s *queryStore) RecentTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := s.q.ListRecentTransactions(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent transactions: %w", err)
	}
	return transactionsFromRows(rows), nil
}

func (s *queryStore) MonthTransactions(ctx context.Context, m core.Month) ([]core.Transaction, error) {
	rows, err := s.q.ListTransactionsByMonth(ctx, m.Prefix()+"%")
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", m.Prefix(), err)
	}
	return transactionsFromRows(rows), nil
}

func (s *queryStore) MonthlySpend(ctx context.Context, c core.Category, m core.Month) (decimal.Decimal, error) {
	cents, err := s.q.GetMonthlySpend(ctx, GetMonthlySpendParams{Category: string(c), Pattern: m.Prefix() + "%"})
	if err != nil {
		return decimal.Zero, fmt.Errorf("get monthly spend: %w", err)
	}
	return core.FromCents(cents), nil
}

func (s *queryStore) Amount(ctx context.Context, key ConfigKey) (decimal.NullDecimal, error) {
	cents, err := s.q.GetConfig(ctx, string(key))
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.NullDecimal{}, nil
	}
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("get %s: %w", key, err)
	}
	return decimal.NewNullDecimal(core.FromCents(cents)), nil
}

func (s *queryStore) SetAmount(ctx context.Context, key ConfigKey, v decimal.Decimal) error {
	cents, err := core.ToCents(v)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	if err := s.q.UpsertConfig(ctx, UpsertConfigParams{Key: string(key), ValueCents: cents}); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *queryStore) AddAmount(ctx context.Context, key ConfigKey, delta decimal.Decimal) error {
	cents, err := core.ToCents(delta)
	if err != nil {
		return fmt.Errorf("adjust %s: %w", key, err)
	}
	n, err := s.q.AddConfig(ctx, AddConfigParams{DeltaCents: cents, Key: string(key)})
	if err != nil {
		return fmt.Errorf("adjust %s: %w", key, err)
	}
	if n == 0 {
		return core.NotFound(string(key), "")
	}
	return nil
}

func (s *queryStore) SetBudget(ctx context.Context, b core.Budget) error {
	cents, err := core.ToCents(b.Limit)
	if err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	err = s.q.UpsertBudget(ctx, UpsertBudgetParams{Category: string(b.Category), LimitCents: cents})
	if err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	return nil
}

func (s *queryStore) DeleteBudget(ctx context.Context, c core.Category) error {
	n, err := s.q.DeleteBudget(ctx, string(c))
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n == 0 {
		return core.NotFound("budget", string(c))
	}
	return nil
}

func (s *queryStore) Budgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := s.q.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, len(rows))
	for i, row := range rows {
		out[i] = core.Budget{Category: core.Category(row.Category), Limit: core.FromCents(row.LimitCents)}
	}
	return out, nil
}

func debtFromRow(row Debt) core.DebtRecord {
	d := core.DebtRecord{
		ID:          row.ID,
		Creditor:    core.PersonRef(row.Creditor),
		Debtor:      core.PersonRef(row.Debtor),
		Description: row.Description,
		CreatedAt:   row.CreatedAt,
	}
	amount := core.FromCents(row.AmountCents)
	if row.Settled {
		d.State = core.Settled{Amount: amount}
	} else {
		d.State = core.Open{Outstanding: amount}
	}
	return d
}

func transactionFromRow(row Transaction) core.Transaction {
	return core.Transaction{
		ID:          row.ID,
		Amount:      core.FromCents(row.AmountCents),
		Kind:        core.Kind(row.Kind),
		Category:    core.Category(row.Category),
		Description: row.Description,
		CreatedAt:   row.CreatedAt,
	}
}

func transactionsFromRows(rows []Transaction) []core.Transaction {
	out := make([]core.Transaction, len(rows))
	for i, row := range rows {
		out[i] = transactionFromRow(row)
	}
	return out
}
