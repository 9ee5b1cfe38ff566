package storage

import (
	"context"
)

const createDebt = `-- name: CreateDebt :one
INSERT INTO debts (creditor, debtor, amount_cents, description, settled, created_at)
VALUES (?, ?, ?, ?, 0, ?)
RETURNING id, creditor, debtor, amount_cents, description, settled, created_at
`

type CreateDebtParams struct {
	Creditor    string
	Debtor      string
	AmountCents int64
	Description string
	CreatedAt   string
}

func (q *Queries) CreateDebt(ctx context.Context, arg CreateDebtParams) (Debt, error) {
	row := q.db.QueryRowContext(ctx, createDebt,
		arg.Creditor,
		arg.Debtor,
		arg.AmountCents,
		arg.Description,
		arg.CreatedAt,
	)
	var i Debt
	err := row.Scan(
		&i.ID,
		&i.Creditor,
		&i.Debtor,
		&i.AmountCents,
		&i.Description,
		&i.Settled,
		&i.CreatedAt,
	)
	return i, err
}

const listOpenDebts = `-- name: ListOpenDebts :many
SELECT id, creditor, debtor, amount_cents, description, settled, created_at
FROM debts
WHERE settled = 0
ORDER BY created_at, id
`

func (q *Queries) ListOpenDebts(ctx context.Context) ([]Debt, error) {
	rows, err := q.db.QueryContext(ctx, listOpenDebts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Debt
	for rows.Next() {
		var i Debt
		if err := rows.Scan(
			&i.ID,
			&i.Creditor,
			&i.Debtor,
			&i.AmountCents,
			&i.Description,
			&i.Settled,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateDebt = `-- name: UpdateDebt :execrows
UPDATE debts
SET amount_cents = ?, settled = ?
WHERE id = ? AND settled = 0
`

type UpdateDebtParams struct {
	AmountCents int64
	Settled     bool
	ID          int64
}

func (q *Queries) UpdateDebt(ctx context.Context, arg UpdateDebtParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateDebt, arg.AmountCents, arg.Settled, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (amount_cents, kind, category, description, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id, amount_cents, kind, category, description, created_at
`

type CreateTransactionParams struct {
	AmountCents int64
	Kind        string
	Category    string
	Description string
	CreatedAt   string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.AmountCents,
		arg.Kind,
		arg.Category,
		arg.Description,
		arg.CreatedAt,
	)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.AmountCents,
		&i.Kind,
		&i.Category,
		&i.Description,
		&i.CreatedAt,
	)
	return i, err
}

const getTransaction = `-- name: GetTransaction :one
SELECT id, amount_cents, kind, category, description, created_at
FROM transactions
WHERE id = ?
`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.AmountCents,
		&i.Kind,
		&i.Category,
		&i.Description,
		&i.CreatedAt,
	)
	return i, err
}

const deleteTransaction = `-- name: DeleteTransaction :execrows
DELETE FROM transactions
WHERE id = ?
`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listTransactions = `-- name: ListTransactions :many
SELECT id, amount_cents, kind, category, description, created_at
FROM transactions
ORDER BY id
`

func (q *Queries) ListTransactions(ctx context.Context) ([]Transaction, error) {
	return q.queryTransactions(ctx, listTransactions)
}

const listRecentTransactions = `-- name: ListRecentTransactions :many
SELECT id, amount_cents, kind, category, description, created_at
FROM transactions
ORDER BY created_at DESC, id DESC
LIMIT ?
`

func (q *Queries) ListRecentTransactions(ctx context.Context, limit int64) ([]Transaction, error) {
	return q.queryTransactions(ctx, listRecentTransactions, limit)
}

const listTransactionsByMonth = `-- name: ListTransactionsByMonth :many
SELECT id, amount_cents, kind, category, description, created_at
FROM transactions
WHERE created_at LIKE ?
ORDER BY created_at, id
`

// ListTransactionsByMonth matches created_at against a "YYYY-MM%" pattern.
func (q *Queries) ListTransactionsByMonth(ctx context.Context, pattern string) ([]Transaction, error) {
	return q.queryTransactions(ctx, listTransactionsByMonth, pattern)
}

func (q *Queries) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.AmountCents,
			&i.Kind,
			&i.Category,
			&i.Description,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getMonthlySpend = `-- name: GetMonthlySpend :one
SELECT CAST(COALESCE(SUM(amount_cents), 0) AS INTEGER) AS total
FROM transactions
WHERE kind = 'spend' AND category = ? AND created_at LIKE ?
`

type GetMonthlySpendParams struct {
	Category string
	Pattern  string
}

func (q *Queries) GetMonthlySpend(ctx context.Context, arg GetMonthlySpendParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, getMonthlySpend, arg.Category, arg.Pattern)
	var total int64
	err := row.Scan(&total)
	return total, err
}

const getConfig = `-- name: GetConfig :one
SELECT value_cents FROM config WHERE key = ?
`

func (q *Queries) GetConfig(ctx context.Context, key string) (int64, error) {
	row := q.db.QueryRowContext(ctx, getConfig, key)
	var value int64
	err := row.Scan(&value)
	return value, err
}

const upsertConfig = `-- name: UpsertConfig :exec
INSERT INTO config (key, value_cents) VALUES (?, ?)
ON CONFLICT (key) DO UPDATE SET value_cents = excluded.value_cents
`

type UpsertConfigParams struct {
	Key        string
	ValueCents int64
}

func (q *Queries) UpsertConfig(ctx context.Context, arg UpsertConfigParams) error {
	_, err := q.db.ExecContext(ctx, upsertConfig, arg.Key, arg.ValueCents)
	return err
}

const addConfig = `-- name: AddConfig :execrows
UPDATE config SET value_cents = value_cents + ? WHERE key = ?
`

type AddConfigParams struct {
	DeltaCents int64
	Key        string
}

func (q *Queries) AddConfig(ctx context.Context, arg AddConfigParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, addConfig, arg.DeltaCents, arg.Key)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const upsertBudget = `-- name: UpsertBudget :exec
INSERT INTO budgets (category, limit_cents) VALUES (?, ?)
ON CONFLICT (category) DO UPDATE SET limit_cents = excluded.limit_cents
`

type UpsertBudgetParams struct {
	Category   string
	LimitCents int64
}

func (q *Queries) UpsertBudget(ctx context.Context, arg UpsertBudgetParams) error {
	_, err := q.db.ExecContext(ctx, upsertBudget, arg.Category, arg.LimitCents)
	return err
}

const deleteBudget = `-- name: DeleteBudget :execrows
DELETE FROM budgets WHERE category = ?
`

func (q *Queries) DeleteBudget(ctx context.Context, category string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteBudget, category)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listBudgets = `-- name: ListBudgets :many
SELECT category, limit_cents FROM budgets ORDER BY category
`

func (q *Queries) ListBudgets(ctx context.Context) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Budget
	for rows.Next() {
		var i Budget
		if err := rows.Scan(&i.Category, &i.LimitCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
