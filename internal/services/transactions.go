package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/report"
	"tally/internal/storage"
)

// TransactionResult is a committed transaction with the balance after it.
// Runway is set when both balances exist; Budget when the transaction's
// category has a budget.
type TransactionResult struct {
	Transaction core.Transaction
	Balance     decimal.NullDecimal
	Runway      *report.Runway
	Budget      *report.BudgetStatus
}

// CategoryClear reports the transactions removed by ClearCategory.
type CategoryClear struct {
	Category core.Category
	Month    core.Month
	Removed  []core.Transaction
	Total    decimal.Decimal
	Balance  decimal.NullDecimal
}

// Spend records a spend. An empty category is filled in by the classifier.
func (s *LedgerService) Spend(ctx context.Context, amount decimal.Decimal, category, description string) (TransactionResult, error) {
	description = describe(description, "expense")
	c := s.classifier.Categorize(description)
	if category != "" {
		var err error
		if c, err = core.ParseCategory(category); err != nil {
			s.logger.LogOperation(ctx, log.OpSpend, err, log.NewFields().WithAmount(amount))
			return TransactionResult{}, err
		}
	}
	return s.addTransaction(ctx, log.OpSpend, core.Transaction{
		Amount:      core.Round2(amount),
		Kind:        core.KindSpend,
		Category:    c,
		Description: description,
	})
}

// Income records an income in the income category.
func (s *LedgerService) Income(ctx context.Context, amount decimal.Decimal, description string) (TransactionResult, error) {
	return s.addTransaction(ctx, log.OpIncome, core.Transaction{
		Amount:      core.Round2(amount),
		Kind:        core.KindIncome,
		Category:    core.Income,
		Description: describe(description, "income"),
	})
}

func (s *LedgerService) addTransaction(ctx context.Context, op string, t core.Transaction) (TransactionResult, error) {
	t.CreatedAt = core.Timestamp(s.now())
	fields := log.NewFields().WithAmount(t.Amount).WithCategory(t.Category)
	if err := positive("amount", t.Amount); err != nil {
		s.logger.LogOperation(ctx, op, err, fields)
		return TransactionResult{}, err
	}
	if err := t.Validate(); err != nil {
		s.logger.LogOperation(ctx, op, err, fields)
		return TransactionResult{}, err
	}

	ch, balance, err := s.mutate(ctx, func(tx storage.Store) (change, error) {
		created, err := tx.AddTransaction(ctx, t)
		if err != nil {
			return change{}, err
		}
		return change{created: []core.Transaction{created}}, nil
	})
	if err != nil {
		err = fmt.Errorf("add %s: %w", t.Kind, err)
		s.logger.LogOperation(ctx, op, err, fields)
		return TransactionResult{}, err
	}

	res := s.transactionResult(ctx, ch.created[0], balance)
	s.logger.LogOperation(ctx, op, nil, fields.WithTransaction(res.Transaction).WithBalanceDelta(res.Transaction.Effect()))
	return res, nil
}

// transactionResult attaches the runway and budget status seen after a
// spend. Lookup failures only drop the extra detail.
func (s *LedgerService) transactionResult(ctx context.Context, t core.Transaction, balance decimal.NullDecimal) TransactionResult {
	res := TransactionResult{Transaction: t, Balance: balance}
	if t.Kind != core.KindSpend {
		return res
	}

	if balance.Valid {
		initial, err := s.store.Amount(ctx, storage.KeyInitialBalance)
		if err == nil && initial.Valid {
			if r, ok := report.ComputeRunway(balance.Decimal, initial.Decimal); ok {
				res.Runway = &r
			}
		}
	}

	budgets, err := s.store.Budgets(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load budgets", log.FieldError, err)
		return res
	}
	for _, b := range budgets {
		if b.Category != t.Category {
			continue
		}
		spent, err := s.store.MonthlySpend(ctx, b.Category, core.MonthOf(s.now()))
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to load monthly spend", log.FieldCategory, b.Category, log.FieldError, err)
			break
		}
		status := report.NewBudgetStatus(b, spent)
		res.Budget = &status
		break
	}
	return res
}

// History returns the most recent transactions, newest first.
func (s *LedgerService) History(ctx context.Context, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	txs, err := s.store.RecentTransactions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent transactions: %w", err)
	}
	return txs, nil
}

// DeleteTransaction removes a transaction and reverses its balance effect.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) (TransactionResult, error) {
	fields := log.NewFields()
	fields[log.FieldTransactionID] = id

	ch, balance, err := s.mutate(ctx, func(tx storage.Store) (change, error) {
		t, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return change{}, err
		}
		if err := tx.DeleteTransaction(ctx, id); err != nil {
			return change{}, err
		}
		return change{removed: []core.Transaction{t}}, nil
	})
	if err != nil {
		err = fmt.Errorf("delete transaction: %w", err)
		s.logger.LogOperation(ctx, log.OpDelete, err, fields)
		return TransactionResult{}, err
	}

	removed := ch.removed[0]
	s.logger.LogOperation(ctx, log.OpDelete, nil, fields.WithTransaction(removed).WithBalanceDelta(removed.Effect().Neg()))
	return TransactionResult{Transaction: removed, Balance: balance}, nil
}

// ClearCategory removes every transaction of category in month and reverses
// their combined effect.
func (s *LedgerService) ClearCategory(ctx context.Context, category string, month core.Month) (CategoryClear, error) {
	c, err := core.ParseCategory(category)
	fields := log.NewFields().WithCategory(core.Category(category))
	fields[log.FieldMonth] = month.Prefix()
	if err != nil {
		s.logger.LogOperation(ctx, log.OpClearCat, err, fields)
		return CategoryClear{}, err
	}

	ch, balance, err := s.mutate(ctx, func(tx storage.Store) (change, error) {
		txs, err := tx.MonthTransactions(ctx, month)
		if err != nil {
			return change{}, err
		}
		var removed []core.Transaction
		for _, t := range txs {
			if t.Category != c {
				continue
			}
			if err := tx.DeleteTransaction(ctx, t.ID); err != nil {
				return change{}, err
			}
			removed = append(removed, t)
		}
		if len(removed) == 0 {
			return change{}, core.NotFound("category", fmt.Sprintf("%s in %s", c, month.Prefix()))
		}
		return change{removed: removed}, nil
	})
	if err != nil {
		err = fmt.Errorf("clear category: %w", err)
		s.logger.LogOperation(ctx, log.OpClearCat, err, fields)
		return CategoryClear{}, err
	}

	res := CategoryClear{Category: c, Month: month, Removed: ch.removed, Balance: balance, Total: decimal.Zero}
	for _, t := range ch.removed {
		res.Total = res.Total.Add(t.Amount)
	}
	res.Total = core.Round2(res.Total)
	s.logger.LogOperation(ctx, log.OpClearCat, nil, fields.WithCount(len(res.Removed)).WithAmount(res.Total))
	return res, nil
}
