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

// SetBudget creates or replaces the monthly limit of a category.
func (s *LedgerService) SetBudget(ctx context.Context, category string, limit decimal.Decimal) (core.Budget, error) {
	fields := log.NewFields().WithAmount(limit)
	c, err := core.ParseCategory(category)
	if err != nil {
		s.logger.LogOperation(ctx, log.OpSetBudget, err, fields)
		return core.Budget{}, err
	}
	b := core.Budget{Category: c, Limit: core.Round2(limit)}
	fields = fields.WithCategory(c)
	if err := b.Validate(); err != nil {
		s.logger.LogOperation(ctx, log.OpSetBudget, err, fields)
		return core.Budget{}, err
	}

	_, _, err = s.mutate(ctx, func(tx storage.Store) (change, error) {
		return change{}, tx.SetBudget(ctx, b)
	})
	if err != nil {
		err = fmt.Errorf("set budget: %w", err)
	}
	s.logger.LogOperation(ctx, log.OpSetBudget, err, fields)
	return b, err
}

// DeleteBudget removes a category's budget; NotFound when it has none.
func (s *LedgerService) DeleteBudget(ctx context.Context, category string) error {
	c, err := core.ParseCategory(category)
	if err == nil {
		_, _, err = s.mutate(ctx, func(tx storage.Store) (change, error) {
			return change{}, tx.DeleteBudget(ctx, c)
		})
		if err != nil {
			err = fmt.Errorf("delete budget: %w", err)
		}
	}
	s.logger.LogOperation(ctx, log.OpDeleteBudget, err, log.NewFields().WithCategory(core.Category(category)))
	return err
}

// BudgetStatuses reports every budget against the month's spend.
func (s *LedgerService) BudgetStatuses(ctx context.Context, month core.Month) ([]report.BudgetStatus, error) {
	budgets, err := s.store.Budgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	spent := make(map[core.Category]decimal.Decimal, len(budgets))
	for _, b := range budgets {
		v, err := s.store.MonthlySpend(ctx, b.Category, month)
		if err != nil {
			return nil, fmt.Errorf("monthly spend %s: %w", b.Category, err)
		}
		spent[b.Category] = v
	}
	return report.BudgetStatuses(budgets, spent), nil
}

// Summary builds the monthly view.
func (s *LedgerService) Summary(ctx context.Context, month core.Month) (report.MonthSummary, error) {
	txs, err := s.store.MonthTransactions(ctx, month)
	if err != nil {
		return report.MonthSummary{}, fmt.Errorf("list month transactions: %w", err)
	}
	balance, err := s.store.Amount(ctx, storage.KeyBalance)
	if err != nil {
		return report.MonthSummary{}, fmt.Errorf("read balance: %w", err)
	}
	statuses, err := s.BudgetStatuses(ctx, month)
	if err != nil {
		return report.MonthSummary{}, err
	}
	return report.Summarize(month, txs, balance, statuses), nil
}

// WeeklyReport builds the scheduled report for the current month to date.
func (s *LedgerService) WeeklyReport(ctx context.Context) (report.Weekly, error) {
	now := s.now()
	month := core.MonthOf(now)
	txs, err := s.store.MonthTransactions(ctx, month)
	if err != nil {
		return report.Weekly{}, fmt.Errorf("list month transactions: %w", err)
	}
	balance, initial, err := s.balances(ctx)
	if err != nil {
		return report.Weekly{}, err
	}
	statuses, err := s.BudgetStatuses(ctx, month)
	if err != nil {
		return report.Weekly{}, err
	}
	return report.BuildWeekly(now, txs, balance, initial, statuses), nil
}
