package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/log"
	"tally/internal/storage"
)

// ClearResult reports a clearing: how much was settled across how many
// records.
type ClearResult struct {
	Person  core.PersonRef
	Cleared decimal.Decimal
	Records int
}

// PaidResult is a spend paid by the owner, optionally on behalf of someone
// who now owes the amount.
type PaidResult struct {
	TransactionResult
	Debt *core.DebtRecord
}

// RecordDebt records that debtor owes creditor amount.
func (s *LedgerService) RecordDebt(ctx context.Context, creditor, debtor string, amount decimal.Decimal, description string) (core.DebtRecord, error) {
	d := core.NewOpenDebt(core.NewPersonRef(creditor), core.NewPersonRef(debtor), amount, describe(description, "debt"))
	d.CreatedAt = core.Timestamp(s.now())

	fields := log.NewFields().WithAmount(amount).WithPerson(d.Debtor)
	if err := d.Validate(); err != nil {
		s.logger.LogOperation(ctx, log.OpRecordDebt, err, fields)
		return core.DebtRecord{}, err
	}

	var saved core.DebtRecord
	_, _, err := s.mutate(ctx, func(tx storage.Store) (change, error) {
		var err error
		saved, err = tx.AddDebt(ctx, d)
		return change{}, err
	})
	if err != nil {
		err = fmt.Errorf("record debt: %w", err)
	}
	fields[log.FieldDebtID] = saved.ID
	s.logger.LogOperation(ctx, log.OpRecordDebt, err, fields)
	return saved, err
}

// Owe records that the owner owes person.
func (s *LedgerService) Owe(ctx context.Context, person string, amount decimal.Decimal, description string) (core.DebtRecord, error) {
	return s.RecordDebt(ctx, person, string(core.Owner), amount, description)
}

// Owes records that person owes the owner.
func (s *LedgerService) Owes(ctx context.Context, person string, amount decimal.Decimal, description string) (core.DebtRecord, error) {
	return s.RecordDebt(ctx, string(core.Owner), person, amount, description)
}

// Paid logs a personal spend categorized from its description. With a
// person, the same unit also records that person owes the owner the amount.
func (s *LedgerService) Paid(ctx context.Context, amount decimal.Decimal, description, person string) (PaidResult, error) {
	description = describe(description, "expense")
	t := core.Transaction{
		Amount:      core.Round2(amount),
		Kind:        core.KindSpend,
		Category:    s.classifier.Categorize(description),
		Description: description,
		CreatedAt:   core.Timestamp(s.now()),
	}

	var debt *core.DebtRecord
	if person != "" {
		d := core.NewOpenDebt(core.Owner, core.NewPersonRef(person), amount, description)
		d.CreatedAt = t.CreatedAt
		debt = &d
		t.Description = fmt.Sprintf("%s (paid for @%s)", description, d.Debtor)
	}

	fields := log.NewFields().WithAmount(amount).WithCategory(t.Category)
	if err := s.validatePaid(t, debt); err != nil {
		s.logger.LogOperation(ctx, log.OpPaid, err, fields)
		return PaidResult{}, err
	}
	if debt != nil {
		fields = fields.WithPerson(debt.Debtor)
	}

	ch, balance, err := s.mutate(ctx, func(tx storage.Store) (change, error) {
		if debt != nil {
			saved, err := tx.AddDebt(ctx, *debt)
			if err != nil {
				return change{}, err
			}
			*debt = saved
		}
		created, err := tx.AddTransaction(ctx, t)
		if err != nil {
			return change{}, err
		}
		return change{created: []core.Transaction{created}}, nil
	})
	if err != nil {
		err = fmt.Errorf("record payment: %w", err)
		s.logger.LogOperation(ctx, log.OpPaid, err, fields)
		return PaidResult{}, err
	}

	res := PaidResult{Debt: debt}
	res.TransactionResult = s.transactionResult(ctx, ch.created[0], balance)
	s.logger.LogOperation(ctx, log.OpPaid, nil, fields.WithTransaction(res.Transaction))
	return res, nil
}

func (s *LedgerService) validatePaid(t core.Transaction, debt *core.DebtRecord) error {
	if err := positive("amount", t.Amount); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if debt != nil {
		return debt.Validate()
	}
	return nil
}

// Debts returns every open debt record.
func (s *LedgerService) Debts(ctx context.Context) ([]core.DebtRecord, error) {
	records, err := s.store.OpenDebts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open debts: %w", err)
	}
	return records, nil
}

// Balances nets the open debts into one position per counterparty.
func (s *LedgerService) Balances(ctx context.Context) (ledger.Positions, error) {
	records, err := s.Debts(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.NetBalances(records), nil
}

// SettlementPlan returns the minimal transfers that settle every open
// position, including the owner's.
func (s *LedgerService) SettlementPlan(ctx context.Context) ([]core.Transfer, error) {
	positions, err := s.Balances(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.PlanSettlement(positions), nil
}

// ClearDebt settles the open debts between the owner and person, oldest
// first. Without an amount every open debt with person is settled;
// otherwise at most amount is cleared and the last record touched may be
// left partially open.
func (s *LedgerService) ClearDebt(ctx context.Context, person string, amount decimal.NullDecimal) (ClearResult, error) {
	p := core.NewPersonRef(person)
	fields := log.NewFields().WithPerson(p)
	if err := validateClearTarget(p, amount); err != nil {
		s.logger.LogOperation(ctx, log.OpClearDebt, err, fields)
		return ClearResult{}, err
	}

	var plan ledger.ClearPlan
	_, _, err := s.mutate(ctx, func(tx storage.Store) (change, error) {
		records, err := tx.OpenDebts(ctx)
		if err != nil {
			return change{}, err
		}
		if plan, err = ledger.PlanClear(records, p, amount); err != nil {
			return change{}, err
		}
		return change{}, applyClear(ctx, tx, plan)
	})
	if err != nil {
		err = fmt.Errorf("clear debt: %w", err)
		s.logger.LogOperation(ctx, log.OpClearDebt, err, fields)
		return ClearResult{}, err
	}

	res := ClearResult{Person: p, Cleared: plan.Cleared, Records: len(plan.Changes)}
	s.logger.LogOperation(ctx, log.OpClearDebt, nil, fields.WithAmount(res.Cleared).WithCount(res.Records))
	return res, nil
}

func validateClearTarget(p core.PersonRef, amount decimal.NullDecimal) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.IsOwner() {
		return &core.ValidationError{Field: "person", Value: string(p), Reason: "cannot clear debts with yourself"}
	}
	if amount.Valid {
		return positive("amount", amount.Decimal)
	}
	return nil
}

// ClearAllDebts settles every open debt. Nothing to clear is not an error.
func (s *LedgerService) ClearAllDebts(ctx context.Context) (ClearResult, error) {
	var plan ledger.ClearPlan
	_, _, err := s.mutate(ctx, func(tx storage.Store) (change, error) {
		records, err := tx.OpenDebts(ctx)
		if err != nil {
			return change{}, err
		}
		plan = ledger.PlanClearAll(records)
		return change{}, applyClear(ctx, tx, plan)
	})
	if err != nil {
		err = fmt.Errorf("clear all debts: %w", err)
		s.logger.LogOperation(ctx, log.OpClearAll, err, log.NewFields())
		return ClearResult{}, err
	}

	res := ClearResult{Cleared: plan.Cleared, Records: len(plan.Changes)}
	s.logger.LogOperation(ctx, log.OpClearAll, nil, log.NewFields().WithAmount(res.Cleared).WithCount(res.Records))
	return res, nil
}

func applyClear(ctx context.Context, tx storage.Store, plan ledger.ClearPlan) error {
	for _, d := range plan.Changes {
		if err := tx.UpdateDebt(ctx, d); err != nil {
			return fmt.Errorf("update debt %d: %w", d.ID, err)
		}
	}
	return nil
}
