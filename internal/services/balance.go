package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/log"
	"tally/internal/report"
	"tally/internal/storage"
)

// BalanceChange is a direct edit of the recorded balance.
type BalanceChange struct {
	Previous decimal.NullDecimal
	Current  decimal.Decimal
	Diff     decimal.Decimal
}

// Snapshot is the owner's financial position: cash on hand and what the
// open debts will do to it.
type Snapshot struct {
	Balance    decimal.Decimal
	Initial    decimal.NullDecimal
	Runway     *report.Runway
	OwedToMe   decimal.Decimal
	IOwe       decimal.Decimal
	Effective  decimal.Decimal
	AfterDebts decimal.Decimal
}

// SetBalance sets both the balance and the initial balance to x, and starts
// a fresh audit baseline from the current transactions.
func (s *LedgerService) SetBalance(ctx context.Context, x decimal.Decimal) (decimal.Decimal, error) {
	x = core.Round2(x)
	if err := core.CheckAmount("amount", x); err != nil {
		s.logger.LogOperation(ctx, log.OpSetBalance, err, log.NewFields().WithAmount(x))
		return decimal.Zero, err
	}
	_, _, err := s.mutate(ctx, func(tx storage.Store) (change, error) {
		return change{}, resetBaseline(ctx, tx, x)
	})
	if err != nil {
		err = fmt.Errorf("set balance: %w", err)
	}
	s.logger.LogOperation(ctx, log.OpSetBalance, err, log.NewFields().WithAmount(x))
	return x, err
}

func resetBaseline(ctx context.Context, tx storage.Store, x decimal.Decimal) error {
	all, err := tx.Transactions(ctx)
	if err != nil {
		return err
	}
	for key, v := range map[storage.ConfigKey]decimal.Decimal{
		storage.KeyBalance:           x,
		storage.KeyInitialBalance:    x,
		storage.KeyBaselineEffect:    ledger.SumEffects(all),
		storage.KeyManualAdjustments: decimal.Zero,
	} {
		if err := tx.SetAmount(ctx, key, v); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

// FixBalance overwrites the balance with x and counts the difference as a
// manual adjustment. Without a previous balance it behaves like SetBalance.
func (s *LedgerService) FixBalance(ctx context.Context, x decimal.Decimal) (BalanceChange, error) {
	x = core.Round2(x)
	if err := core.CheckAmount("amount", x); err != nil {
		s.logger.LogOperation(ctx, log.OpFixBalance, err, log.NewFields().WithAmount(x))
		return BalanceChange{}, err
	}
	res := BalanceChange{Current: x}
	_, _, err := s.mutate(ctx, func(tx storage.Store) (change, error) {
		prev, err := tx.Amount(ctx, storage.KeyBalance)
		if err != nil {
			return change{}, err
		}
		res.Previous = prev
		if !prev.Valid {
			return change{}, resetBaseline(ctx, tx, x)
		}
		res.Diff = core.Round2(x.Sub(prev.Decimal))
		if err := tx.SetAmount(ctx, storage.KeyBalance, x); err != nil {
			return change{}, err
		}
		return change{}, addManual(ctx, tx, res.Diff)
	})
	if err != nil {
		err = fmt.Errorf("fix balance: %w", err)
		s.logger.LogOperation(ctx, log.OpFixBalance, err, log.NewFields().WithAmount(x))
		return BalanceChange{}, err
	}
	s.logger.LogOperation(ctx, log.OpFixBalance, nil, log.NewFields().WithAmount(x).WithBalanceDelta(res.Diff))
	return res, nil
}

// AdjustBalance moves the balance by a signed, non-zero delta. It requires
// a balance to have been set.
func (s *LedgerService) AdjustBalance(ctx context.Context, delta decimal.Decimal) (BalanceChange, error) {
	delta = core.Round2(delta)
	fields := log.NewFields().WithBalanceDelta(delta)
	if delta.IsZero() {
		err := &core.ValidationError{Field: "amount", Value: delta.String(), Reason: "must not be zero"}
		s.logger.LogOperation(ctx, log.OpAdjust, err, fields)
		return BalanceChange{}, err
	}
	if err := core.CheckAmount("amount", delta); err != nil {
		s.logger.LogOperation(ctx, log.OpAdjust, err, fields)
		return BalanceChange{}, err
	}

	res := BalanceChange{Diff: delta}
	_, _, err := s.mutate(ctx, func(tx storage.Store) (change, error) {
		prev, err := tx.Amount(ctx, storage.KeyBalance)
		if err != nil {
			return change{}, err
		}
		if !prev.Valid {
			return change{}, core.NotFound("balance", string(storage.KeyBalance))
		}
		res.Previous = prev
		res.Current = core.Round2(prev.Decimal.Add(delta))
		if err := tx.AddAmount(ctx, storage.KeyBalance, delta); err != nil {
			return change{}, err
		}
		return change{}, addManual(ctx, tx, delta)
	})
	if err != nil {
		err = fmt.Errorf("adjust balance: %w", err)
		s.logger.LogOperation(ctx, log.OpAdjust, err, fields)
		return BalanceChange{}, err
	}
	s.logger.LogOperation(ctx, log.OpAdjust, nil, fields.WithAmount(res.Current))
	return res, nil
}

// addManual accumulates d into the manual adjustments, creating the key for
// ledgers whose balance predates it.
func addManual(ctx context.Context, tx storage.Store, d decimal.Decimal) error {
	cur, err := tx.Amount(ctx, storage.KeyManualAdjustments)
	if err != nil {
		return err
	}
	if !cur.Valid {
		return tx.SetAmount(ctx, storage.KeyManualAdjustments, d)
	}
	return tx.AddAmount(ctx, storage.KeyManualAdjustments, d)
}

// Snapshot combines the balance with the owner's net debt position.
func (s *LedgerService) Snapshot(ctx context.Context) (Snapshot, error) {
	balance, initial, err := s.balances(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if !balance.Valid {
		return Snapshot{}, core.NotFound("balance", string(storage.KeyBalance))
	}
	positions, err := s.Balances(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Balance:  balance.Decimal,
		Initial:  initial,
		OwedToMe: positions.OwedToOwner(),
		IOwe:     positions.OwedByOwner(),
	}
	if initial.Valid {
		if r, ok := report.ComputeRunway(balance.Decimal, initial.Decimal); ok {
			snap.Runway = &r
		}
	}
	snap.Effective = core.Round2(snap.Balance.Add(snap.OwedToMe))
	snap.AfterDebts = core.Round2(snap.Balance.Sub(snap.IOwe))
	return snap, nil
}

// Audit recomputes the balance from the initial balance, the transaction
// history and the manual adjustments, and reports the drift.
func (s *LedgerService) Audit(ctx context.Context) (ledger.Audit, error) {
	return audit(ctx, s.store)
}

func audit(ctx context.Context, st storage.Store) (ledger.Audit, error) {
	var in ledger.AuditInput
	for _, f := range []struct {
		key      storage.ConfigKey
		dst      *decimal.Decimal
		required bool
	}{
		{storage.KeyBalance, &in.Recorded, true},
		{storage.KeyInitialBalance, &in.Initial, true},
		{storage.KeyBaselineEffect, &in.BaselineEffect, false},
		{storage.KeyManualAdjustments, &in.ManualAdjustments, false},
	} {
		v, err := st.Amount(ctx, f.key)
		if err != nil {
			return ledger.Audit{}, fmt.Errorf("read %s: %w", f.key, err)
		}
		if !v.Valid && f.required {
			return ledger.Audit{}, core.NotFound("balance", string(f.key))
		}
		*f.dst = v.Decimal
	}

	txs, err := st.Transactions(ctx)
	if err != nil {
		return ledger.Audit{}, fmt.Errorf("list transactions: %w", err)
	}
	in.Transactions = txs
	return ledger.ComputeAudit(in), nil
}

// Reconcile repairs drift by setting the balance to the expected value.
// It returns the audit taken before the repair.
func (s *LedgerService) Reconcile(ctx context.Context) (ledger.Audit, error) {
	var a ledger.Audit
	_, _, err := s.mutate(ctx, func(tx storage.Store) (change, error) {
		var err error
		if a, err = audit(ctx, tx); err != nil {
			return change{}, err
		}
		if a.InSync() {
			return change{}, nil
		}
		return change{}, tx.SetAmount(ctx, storage.KeyBalance, a.Expected)
	})
	if err != nil {
		err = fmt.Errorf("reconcile: %w", err)
		s.logger.LogOperation(ctx, log.OpReconcile, err, log.NewFields())
		return ledger.Audit{}, err
	}
	s.logger.LogOperation(ctx, log.OpReconcile, nil, log.NewFields().WithAmount(a.Expected).WithBalanceDelta(a.Drift.Neg()))
	return a, nil
}
