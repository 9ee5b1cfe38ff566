package ledger

import (
	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// SumEffects is the combined signed effect of txs on the cash balance.
func SumEffects(txs []core.Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range txs {
		sum = sum.Add(t.Effect())
	}
	return core.Round2(sum)
}

// BalanceDelta is the adjustment a mutation must apply to the cash balance:
// the effect of what it created minus the effect of what it removed.
func BalanceDelta(created, removed []core.Transaction) decimal.Decimal {
	return core.Round2(SumEffects(created).Sub(SumEffects(removed)))
}

// AuditInput is the persisted state a balance audit is computed from.
// BaselineEffect is SumEffects over the transactions that existed when the
// initial balance was set.
type AuditInput struct {
	Recorded          decimal.Decimal
	Initial           decimal.Decimal
	BaselineEffect    decimal.Decimal
	ManualAdjustments decimal.Decimal
	Transactions      []core.Transaction
}

// Audit compares the recorded balance with the one implied by history.
type Audit struct {
	Recorded decimal.Decimal
	Expected decimal.Decimal
	Drift    decimal.Decimal
}

// InSync reports a drift below one cent.
func (a Audit) InSync() bool { return core.IsNegligible(a.Drift) }

// ComputeAudit recomputes the balance as initial plus every transaction
// effect since the baseline plus manual adjustments.
func ComputeAudit(in AuditInput) Audit {
	since := SumEffects(in.Transactions).Sub(in.BaselineEffect)
	expected := core.Round2(in.Initial.Add(since).Add(in.ManualAdjustments))
	recorded := core.Round2(in.Recorded)
	return Audit{
		Recorded: recorded,
		Expected: expected,
		Drift:    core.Round2(recorded.Sub(expected)),
	}
}
