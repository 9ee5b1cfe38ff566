package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// Balances maps each participant to what they are owed overall. Positive
// entries are creditors, negative entries debtors.
type Balances map[core.PersonRef]decimal.Decimal

type party struct {
	person    core.PersonRef
	remaining decimal.Decimal
}

// MinimalTransfers pairs the largest remaining creditor with the largest
// remaining debtor until one side runs out. For N participants with a
// nonzero balance it emits at most N-1 transfers.
func MinimalTransfers(balances Balances) []core.Transfer {
	var creditors, debtors []party
	for p, v := range balances {
		v = core.Round2(v)
		switch {
		case core.IsNegligible(v):
		case v.IsPositive():
			creditors = append(creditors, party{p, v})
		default:
			debtors = append(debtors, party{p, v.Abs()})
		}
	}
	byAmountDesc(creditors)
	byAmountDesc(debtors)

	var transfers []core.Transfer
	i, j := 0, 0
	for i < len(creditors) && j < len(debtors) {
		c, d := &creditors[i], &debtors[j]
		amount := core.Round2(decimal.Min(c.remaining, d.remaining))
		transfers = append(transfers, core.Transfer{Payer: d.person, Receiver: c.person, Amount: amount})

		c.remaining = core.Round2(c.remaining.Sub(amount))
		d.remaining = core.Round2(d.remaining.Sub(amount))
		if c.remaining.LessThan(core.Cent) {
			i++
		}
		if d.remaining.LessThan(core.Cent) {
			j++
		}
	}
	return transfers
}

func byAmountDesc(ps []party) {
	sort.Slice(ps, func(i, j int) bool {
		if c := ps[i].remaining.Cmp(ps[j].remaining); c != 0 {
			return c > 0
		}
		return ps[i].person < ps[j].person
	})
}

// Balances converts net positions into what each participant is owed,
// materializing the owner's implicit entry so the plan covers every party.
func (p Positions) Balances() Balances {
	out := make(Balances, len(p)+1)
	for person, net := range p {
		out[person] = net.Neg()
	}
	if owner := p.Owner().Neg(); !core.IsNegligible(owner) {
		out[core.Owner] = owner
	}
	return out
}

// PlanSettlement computes the transfers that clear every net position,
// including the owner's.
func PlanSettlement(p Positions) []core.Transfer {
	return MinimalTransfers(p.Balances())
}
