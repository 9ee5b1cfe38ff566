// Package ledger holds the pure arithmetic over debt records and
// transactions: netting, settlement planning, debt clearing and balance
// reconciliation. Nothing here performs I/O.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// Positions maps each counterparty to their net position relative to the
// owner. Positive means they owe the owner.
type Positions map[core.PersonRef]decimal.Decimal

// NetBalances reduces open debt records to one net position per person.
// Sums are rounded to cents at every step and positions below one cent are
// dropped.
func NetBalances(records []core.DebtRecord) Positions {
	net := make(Positions)
	add := func(p core.PersonRef, d decimal.Decimal) {
		net[p] = core.Round2(net[p].Add(d))
	}
	for _, r := range records {
		if !r.IsOpen() || r.Creditor == r.Debtor {
			continue
		}
		amount := r.Outstanding()
		switch {
		case r.Creditor.IsOwner():
			add(r.Debtor, amount)
		case r.Debtor.IsOwner():
			add(r.Creditor, amount.Neg())
		default:
			add(r.Debtor, amount.Neg())
			add(r.Creditor, amount)
		}
	}
	for p, v := range net {
		if core.IsNegligible(v) {
			delete(net, p)
		}
	}
	return net
}

// Sorted returns positions ordered by net ascending, then by name.
func (p Positions) Sorted() []core.Position {
	out := make([]core.Position, 0, len(p))
	for person, net := range p {
		out = append(out, core.Position{Person: person, Net: net})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Net.Cmp(out[j].Net); c != 0 {
			return c < 0
		}
		return out[i].Person < out[j].Person
	})
	return out
}

// Owner is the owner's implicit position: the negation of everyone else's.
func (p Positions) Owner() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range p {
		sum = sum.Add(v)
	}
	return core.Round2(sum.Neg())
}

// OwedToOwner sums the positive positions.
func (p Positions) OwedToOwner() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range p {
		if v.IsPositive() {
			sum = sum.Add(v)
		}
	}
	return core.Round2(sum)
}

// OwedByOwner sums the magnitudes of the negative positions.
func (p Positions) OwedByOwner() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range p {
		if v.IsNegative() {
			sum = sum.Sub(v)
		}
	}
	return core.Round2(sum)
}
