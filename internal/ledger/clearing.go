package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// ClearPlan lists the debt records a clearing changes, in their new state,
// and the total cleared.
type ClearPlan struct {
	Changes []core.DebtRecord
	Cleared decimal.Decimal
}

// PlanClear settles the open debts involving person, oldest first. Without an
// amount every match is settled in full. With an amount, records are settled
// while the remainder covers them; the first record it does not cover is
// reduced in place and clearing stops there.
//
// A core.NotFoundError is returned when person has no open debts, so that
// "nothing found" stays distinct from a zero clear.
func PlanClear(records []core.DebtRecord, person core.PersonRef, amount decimal.NullDecimal) (ClearPlan, error) {
	if amount.Valid && !amount.Decimal.IsPositive() {
		return ClearPlan{}, &core.ValidationError{Field: "amount", Value: amount.Decimal.String(), Reason: "must be greater than zero"}
	}

	var matches []core.DebtRecord
	for _, r := range records {
		if r.IsOpen() && r.Involves(person) {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return ClearPlan{}, core.NotFound("debt", string(person))
	}
	SortOldestFirst(matches)

	plan := ClearPlan{Cleared: decimal.Zero}
	if !amount.Valid {
		for _, r := range matches {
			out := r.Outstanding()
			r.State = core.Settled{Amount: out}
			plan.Changes = append(plan.Changes, r)
			plan.Cleared = plan.Cleared.Add(out)
		}
		plan.Cleared = core.Round2(plan.Cleared)
		return plan, nil
	}

	remaining := core.Round2(amount.Decimal)
	for _, r := range matches {
		if core.IsNegligible(remaining) {
			break
		}
		out := r.Outstanding()
		if remaining.GreaterThanOrEqual(out) {
			r.State = core.Settled{Amount: out}
			plan.Changes = append(plan.Changes, r)
			plan.Cleared = plan.Cleared.Add(out)
			remaining = core.Round2(remaining.Sub(out))
			continue
		}
		r.State = core.Open{Outstanding: core.Round2(out.Sub(remaining))}
		plan.Changes = append(plan.Changes, r)
		plan.Cleared = plan.Cleared.Add(remaining)
		break
	}
	plan.Cleared = core.Round2(plan.Cleared)
	return plan, nil
}

// PlanClearAll settles every open record.
func PlanClearAll(records []core.DebtRecord) ClearPlan {
	plan := ClearPlan{Cleared: decimal.Zero}
	for _, r := range records {
		if !r.IsOpen() {
			continue
		}
		out := r.Outstanding()
		r.State = core.Settled{Amount: out}
		plan.Changes = append(plan.Changes, r)
		plan.Cleared = plan.Cleared.Add(out)
	}
	plan.Cleared = core.Round2(plan.Cleared)
	return plan
}

// SortOldestFirst orders records by creation time, then id.
func SortOldestFirst(records []core.DebtRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt < records[j].CreatedAt
		}
		return records[i].ID < records[j].ID
	})
}

// Outstanding sums what is still open between the owner and person.
func Outstanding(records []core.DebtRecord, person core.PersonRef) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range records {
		if r.IsOpen() && r.Involves(person) {
			sum = sum.Add(r.Outstanding())
		}
	}
	return core.Round2(sum)
}
