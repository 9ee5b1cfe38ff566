package ledger

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"tally/internal/core"
)

func some(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

func aliceDebts() []core.DebtRecord {
	return []core.DebtRecord{
		debt(3, core.Owner, "alice", "25", "2026-01-03 09:00:00"),
		debt(1, core.Owner, "alice", "10", "2026-01-01 09:00:00"),
		debt(2, "alice", core.Owner, "15", "2026-01-01 09:00:00"),
		debt(4, core.Owner, "bob", "40", "2026-01-02 09:00:00"),
	}
}

func TestPlanClearFull(t *testing.T) {
	plan, err := PlanClear(aliceDebts(), "alice", decimal.NullDecimal{})
	assert.NoError(t, err)
	assert.Equal(t, "50.00", plan.Cleared.StringFixed(2))
	assert.Equal(t, 3, len(plan.Changes))
	ids := []int64{plan.Changes[0].ID, plan.Changes[1].ID, plan.Changes[2].ID}
	assert.Equal(t, []int64{1, 2, 3}, ids)
	for _, c := range plan.Changes {
		assert.False(t, c.IsOpen())
	}
}

func TestPlanClearPartial(t *testing.T) {
	records := aliceDebts()
	before := Outstanding(records, "alice")

	plan, err := PlanClear(records, "alice", some("30"))
	assert.NoError(t, err)
	assert.Equal(t, "30.00", plan.Cleared.StringFixed(2))
	assert.Equal(t, 3, len(plan.Changes))

	assert.False(t, plan.Changes[0].IsOpen())
	assert.False(t, plan.Changes[1].IsOpen())
	assert.True(t, plan.Changes[2].IsOpen())
	assert.Equal(t, "20.00", plan.Changes[2].Outstanding().StringFixed(2))

	after := Outstanding(apply(records, plan), "alice")
	assert.Equal(t, before.Sub(dec("30")).StringFixed(2), after.StringFixed(2))
	for _, r := range apply(records, plan) {
		assert.False(t, r.Outstanding().IsNegative())
	}
}

func TestPlanClearExact(t *testing.T) {
	plan, err := PlanClear(aliceDebts(), "alice", some("10"))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(plan.Changes))
	settled, ok := plan.Changes[0].State.(core.Settled)
	assert.True(t, ok)
	assert.Equal(t, "10.00", settled.Amount.StringFixed(2))
}

func TestPlanClearCappedAtOutstanding(t *testing.T) {
	plan, err := PlanClear(aliceDebts(), "bob", some("100"))
	assert.NoError(t, err)
	assert.Equal(t, "40.00", plan.Cleared.StringFixed(2))
}

func TestPlanClearNothingFound(t *testing.T) {
	_, err := PlanClear(aliceDebts(), "carol", decimal.NullDecimal{})
	assert.True(t, errors.Is(err, core.ErrNotFound))

	_, err = PlanClear(aliceDebts(), "alice", some("0"))
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestPlanClearAll(t *testing.T) {
	plan := PlanClearAll(aliceDebts())
	assert.Equal(t, "90.00", plan.Cleared.StringFixed(2))
	assert.Equal(t, 4, len(plan.Changes))
}

func apply(records []core.DebtRecord, plan ClearPlan) []core.DebtRecord {
	byID := make(map[int64]core.DebtRecord, len(plan.Changes))
	for _, c := range plan.Changes {
		byID[c.ID] = c
	}
	out := make([]core.DebtRecord, len(records))
	for i, r := range records {
		if c, ok := byID[r.ID]; ok {
			r = c
		}
		out[i] = r
	}
	return out
}
