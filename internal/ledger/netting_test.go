package ledger

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"tally/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func debt(id int64, creditor, debtor core.PersonRef, amount, createdAt string) core.DebtRecord {
	d := core.NewOpenDebt(creditor, debtor, dec(amount), "")
	d.ID = id
	d.CreatedAt = createdAt
	return d
}

func netStrings(p Positions) map[core.PersonRef]string {
	out := make(map[core.PersonRef]string, len(p))
	for k, v := range p {
		out[k] = v.StringFixed(2)
	}
	return out
}

func scenario() []core.DebtRecord {
	return []core.DebtRecord{
		debt(1, core.Owner, "alice", "30", "2026-01-01 10:00:00"),
		debt(2, "bob", core.Owner, "20", "2026-01-02 10:00:00"),
		debt(3, "bob", "alice", "10", "2026-01-03 10:00:00"),
	}
}

func TestNetBalancesScenario(t *testing.T) {
	net := NetBalances(scenario())
	assert.Equal(t, map[core.PersonRef]string{"alice": "20.00", "bob": "-10.00"}, netStrings(net))
	assert.Equal(t, "-10.00", net.Owner().StringFixed(2))
	assert.Equal(t, "20.00", net.OwedToOwner().StringFixed(2))
	assert.Equal(t, "10.00", net.OwedByOwner().StringFixed(2))
}

func TestNetBalancesEmpty(t *testing.T) {
	assert.Equal(t, 0, len(NetBalances(nil)))
	assert.Equal(t, 0, len(NetBalances([]core.DebtRecord{})))
}

func TestNetBalancesDropsNoise(t *testing.T) {
	net := NetBalances([]core.DebtRecord{
		debt(1, core.Owner, "carol", "15.50", ""),
		debt(2, "carol", core.Owner, "15.50", ""),
		debt(3, core.Owner, "dave", "0.10", ""),
		debt(4, "dave", core.Owner, "0.10", ""),
		debt(5, core.Owner, "erin", "5", ""),
	})
	assert.Equal(t, map[core.PersonRef]string{"erin": "5.00"}, netStrings(net))
}

func TestNetBalancesSkipsSettledAndSelf(t *testing.T) {
	settled := debt(1, core.Owner, "alice", "30", "")
	settled.State = core.Settled{Amount: dec("30")}
	self := debt(2, core.Owner, core.Owner, "5", "")
	net := NetBalances([]core.DebtRecord{settled, self, debt(3, core.Owner, "alice", "2.5", "")})
	assert.Equal(t, map[core.PersonRef]string{"alice": "2.50"}, netStrings(net))
}

func TestNetBalancesRepeatedAccumulation(t *testing.T) {
	net := NetBalances([]core.DebtRecord{
		debt(1, core.Owner, "alice", "10.10", ""),
		debt(2, "alice", core.Owner, "3.35", ""),
		debt(3, core.Owner, "alice", "0.005", ""),
	})
	assert.Equal(t, "6.76", net["alice"].StringFixed(2))
}

func TestSorted(t *testing.T) {
	net := Positions{"zed": dec("-5"), "amy": dec("-5"), "bo": dec("12"), "cy": dec("-20")}
	got := net.Sorted()
	names := make([]core.PersonRef, len(got))
	for i, p := range got {
		names[i] = p.Person
	}
	assert.Equal(t, []core.PersonRef{"cy", "amy", "zed", "bo"}, names)
}
