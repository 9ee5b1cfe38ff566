package core

import (
	"errors"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"
)

func TestNewPersonRef(t *testing.T) {
	assert.Equal(t, PersonRef("alice"), NewPersonRef(" @Alice "))
	assert.Equal(t, PersonRef("bob"), NewPersonRef("BOB"))
	assert.True(t, NewPersonRef("ME").IsOwner())
	assert.Error(t, NewPersonRef("@").Validate())
	assert.Error(t, PersonRef("two words").Validate())
}

func TestDebtRecordState(t *testing.T) {
	d := NewOpenDebt(Owner, "alice", decimal.RequireFromString("30.005"), "dinner")
	assert.True(t, d.IsOpen())
	assert.Equal(t, "30.01", d.Outstanding().StringFixed(2))
	assert.True(t, d.Involves("alice"))
	assert.False(t, d.Involves("bob"))
	assert.NoError(t, d.Validate())

	d.State = Settled{Amount: decimal.NewFromInt(30)}
	assert.False(t, d.IsOpen())
	assert.True(t, d.Outstanding().IsZero())
}

func TestDebtRecordValidate(t *testing.T) {
	same := NewOpenDebt("alice", "alice", decimal.NewFromInt(1), "")
	assert.True(t, errors.Is(same.Validate(), ErrSamePerson))

	zero := NewOpenDebt(Owner, "alice", decimal.Zero, "")
	assert.True(t, errors.Is(zero.Validate(), ErrInvalidAmount))
}

func TestTransactionEffect(t *testing.T) {
	spend := Transaction{Amount: decimal.NewFromInt(40), Kind: KindSpend, Category: Food}
	income := Transaction{Amount: decimal.NewFromInt(40), Kind: KindIncome, Category: Income}
	assert.Equal(t, "-40", spend.Effect().String())
	assert.Equal(t, "40", income.Effect().String())
	assert.NoError(t, spend.Validate())

	bad := Transaction{Amount: decimal.NewFromInt(1), Kind: "refund", Category: Other}
	assert.True(t, errors.Is(bad.Validate(), ErrValidation))
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Food ")
	assert.NoError(t, err)
	assert.Equal(t, Food, c)
	_, err = ParseCategory("groceries")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestParseMonth(t *testing.T) {
	now := time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", "2026-03", true},
		{"jan", "2026-01", true},
		{"DEC", "2026-12", true},
		{"2025-11", "2025-11", true},
		{"2025-13", "", false},
		{"march", "", false},
		{"2025", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := ParseMonth(tt.in, now)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, m.Prefix())
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2026-02-26", "2026-02-26 00:00:00", true},
		{"26/02/2026", "2026-02-26 00:00:00", true},
		{"2026/02/26", "2026-02-26 00:00:00", true},
		{"26 Feb 2026", "2026-02-26 00:00:00", true},
		{"2026-02-26 13:45:00", "2026-02-26 13:45:00", true},
		{"yesterday", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeDate(tt.in)
		assert.Equal(t, tt.ok, ok)
		assert.Equal(t, tt.want, got)
	}
}

func TestErrors(t *testing.T) {
	err := NotFound("transaction", "42")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "transaction 42 not found", err.Error())

	var ve *ValidationError
	assert.True(t, errors.As(error(&ValidationError{Field: "person", Reason: "empty"}), &ve))
	assert.Equal(t, "invalid person: empty", ve.Error())
}
