package google

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// toRow renders t in column order. Amounts are written as fixed two-decimal
// strings so the sheet never rounds them.
func toRow(t core.Transaction) []any {
	return []any{
		strconv.FormatInt(t.ID, 10),
		t.CreatedAt,
		string(t.Kind),
		string(t.Category),
		t.Description,
		t.Amount.StringFixed(2),
	}
}

// parseRow converts a values row back into a transaction. Rows without a
// numeric id or a readable amount are rejected.
func parseRow(row []any) (core.Transaction, bool) {
	cols := toStrings(row)
	if len(cols) < 6 {
		return core.Transaction{}, false
	}
	id, err := strconv.ParseInt(cols[0], 10, 64)
	if err != nil || id <= 0 {
		return core.Transaction{}, false
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(cols[5], ",", ""))
	if err != nil {
		return core.Transaction{}, false
	}
	return core.Transaction{
		ID:          id,
		CreatedAt:   cols[1],
		Kind:        core.Kind(cols[2]),
		Category:    core.Category(cols[3]),
		Description: cols[4],
		Amount:      core.Round2(amount),
	}, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
