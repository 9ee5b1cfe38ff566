package core

import "github.com/shopspring/decimal"

// Position is one person's signed net position relative to the owner.
// Positive means they owe the owner.
type Position struct {
	Person PersonRef
	Net    decimal.Decimal
}
