package storage

type Debt struct {
	ID          int64
	Creditor    string
	Debtor      string
	AmountCents int64
	Description string
	Settled     bool
	CreatedAt   string
}

type Transaction struct {
	ID          int64
	AmountCents int64
	Kind        string
	Category    string
	Description string
	CreatedAt   string
}

type Budget struct {
	Category   string
	LimitCents int64
}
