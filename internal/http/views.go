package http

import (
	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/report"
	"tally/internal/services"
	"tally/internal/statement"
)

// JSON shapes of the API. Amounts are decimal strings with two places.

func money(d decimal.Decimal) string { return core.Round2(d).StringFixed(2) }

func nullMoney(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := money(d.Decimal)
	return &s
}

type transactionView struct {
	ID          int64  `json:"id"`
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
	Category    string `json:"category"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

func newTransactionView(t core.Transaction) transactionView {
	return transactionView{
		ID:          t.ID,
		Amount:      money(t.Amount),
		Kind:        string(t.Kind),
		Category:    string(t.Category),
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	}
}

func newTransactionViews(txs []core.Transaction) []transactionView {
	out := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		out = append(out, newTransactionView(t))
	}
	return out
}

type debtView struct {
	ID          int64  `json:"id"`
	Creditor    string `json:"creditor"`
	Debtor      string `json:"debtor"`
	Description string `json:"description"`
	Outstanding string `json:"outstanding"`
	Open        bool   `json:"open"`
	CreatedAt   string `json:"created_at"`
}

func newDebtView(d core.DebtRecord) debtView {
	return debtView{
		ID:          d.ID,
		Creditor:    d.Creditor.String(),
		Debtor:      d.Debtor.String(),
		Description: d.Description,
		Outstanding: money(d.Outstanding()),
		Open:        d.IsOpen(),
		CreatedAt:   d.CreatedAt,
	}
}

type runwayView struct {
	Percent string `json:"percent"`
	Level   string `json:"level"`
}

func newRunwayView(r *report.Runway) *runwayView {
	if r == nil {
		return nil
	}
	return &runwayView{Percent: r.Percent.StringFixed(1), Level: r.Level.String()}
}

type budgetView struct {
	Category string `json:"category"`
	Limit    string `json:"limit"`
	Spent    string `json:"spent"`
	Percent  string `json:"percent"`
	Level    string `json:"level"`
}

func newBudgetView(b report.BudgetStatus) budgetView {
	return budgetView{
		Category: string(b.Category),
		Limit:    money(b.Limit),
		Spent:    money(b.Spent),
		Percent:  b.Percent.StringFixed(1),
		Level:    b.Level.String(),
	}
}

func newBudgetViews(bs []report.BudgetStatus) []budgetView {
	out := make([]budgetView, 0, len(bs))
	for _, b := range bs {
		out = append(out, newBudgetView(b))
	}
	return out
}

type transactionResultView struct {
	Transaction transactionView `json:"transaction"`
	Balance     *string         `json:"balance"`
	Runway      *runwayView     `json:"runway,omitempty"`
	Budget      *budgetView     `json:"budget,omitempty"`
}

func newTransactionResultView(r services.TransactionResult) transactionResultView {
	v := transactionResultView{
		Transaction: newTransactionView(r.Transaction),
		Balance:     nullMoney(r.Balance),
		Runway:      newRunwayView(r.Runway),
	}
	if r.Budget != nil {
		b := newBudgetView(*r.Budget)
		v.Budget = &b
	}
	return v
}

type paidView struct {
	transactionResultView
	Debt *debtView `json:"debt,omitempty"`
}

type positionView struct {
	Person string `json:"person"`
	Net    string `json:"net"`
}

type balancesView struct {
	Positions   []positionView `json:"positions"`
	OwedToOwner string         `json:"owed_to_me"`
	OwedByOwner string         `json:"i_owe"`
}

func newBalancesView(p ledger.Positions) balancesView {
	v := balancesView{
		Positions:   []positionView{},
		OwedToOwner: money(p.OwedToOwner()),
		OwedByOwner: money(p.OwedByOwner()),
	}
	for _, pos := range p.Sorted() {
		v.Positions = append(v.Positions, positionView{Person: pos.Person.String(), Net: money(pos.Net)})
	}
	return v
}

type transferView struct {
	Payer    string `json:"payer"`
	Receiver string `json:"receiver"`
	Amount   string `json:"amount"`
}

func newTransferViews(ts []core.Transfer) []transferView {
	out := make([]transferView, 0, len(ts))
	for _, t := range ts {
		out = append(out, transferView{Payer: t.Payer.String(), Receiver: t.Receiver.String(), Amount: money(t.Amount)})
	}
	return out
}

type clearView struct {
	Person  string `json:"person,omitempty"`
	Cleared string `json:"cleared"`
	Records int    `json:"records"`
}

type categoryClearView struct {
	Category string            `json:"category"`
	Month    string            `json:"month"`
	Removed  []transactionView `json:"removed"`
	Total    string            `json:"total"`
	Balance  *string           `json:"balance"`
}

type balanceChangeView struct {
	Previous *string `json:"previous"`
	Current  string  `json:"current"`
	Diff     string  `json:"diff"`
}

func newBalanceChangeView(c services.BalanceChange) balanceChangeView {
	return balanceChangeView{Previous: nullMoney(c.Previous), Current: money(c.Current), Diff: money(c.Diff)}
}

type snapshotView struct {
	Balance    string      `json:"balance"`
	Initial    *string     `json:"initial"`
	Runway     *runwayView `json:"runway,omitempty"`
	OwedToMe   string      `json:"owed_to_me"`
	IOwe       string      `json:"i_owe"`
	Effective  string      `json:"effective"`
	AfterDebts string      `json:"after_debts"`
}

func newSnapshotView(s services.Snapshot) snapshotView {
	return snapshotView{
		Balance:    money(s.Balance),
		Initial:    nullMoney(s.Initial),
		Runway:     newRunwayView(s.Runway),
		OwedToMe:   money(s.OwedToMe),
		IOwe:       money(s.IOwe),
		Effective:  money(s.Effective),
		AfterDebts: money(s.AfterDebts),
	}
}

type auditView struct {
	Recorded string `json:"recorded"`
	Expected string `json:"expected"`
	Drift    string `json:"drift"`
	InSync   bool   `json:"in_sync"`
}

func newAuditView(a ledger.Audit) auditView {
	return auditView{Recorded: money(a.Recorded), Expected: money(a.Expected), Drift: money(a.Drift), InSync: a.InSync()}
}

type categoryTotalView struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Share    string `json:"share"`
}

func newCategoryTotalViews(cs []report.CategoryTotal) []categoryTotalView {
	out := make([]categoryTotalView, 0, len(cs))
	for _, c := range cs {
		out = append(out, categoryTotalView{Category: string(c.Category), Amount: money(c.Amount), Share: c.Share.StringFixed(1)})
	}
	return out
}

type summaryView struct {
	Month        string              `json:"month"`
	Transactions int                 `json:"transactions"`
	Income       string              `json:"income"`
	Spend        string              `json:"spend"`
	Net          string              `json:"net"`
	Balance      *string             `json:"balance"`
	Start        *string             `json:"start,omitempty"`
	End          *string             `json:"end,omitempty"`
	Categories   []categoryTotalView `json:"categories"`
	Budgets      []budgetView        `json:"budgets"`
}

func newSummaryView(s report.MonthSummary) summaryView {
	v := summaryView{
		Month:        s.Month.Prefix(),
		Transactions: s.Transactions,
		Income:       money(s.Income),
		Spend:        money(s.Spend),
		Net:          money(s.Net()),
		Balance:      nullMoney(s.Balance),
		Categories:   newCategoryTotalViews(s.Categories),
		Budgets:      newBudgetViews(s.Budgets),
	}
	if s.Balance.Valid {
		start, end := money(s.Start), money(s.End)
		v.Start, v.End = &start, &end
	}
	return v
}

type weeklyView struct {
	Date    string              `json:"date"`
	Month   string              `json:"month"`
	Balance *string             `json:"balance"`
	Runway  *runwayView         `json:"runway,omitempty"`
	Income  string              `json:"income"`
	Spend   string              `json:"spend"`
	Net     string              `json:"net"`
	Top     []categoryTotalView `json:"top"`
	Alerts  []budgetView        `json:"alerts"`
}

func newWeeklyView(w report.Weekly) weeklyView {
	return weeklyView{
		Date:    w.Date.Format("2006-01-02"),
		Month:   w.Month.Prefix(),
		Balance: nullMoney(w.Balance),
		Runway:  newRunwayView(w.Runway),
		Income:  money(w.Income),
		Spend:   money(w.Spend),
		Net:     money(w.Net()),
		Top:     newCategoryTotalViews(w.Top),
		Alerts:  newBudgetViews(w.Alerts),
	}
}

type rowErrorView struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type importView struct {
	BatchID  string         `json:"batch_id"`
	Imported int            `json:"imported"`
	Spend    string         `json:"spend"`
	Income   string         `json:"income"`
	Skipped  []rowErrorView `json:"skipped"`
	Balance  *string        `json:"balance"`
}

func newImportView(r services.ImportResult) importView {
	v := importView{
		BatchID:  r.BatchID,
		Imported: r.Imported,
		Spend:    money(r.Spend),
		Income:   money(r.Income),
		Skipped:  []rowErrorView{},
		Balance:  nullMoney(r.Balance),
	}
	for _, e := range r.Skipped {
		v.Skipped = append(v.Skipped, newRowErrorView(e))
	}
	return v
}

func newRowErrorView(e statement.RowError) rowErrorView {
	return rowErrorView{Row: e.Row, Reason: e.Reason}
}
