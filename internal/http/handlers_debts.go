package http

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

type debtRecorder func(ctx context.Context, person string, amount decimal.Decimal, description string) (core.DebtRecord, error)

func (s *Server) registerDebtRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/debts", s.handleRecordDebt)
	mux.HandleFunc("GET /api/debts", s.handleListDebts)
	mux.HandleFunc("POST /api/owe", s.handleOwe)
	mux.HandleFunc("POST /api/owes", s.handleOwes)
	mux.HandleFunc("POST /api/paid", s.handlePaid)
	mux.HandleFunc("GET /api/balances", s.handleBalances)
	mux.HandleFunc("GET /api/settlement", s.handleSettlement)
	mux.HandleFunc("POST /api/clear", s.handleClearDebt)
	mux.HandleFunc("POST /api/clear-all", s.handleClearAll)
}

type recordDebtRequest struct {
	Creditor    string `json:"creditor"`
	Debtor      string `json:"debtor"`
	Amount      Amount `json:"amount"`
	Description string `json:"description"`
}

func (s *Server) handleRecordDebt(w http.ResponseWriter, r *http.Request) {
	var req recordDebtRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	amount, err := req.Amount.Positive()
	if err != nil {
		fail(w, r, err)
		return
	}
	d, err := s.ledger.RecordDebt(r.Context(), req.Creditor, req.Debtor, amount, sanitizeInput(req.Description))
	if err != nil {
		fail(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(newDebtView(d)).Write(w)
}

type personDebtRequest struct {
	Person      string `json:"person"`
	Amount      Amount `json:"amount"`
	Description string `json:"description"`
}

// handleOwe records that the owner owes the person.
func (s *Server) handleOwe(w http.ResponseWriter, r *http.Request) {
	s.handlePersonDebt(w, r, s.ledger.Owe)
}

// handleOwes records that the person owes the owner.
func (s *Server) handleOwes(w http.ResponseWriter, r *http.Request) {
	s.handlePersonDebt(w, r, s.ledger.Owes)
}

func (s *Server) handlePersonDebt(w http.ResponseWriter, r *http.Request, record debtRecorder) {
	var req personDebtRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	amount, err := req.Amount.Positive()
	if err != nil {
		fail(w, r, err)
		return
	}
	d, err := record(r.Context(), req.Person, amount, sanitizeInput(req.Description))
	if err != nil {
		fail(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(newDebtView(d)).Write(w)
}

type paidRequest struct {
	Amount      Amount `json:"amount"`
	Description string `json:"description"`
	Person      string `json:"person,omitempty"`
}

func (s *Server) handlePaid(w http.ResponseWriter, r *http.Request) {
	var req paidRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	amount, err := req.Amount.Positive()
	if err != nil {
		fail(w, r, err)
		return
	}
	res, err := s.ledger.Paid(r.Context(), amount, sanitizeInput(req.Description), req.Person)
	if err != nil {
		fail(w, r, err)
		return
	}
	v := paidView{transactionResultView: newTransactionResultView(res.TransactionResult)}
	if res.Debt != nil {
		d := newDebtView(*res.Debt)
		v.Debt = &d
	}
	NewResponse().Status(http.StatusCreated).JSON(v).Write(w)
}

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := s.ledger.Debts(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]debtView, 0, len(debts))
	for _, d := range debts {
		out = append(out, newDebtView(d))
	}
	NewResponse().JSON(out).Write(w)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	p, err := s.ledger.Balances(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	NewResponse().JSON(newBalancesView(p)).Write(w)
}

func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request) {
	plan, err := s.ledger.SettlementPlan(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	NewResponse().JSON(newTransferViews(plan)).Write(w)
}

type clearRequest struct {
	Person string `json:"person"`
	Amount Amount `json:"amount,omitempty"`
}

func (s *Server) handleClearDebt(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	amount, err := req.Amount.OptionalPositive()
	if err != nil {
		fail(w, r, err)
		return
	}
	res, err := s.ledger.ClearDebt(r.Context(), req.Person, amount)
	if err != nil {
		fail(w, r, err)
		return
	}
	NewResponse().JSON(clearView{Person: res.Person.String(), Cleared: money(res.Cleared), Records: res.Records}).Write(w)
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	res, err := s.ledger.ClearAllDebts(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	NewResponse().JSON(clearView{Cleared: money(res.Cleared), Records: res.Records}).Write(w)
}
