package http

import (
	"net/http"
)

func (s *Server) registerBalanceRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/balance", s.handleSnapshot)
	mux.HandleFunc("PUT /api/balance", s.handleSetBalance)
	mux.HandleFunc("POST /api/balance/fix", s.handleFixBalance)
	mux.HandleFunc("POST /api/balance/adjust", s.handleAdjustBalance)
	mux.HandleFunc("GET /api/audit", s.handleAudit)
	mux.HandleFunc("POST /api/reconcile", s.handleReconcile)
}

type balanceRequest struct {
	Amount Amount `json:"amount"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	NewResponse().JSON(newSnapshotView(snap)).Write(w)
}

func (s *Server) handleSetBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	x, err := req.Amount.Balance()
	if err != nil {
		fail(w, r, err)
		return
	}
	balance, err := s.ledger.SetBalance(r.Context(), x)
	if err != nil {
		fail(w, r, err)
		return
	}
	NewResponse().JSON(map[string]string{"balance": money(balance), "initial": money(balance)}).Write(w)
}

func (s *Server) handleFixBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	x, err := req.Amount.Balance()
	if err != nil {
		fail(w, r, err)
		return
	}
	ch, err := s.ledger.FixBalance(r.Context(), x)
	if err != nil {
		fail(w, r, err)
		return
	}
	NewResponse().JSON(newBalanceChangeView(ch)).Write(w)
}

func (s *Server) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	delta, err := req.Amount.Signed()
	if err != nil {
		fail(w, r, err)
		return
	}
	ch, err := s.ledger.AdjustBalance(r.Context(), delta)
	if err != nil {
		fail(w, r, err)
		return
	}
	NewResponse().JSON(newBalanceChangeView(ch)).Write(w)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	a, err := s.ledger.Audit(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	NewResponse().JSON(newAuditView(a)).Write(w)
}

// handleReconcile repairs drift and returns the audit as it was before.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	a, err := s.ledger.Reconcile(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	NewResponse().JSON(newAuditView(a)).Write(w)
}
