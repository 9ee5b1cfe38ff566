package http

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"tally/internal/services"
)

const maxStatementBytes = 10 << 20

func (s *Server) registerTransactionRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/spend", s.handleSpend)
	mux.HandleFunc("POST /api/income", s.handleIncome)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("DELETE /api/categories/{category}", s.handleClearCategory)
	mux.HandleFunc("POST /api/import", s.handleImport)
}

type spendRequest struct {
	Amount      Amount `json:"amount"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description"`
}

func (s *Server) handleSpend(w http.ResponseWriter, r *http.Request) {
	var req spendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	amount, err := req.Amount.Positive()
	if err != nil {
		fail(w, r, err)
		return
	}
	res, err := s.ledger.Spend(r.Context(), amount, strings.TrimSpace(req.Category), sanitizeInput(req.Description))
	if err != nil {
		fail(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(newTransactionResultView(res)).Write(w)
}

type incomeRequest struct {
	Amount      Amount `json:"amount"`
	Description string `json:"description"`
}

func (s *Server) handleIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	amount, err := req.Amount.Positive()
	if err != nil {
		fail(w, r, err)
		return
	}
	res, err := s.ledger.Income(r.Context(), amount, sanitizeInput(req.Description))
	if err != nil {
		fail(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(newTransactionResultView(res)).Write(w)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimitQuery(r, services.DefaultHistoryLimit, historyMax)
	if err != nil {
		fail(w, r, err)
		return
	}
	txs, err := s.ledger.History(r.Context(), limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	NewResponse().JSON(newTransactionViews(txs)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPath(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	res, err := s.ledger.DeleteTransaction(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	NewResponse().JSON(newTransactionResultView(res)).Write(w)
}

// handleClearCategory deletes a category's transactions for ?month=.
func (s *Server) handleClearCategory(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthQuery(r, s.now())
	if err != nil {
		fail(w, r, err)
		return
	}
	res, err := s.ledger.ClearCategory(r.Context(), r.PathValue("category"), month)
	if err != nil {
		fail(w, r, err)
		return
	}
	NewResponse().JSON(categoryClearView{
		Category: string(res.Category),
		Month:    res.Month.Prefix(),
		Removed:  newTransactionViews(res.Removed),
		Total:    money(res.Total),
		Balance:  nullMoney(res.Balance),
	}).Write(w)
}

// handleImport accepts a multipart upload in the "file" field, or a raw
// body named by ?name=.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxStatementBytes)

	var (
		name string
		body io.Reader
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			badRequest(w, errors.New(`multipart upload needs a "file" field`))
			return
		}
		defer file.Close()
		name, body = header.Filename, file
	} else {
		name, body = r.URL.Query().Get("name"), r.Body
	}
	name = filepath.Base(sanitizeInput(name))
	if name == "." || name == "/" {
		name = "statement.csv"
	}

	res, err := s.ledger.Import(r.Context(), name, body)
	if err != nil {
		fail(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(newImportView(res)).Write(w)
}
