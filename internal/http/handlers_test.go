package http

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDebtFlow(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/owes", `{"person":"@Alice","amount":"50","description":"concert tickets"}`)
	wantStatus(t, rec, http.StatusCreated)
	d := decode[debtView](t, rec)
	if d.Creditor != "me" || d.Debtor != "alice" || d.Outstanding != "50.00" || !d.Open {
		t.Fatalf("debt = %+v", d)
	}

	rec = do(t, s, http.MethodPost, "/api/owe", `{"person":"bob","amount":20,"description":"taxi"}`)
	wantStatus(t, rec, http.StatusCreated)

	balances := decode[balancesView](t, do(t, s, http.MethodGet, "/api/balances", ""))
	if balances.OwedToOwner != "50.00" || balances.OwedByOwner != "20.00" {
		t.Errorf("balances = %+v", balances)
	}
	if len(balances.Positions) != 2 {
		t.Errorf("positions = %+v", balances.Positions)
	}

	plan := decode[[]transferView](t, do(t, s, http.MethodGet, "/api/settlement", ""))
	if len(plan) != 2 {
		t.Fatalf("settlement = %+v", plan)
	}
	var total float64
	for _, tr := range plan {
		var f float64
		fmt.Sscanf(tr.Amount, "%g", &f)
		total += f
	}
	if total != 70 {
		t.Errorf("settlement moves %v, want 70", total)
	}

	rec = do(t, s, http.MethodPost, "/api/clear", `{"person":"alice","amount":"30"}`)
	wantStatus(t, rec, http.StatusOK)
	if c := decode[clearView](t, rec); c.Cleared != "30.00" {
		t.Errorf("partial clear = %+v", c)
	}

	debts := decode[[]debtView](t, do(t, s, http.MethodGet, "/api/debts", ""))
	if len(debts) != 2 {
		t.Fatalf("debts = %+v", debts)
	}

	rec = do(t, s, http.MethodPost, "/api/clear-all", "")
	wantStatus(t, rec, http.StatusOK)
	if c := decode[clearView](t, rec); c.Cleared != "40.00" {
		t.Errorf("clear all = %+v", c)
	}
	balances = decode[balancesView](t, do(t, s, http.MethodGet, "/api/balances", ""))
	if balances.OwedToOwner != "0.00" || balances.OwedByOwner != "0.00" {
		t.Errorf("balances after clear all = %+v", balances)
	}
}

func TestDebtValidation(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"negative amount", "/api/owes", `{"person":"alice","amount":"-5"}`, http.StatusUnprocessableEntity},
		{"zero amount", "/api/owe", `{"person":"alice","amount":"0"}`, http.StatusUnprocessableEntity},
		{"amount too large", "/api/owes", `{"person":"alice","amount":"400000000000000000"}`, http.StatusUnprocessableEntity},
		{"same person", "/api/debts", `{"creditor":"alice","debtor":"ALICE","amount":"5"}`, http.StatusUnprocessableEntity},
		{"empty person", "/api/owes", `{"person":" ","amount":"5"}`, http.StatusUnprocessableEntity},
		{"malformed", "/api/owes", `{"person":`, http.StatusBadRequest},
		{"empty body", "/api/paid", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantStatus(t, do(t, s, http.MethodPost, tt.path, tt.body), tt.code)
		})
	}
}

func TestPaidWithPerson(t *testing.T) {
	s := newTestServer(t)
	wantStatus(t, do(t, s, http.MethodPut, "/api/balance", `{"amount":"1000"}`), http.StatusOK)

	rec := do(t, s, http.MethodPost, "/api/paid", `{"amount":"90","description":"dinner","person":"carol"}`)
	wantStatus(t, rec, http.StatusCreated)
	v := decode[paidView](t, rec)
	if v.Transaction.Amount != "90.00" || v.Transaction.Kind != "spend" {
		t.Errorf("transaction = %+v", v.Transaction)
	}
	if v.Balance == nil || *v.Balance != "910.00" {
		t.Errorf("balance = %v", v.Balance)
	}
	if v.Debt == nil || v.Debt.Debtor != "carol" || v.Debt.Outstanding != "90.00" {
		t.Errorf("debt = %+v", v.Debt)
	}
}

func TestTransactions(t *testing.T) {
	s := newTestServer(t)
	wantStatus(t, do(t, s, http.MethodPut, "/api/balance", `{"amount":"1000"}`), http.StatusOK)

	rec := do(t, s, http.MethodPost, "/api/spend", `{"amount":"45.5","category":"food","description":"lunch"}`)
	wantStatus(t, rec, http.StatusCreated)
	spent := decode[transactionResultView](t, rec)
	if spent.Balance == nil || *spent.Balance != "954.50" {
		t.Errorf("balance after spend = %v", spent.Balance)
	}
	if spent.Runway == nil {
		t.Error("runway missing with both balances set")
	}

	rec = do(t, s, http.MethodPost, "/api/income", `{"amount":"200","description":"refund"}`)
	wantStatus(t, rec, http.StatusCreated)
	if got := decode[transactionResultView](t, rec); got.Transaction.Category != "income" {
		t.Errorf("income category = %q", got.Transaction.Category)
	}

	wantStatus(t, do(t, s, http.MethodPost, "/api/spend", `{"amount":"5","category":"yachts"}`), http.StatusUnprocessableEntity)

	history := decode[[]transactionView](t, do(t, s, http.MethodGet, "/api/history?limit=1", ""))
	if len(history) != 1 || history[0].Description != "refund" {
		t.Errorf("history = %+v", history)
	}
	wantStatus(t, do(t, s, http.MethodGet, "/api/history?limit=0", ""), http.StatusUnprocessableEntity)
	wantStatus(t, do(t, s, http.MethodGet, "/api/history?limit=9999", ""), http.StatusUnprocessableEntity)

	rec = do(t, s, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", spent.Transaction.ID), "")
	wantStatus(t, rec, http.StatusOK)
	if got := decode[transactionResultView](t, rec); got.Balance == nil || *got.Balance != "1200.00" {
		t.Errorf("balance after delete = %v", got.Balance)
	}
	wantStatus(t, do(t, s, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", spent.Transaction.ID), ""), http.StatusNotFound)
	wantStatus(t, do(t, s, http.MethodDelete, "/api/transactions/abc", ""), http.StatusUnprocessableEntity)
}

func TestClearCategory(t *testing.T) {
	s := newTestServer(t)
	wantStatus(t, do(t, s, http.MethodPut, "/api/balance", `{"amount":"500"}`), http.StatusOK)
	for _, amount := range []string{"10", "15"} {
		wantStatus(t, do(t, s, http.MethodPost, "/api/spend", `{"amount":"`+amount+`","category":"transport","description":"metro"}`), http.StatusCreated)
	}

	rec := do(t, s, http.MethodDelete, "/api/categories/transport?month=2026-02", "")
	wantStatus(t, rec, http.StatusOK)
	got := decode[categoryClearView](t, rec)
	if len(got.Removed) != 2 || got.Total != "25.00" || got.Month != "2026-02" {
		t.Errorf("clear = %+v", got)
	}
	if got.Balance == nil || *got.Balance != "500.00" {
		t.Errorf("balance = %v", got.Balance)
	}
	wantStatus(t, do(t, s, http.MethodDelete, "/api/categories/transport?month=13-2026", ""), http.StatusUnprocessableEntity)
}

const statementCSV = "Date,Description,Amount,Category\n" +
	"2026-02-01,Carrefour groceries,-150.25,\n" +
	"2026-02-02,Salary February,5000,\n" +
	"garbage,row,not-a-number,\n"

func TestImportRawBody(t *testing.T) {
	s := newTestServer(t)
	wantStatus(t, do(t, s, http.MethodPut, "/api/balance", `{"amount":"1000"}`), http.StatusOK)

	req := httptest.NewRequest(http.MethodPost, "/api/import?name=feb.csv", strings.NewReader(statementCSV))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	wantStatus(t, rec, http.StatusCreated)

	got := decode[importView](t, rec)
	if got.Imported != 2 || len(got.Skipped) != 1 {
		t.Errorf("import = %+v", got)
	}
	if got.Spend != "150.25" || got.Income != "5000.00" {
		t.Errorf("totals = %s / %s", got.Spend, got.Income)
	}
	if got.BatchID == "" {
		t.Error("batch id missing")
	}
}

func TestImportMultipart(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "feb.csv")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(statementCSV))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	wantStatus(t, rec, http.StatusCreated)
	if got := decode[importView](t, rec); got.Imported != 2 {
		t.Errorf("imported = %d", got.Imported)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/import?name=bad.csv", strings.NewReader("Date,Description,Amount\n2026-02-01,x,abc\n"))
	rec = httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	wantStatus(t, rec, http.StatusUnprocessableEntity)
}

func TestBalanceEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/balance/fix", `{"amount":"800"}`)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[balanceChangeView](t, rec); got.Previous != nil || got.Current != "800.00" {
		t.Errorf("first fix = %+v", got)
	}

	rec = do(t, s, http.MethodPost, "/api/balance/adjust", `{"amount":"-50"}`)
	wantStatus(t, rec, http.StatusOK)
	change := decode[balanceChangeView](t, rec)
	if change.Previous == nil || *change.Previous != "800.00" || change.Current != "750.00" || change.Diff != "-50.00" {
		t.Errorf("adjust = %+v", change)
	}
	wantStatus(t, do(t, s, http.MethodPost, "/api/balance/adjust", `{"amount":"0"}`), http.StatusUnprocessableEntity)

	wantStatus(t, do(t, s, http.MethodPost, "/api/owes", `{"person":"dan","amount":"100"}`), http.StatusCreated)
	snap := decode[snapshotView](t, do(t, s, http.MethodGet, "/api/balance", ""))
	if snap.Balance != "750.00" || snap.OwedToMe != "100.00" || snap.Effective != "850.00" {
		t.Errorf("snapshot = %+v", snap)
	}

	audit := decode[auditView](t, do(t, s, http.MethodGet, "/api/audit", ""))
	if audit.Recorded != "750.00" {
		t.Errorf("audit = %+v", audit)
	}
	rec = do(t, s, http.MethodPost, "/api/reconcile", "")
	wantStatus(t, rec, http.StatusOK)
	if after := decode[auditView](t, do(t, s, http.MethodGet, "/api/audit", "")); !after.InSync {
		t.Errorf("audit after reconcile = %+v", after)
	}
}

func TestBudgetsAndSummary(t *testing.T) {
	s := newTestServer(t)
	wantStatus(t, do(t, s, http.MethodPut, "/api/balance", `{"amount":"2000"}`), http.StatusOK)

	rec := do(t, s, http.MethodPut, "/api/budgets/food", `{"limit":"100"}`)
	wantStatus(t, rec, http.StatusOK)
	wantStatus(t, do(t, s, http.MethodPut, "/api/budgets/food", `{"limit":"-1"}`), http.StatusUnprocessableEntity)

	wantStatus(t, do(t, s, http.MethodPost, "/api/spend", `{"amount":"85","category":"food","description":"groceries"}`), http.StatusCreated)

	budgets := decode[[]budgetView](t, do(t, s, http.MethodGet, "/api/budgets", ""))
	if len(budgets) != 1 || budgets[0].Spent != "85.00" || budgets[0].Percent != "85.0" {
		t.Fatalf("budgets = %+v", budgets)
	}

	summary := decode[summaryView](t, do(t, s, http.MethodGet, "/api/summary?month=2026-02", ""))
	if summary.Spend != "85.00" || summary.Transactions != 1 {
		t.Errorf("summary = %+v", summary)
	}

	// The cached summary must not survive a mutation.
	wantStatus(t, do(t, s, http.MethodPost, "/api/spend", `{"amount":"15","category":"food","description":"snacks"}`), http.StatusCreated)
	summary = decode[summaryView](t, do(t, s, http.MethodGet, "/api/summary?month=2026-02", ""))
	if summary.Spend != "100.00" || summary.Transactions != 2 {
		t.Errorf("summary after spend = %+v", summary)
	}

	rec = do(t, s, http.MethodGet, "/api/summary?format=text", "")
	wantStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "AED") {
		t.Errorf("text summary misses the currency:\n%s", rec.Body.String())
	}

	wantStatus(t, do(t, s, http.MethodDelete, "/api/budgets/food", ""), http.StatusNoContent)
	wantStatus(t, do(t, s, http.MethodDelete, "/api/budgets/food", ""), http.StatusNotFound)
}

func TestWeekly(t *testing.T) {
	s := newTestServer(t)
	wantStatus(t, do(t, s, http.MethodPut, "/api/balance", `{"amount":"1000"}`), http.StatusOK)
	wantStatus(t, do(t, s, http.MethodPost, "/api/spend", `{"amount":"120","category":"food","description":"groceries"}`), http.StatusCreated)

	w := decode[weeklyView](t, do(t, s, http.MethodGet, "/api/weekly", ""))
	if w.Date != "2026-02-14" || w.Month != "2026-02" || w.Spend != "120.00" {
		t.Errorf("weekly = %+v", w)
	}

	rec := do(t, s, http.MethodGet, "/api/weekly?format=text", "")
	wantStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "AED 120.00") {
		t.Errorf("weekly text:\n%s", rec.Body.String())
	}
}
