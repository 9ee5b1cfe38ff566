// Package memory is an in-process Store used by tests and the memory
// backend. Atomic units run against a copy that replaces the live state
// only when the unit succeeds.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/storage"
)

type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) do(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func (s *Store) Atomic(_ context.Context, fn func(storage.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.st.clone()
	if err := fn(next); err != nil {
		return err
	}
	s.st = next
	return nil
}

func (s *Store) AddDebt(ctx context.Context, d core.DebtRecord) (out core.DebtRecord, err error) {
	err = s.do(func(st *state) error { out, err = st.AddDebt(ctx, d); return err })
	return out, err
}

func (s *Store) OpenDebts(ctx context.Context) (out []core.DebtRecord, err error) {
	err = s.do(func(st *state) error { out, err = st.OpenDebts(ctx); return err })
	return out, err
}

func (s *Store) UpdateDebt(ctx context.Context, d core.DebtRecord) error {
	return s.do(func(st *state) error { return st.UpdateDebt(ctx, d) })
}

func (s *Store) AddTransaction(ctx context.Context, t core.Transaction) (out core.Transaction, err error) {
	err = s.do(func(st *state) error { out, err = st.AddTransaction(ctx, t); return err })
	return out, err
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (out core.Transaction, err error) {
	err = s.do(func(st *state) error { out, err = st.GetTransaction(ctx, id); return err })
	return out, err
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	return s.do(func(st *state) error { return st.DeleteTransaction(ctx, id) })
}

func (s *Store) Transactions(ctx context.Context) (out []core.Transaction, err error) {
	err = s.do(func(st *state) error { out, err = st.Transactions(ctx); return err })
	return out, err
}

func (s *Store) RecentTransactions(ctx context.Context, limit int) (out []core.Transaction, err error) {
	err = s.do(func(st *state) error { out, err = st.RecentTransactions(ctx, limit); return err })
	return out, err
}

func (s *Store) MonthTransactions(ctx context.Context, m core.Month) (out []core.Transaction, err error) {
	err = s.do(func(st *state) error { out, err = st.MonthTransactions(ctx, m); return err })
	return out, err
}

func (s *Store) MonthlySpend(ctx context.Context, c core.Category, m core.Month) (out decimal.Decimal, err error) {
	err = s.do(func(st *state) error { out, err = st.MonthlySpend(ctx, c, m); return err })
	return out, err
}

func (s *Store) Amount(ctx context.Context, key storage.ConfigKey) (out decimal.NullDecimal, err error) {
	err = s.do(func(st *state) error { out, err = st.Amount(ctx, key); return err })
	return out, err
}

func (s *Store) SetAmount(ctx context.Context, key storage.ConfigKey, v decimal.Decimal) error {
	return s.do(func(st *state) error { return st.SetAmount(ctx, key, v) })
}

func (s *Store) AddAmount(ctx context.Context, key storage.ConfigKey, delta decimal.Decimal) error {
	return s.do(func(st *state) error { return st.AddAmount(ctx, key, delta) })
}

func (s *Store) SetBudget(ctx context.Context, b core.Budget) error {
	return s.do(func(st *state) error { return st.SetBudget(ctx, b) })
}

func (s *Store) DeleteBudget(ctx context.Context, c core.Category) error {
	return s.do(func(st *state) error { return st.DeleteBudget(ctx, c) })
}

func (s *Store) Budgets(ctx context.Context) (out []core.Budget, err error) {
	err = s.do(func(st *state) error { out, err = st.Budgets(ctx); return err })
	return out, err
}

// state is the unlocked data behind a Store. It also serves as the Store
// handed to Atomic callbacks.
type state struct {
	nextDebt int64
	nextTx   int64
	debts    map[int64]core.DebtRecord
	txs      map[int64]core.Transaction
	config   map[storage.ConfigKey]decimal.Decimal
	budgets  map[core.Category]decimal.Decimal
}

func newState() *state {
	return &state{
		debts:   make(map[int64]core.DebtRecord),
		txs:     make(map[int64]core.Transaction),
		config:  make(map[storage.ConfigKey]decimal.Decimal),
		budgets: make(map[core.Category]decimal.Decimal),
	}
}

func (st *state) clone() *state {
	c := newState()
	c.nextDebt, c.nextTx = st.nextDebt, st.nextTx
	for k, v := range st.debts {
		c.debts[k] = v
	}
	for k, v := range st.txs {
		c.txs[k] = v
	}
	for k, v := range st.config {
		c.config[k] = v
	}
	for k, v := range st.budgets {
		c.budgets[k] = v
	}
	return c
}

func (st *state) Atomic(_ context.Context, fn func(storage.Store) error) error {
	return fn(st)
}

func (st *state) AddDebt(_ context.Context, d core.DebtRecord) (core.DebtRecord, error) {
	st.nextDebt++
	d.ID = st.nextDebt
	if d.CreatedAt == "" {
		d.CreatedAt = core.Timestamp(time.Now())
	}
	d.State = core.Open{Outstanding: core.Round2(d.Outstanding())}
	st.debts[d.ID] = d
	return d, nil
}

func (st *state) OpenDebts(_ context.Context) ([]core.DebtRecord, error) {
	var out []core.DebtRecord
	for _, d := range st.debts {
		if d.IsOpen() {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (st *state) UpdateDebt(_ context.Context, d core.DebtRecord) error {
	cur, ok := st.debts[d.ID]
	if !ok || !cur.IsOpen() {
		return core.NotFound("debt", strconv.FormatInt(d.ID, 10))
	}
	cur.State = d.State
	st.debts[d.ID] = cur
	return nil
}

func (st *state) AddTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	st.nextTx++
	t.ID = st.nextTx
	t.Amount = core.Round2(t.Amount)
	if t.CreatedAt == "" {
		t.CreatedAt = core.Timestamp(time.Now())
	}
	st.txs[t.ID] = t
	return t, nil
}

func (st *state) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	t, ok := st.txs[id]
	if !ok {
		return core.Transaction{}, core.NotFound("transaction", strconv.FormatInt(id, 10))
	}
	return t, nil
}

func (st *state) DeleteTransaction(_ context.Context, id int64) error {
	if _, ok := st.txs[id]; !ok {
		return core.NotFound("transaction", strconv.FormatInt(id, 10))
	}
	delete(st.txs, id)
	return nil
}

func (st *state) sortedTxs(keep func(core.Transaction) bool) []core.Transaction {
	var out []core.Transaction
	for _, t := range st.txs {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (st *state) Transactions(_ context.Context) ([]core.Transaction, error) {
	out := st.sortedTxs(func(core.Transaction) bool { return true })
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st *state) RecentTransactions(_ context.Context, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		return nil, nil
	}
	all := st.sortedTxs(func(core.Transaction) bool { return true })
	out := make([]core.Transaction, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (st *state) MonthTransactions(_ context.Context, m core.Month) ([]core.Transaction, error) {
	prefix := m.Prefix()
	return st.sortedTxs(func(t core.Transaction) bool {
		return strings.HasPrefix(t.CreatedAt, prefix)
	}), nil
}

func (st *state) MonthlySpend(_ context.Context, c core.Category, m core.Month) (decimal.Decimal, error) {
	prefix := m.Prefix()
	sum := decimal.Zero
	for _, t := range st.txs {
		if t.Kind == core.KindSpend && t.Category == c && strings.HasPrefix(t.CreatedAt, prefix) {
			sum = sum.Add(t.Amount)
		}
	}
	return core.Round2(sum), nil
}

func (st *state) Amount(_ context.Context, key storage.ConfigKey) (decimal.NullDecimal, error) {
	v, ok := st.config[key]
	if !ok {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(v), nil
}

func (st *state) SetAmount(_ context.Context, key storage.ConfigKey, v decimal.Decimal) error {
	st.config[key] = core.Round2(v)
	return nil
}

func (st *state) AddAmount(_ context.Context, key storage.ConfigKey, delta decimal.Decimal) error {
	v, ok := st.config[key]
	if !ok {
		return core.NotFound(string(key), "")
	}
	st.config[key] = core.Round2(v.Add(delta))
	return nil
}

func (st *state) SetBudget(_ context.Context, b core.Budget) error {
	st.budgets[b.Category] = core.Round2(b.Limit)
	return nil
}

func (st *state) DeleteBudget(_ context.Context, c core.Category) error {
	if _, ok := st.budgets[c]; !ok {
		return core.NotFound("budget", string(c))
	}
	delete(st.budgets, c)
	return nil
}

func (st *state) Budgets(_ context.Context) ([]core.Budget, error) {
	out := make([]core.Budget, 0, len(st.budgets))
	for c, limit := range st.budgets {
		out = append(out, core.Budget{Category: c, Limit: limit})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}
