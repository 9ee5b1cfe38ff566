package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/amqp"
	"tally/internal/categorize"
	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/log"
	"tally/internal/statement"
	"tally/internal/storage"
)

// DefaultHistoryLimit is the number of transactions History returns when no
// limit is given.
const DefaultHistoryLimit = 10

// EventPublisher delivers committed transaction changes.
type EventPublisher interface {
	PublishEvent(ctx context.Context, e *amqp.LedgerEvent) error
}

// Option configures a LedgerService.
type Option func(*LedgerService)

func WithClassifier(c *categorize.Classifier) Option {
	return func(s *LedgerService) { s.classifier = c }
}

func WithParser(p *statement.Parser) Option {
	return func(s *LedgerService) { s.parser = p }
}

// WithPublisher enables transaction events. A nil publisher disables them.
func WithPublisher(p EventPublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) { s.logger = l }
}

// WithChangeHook registers fn to run after every committed mutation.
func WithChangeHook(fn func()) Option {
	return func(s *LedgerService) { s.hooks = append(s.hooks, fn) }
}

// LedgerService orchestrates every ledger operation over a Store. Writers
// are serialized, and each mutation commits its records together with the
// balance adjustment they imply.
type LedgerService struct {
	mu         sync.Mutex
	store      storage.Store
	classifier *categorize.Classifier
	parser     *statement.Parser
	publisher  EventPublisher
	now        func() time.Time
	logger     *log.Logger
	hooks      []func()
}

func NewLedgerService(store storage.Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:      store,
		classifier: categorize.Default(),
		parser:     statement.NewParser(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.Config{Level: slog.LevelInfo, Component: log.ComponentLedger})
	}
	return s
}

// Classifier returns the classifier used for descriptions without an
// explicit category.
func (s *LedgerService) Classifier() *categorize.Classifier {
	return s.classifier
}

// change lists the transactions a mutation created and removed.
type change struct {
	created []core.Transaction
	removed []core.Transaction
}

// mutate runs fn as one atomic unit and, in the same unit, applies the
// balance delta of the transactions fn created and removed. The delta is
// skipped while no balance has been set. The returned balance is the one
// recorded after the commit.
func (s *LedgerService) mutate(ctx context.Context, fn func(tx storage.Store) (change, error)) (change, decimal.NullDecimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		ch      change
		balance decimal.NullDecimal
	)
	err := s.store.Atomic(ctx, func(tx storage.Store) error {
		var err error
		if ch, err = fn(tx); err != nil {
			return err
		}
		if balance, err = tx.Amount(ctx, storage.KeyBalance); err != nil {
			return fmt.Errorf("read balance: %w", err)
		}
		delta := ledger.BalanceDelta(ch.created, ch.removed)
		if !balance.Valid || delta.IsZero() {
			return nil
		}
		if err := tx.AddAmount(ctx, storage.KeyBalance, delta); err != nil {
			return fmt.Errorf("apply balance delta: %w", err)
		}
		balance.Decimal = core.Round2(balance.Decimal.Add(delta))
		return nil
	})
	if err != nil {
		return change{}, decimal.NullDecimal{}, err
	}

	s.publish(ctx, ch)
	for _, hook := range s.hooks {
		hook()
	}
	return ch, balance, nil
}

// publish announces committed changes. Failures are logged and never undo
// the mutation.
func (s *LedgerService) publish(ctx context.Context, ch change) {
	if s.publisher == nil {
		return
	}
	events := make([]*amqp.LedgerEvent, 0, len(ch.created)+len(ch.removed))
	for _, t := range ch.created {
		events = append(events, amqp.NewLedgerEvent(amqp.EventTransactionCreated, t))
	}
	for _, t := range ch.removed {
		events = append(events, amqp.NewLedgerEvent(amqp.EventTransactionDeleted, t))
	}
	for _, e := range events {
		if err := s.publisher.PublishEvent(ctx, e); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish ledger event",
				log.FieldOperation, log.OpPublish,
				"event_id", e.ID,
				"type", e.Type,
				log.FieldTransactionID, e.Transaction.ID,
				log.FieldError, err)
		}
	}
}

func (s *LedgerService) balances(ctx context.Context) (balance, initial decimal.NullDecimal, err error) {
	if balance, err = s.store.Amount(ctx, storage.KeyBalance); err != nil {
		return balance, initial, fmt.Errorf("read balance: %w", err)
	}
	if initial, err = s.store.Amount(ctx, storage.KeyInitialBalance); err != nil {
		return balance, initial, fmt.Errorf("read initial balance: %w", err)
	}
	return balance, initial, nil
}

func positive(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return &core.ValidationError{Field: field, Value: d.String(), Reason: "must be greater than zero"}
	}
	return core.CheckAmount(field, d)
}

func describe(s, fallback string) string {
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}
