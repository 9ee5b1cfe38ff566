package worker

import (
	"context"
	"fmt"
	"time"

	"tally/internal/amqp"
	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/sheets"
)

const (
	seenEventsSize = 10000
	seenEventsTTL  = 24 * time.Hour
)

// TransactionSource lists the transactions the mirror must hold.
type TransactionSource interface {
	Transactions(ctx context.Context) ([]core.Transaction, error)
}

// MirrorWorker replays ledger events onto the spreadsheet mirror.
type MirrorWorker struct {
	store  TransactionSource
	mirror sheets.Mirror
	seen   *cache.LRUCache[struct{}]
	logger *log.Logger
}

func NewMirrorWorker(store TransactionSource, mirror sheets.Mirror, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentWorker})
	}
	return &MirrorWorker{
		store:  store,
		mirror: mirror,
		seen:   cache.NewLRUCache[struct{}](seenEventsSize, seenEventsTTL),
		logger: logger,
	}
}

// SeenEvents exposes the redelivery filter so its expiry can be managed.
func (w *MirrorWorker) SeenEvents() cache.Cleaner { return w.seen }

// HandleEvent applies one ledger event. Redelivered events are dropped; a
// failed event is forgotten so the broker's redelivery retries it.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if ev == nil {
		return fmt.Errorf("handle event: nil event")
	}
	if !w.seen.Add(ev.ID, struct{}{}) {
		w.logger.DebugContext(ctx, "Duplicate event skipped", "event_id", ev.ID)
		return nil
	}

	if err := w.apply(ctx, ev); err != nil {
		w.seen.Delete(ev.ID)
		w.logger.ErrorContext(ctx, "Mirror update failed",
			"event_id", ev.ID,
			"type", ev.Type,
			log.FieldTransactionID, ev.Transaction.ID,
			log.FieldError, err)
		return err
	}
	return nil
}

func (w *MirrorWorker) apply(ctx context.Context, ev *amqp.LedgerEvent) error {
	switch ev.Type {
	case amqp.EventTransactionCreated:
		t, err := ev.Transaction.ToTransaction()
		if err != nil {
			return fmt.Errorf("decode transaction: %w", err)
		}
		ref, err := w.mirror.Append(ctx, t)
		if err != nil {
			return fmt.Errorf("append to mirror: %w", err)
		}
		w.logger.InfoContext(ctx, "Transaction mirrored",
			log.FieldOperation, log.OpMirror,
			log.FieldTransactionID, t.ID,
			"sheets_ref", ref,
			log.FieldAmount, t.Amount.StringFixed(2))
	case amqp.EventTransactionDeleted:
		if err := w.mirror.Delete(ctx, ev.Transaction.ID); err != nil {
			return fmt.Errorf("delete from mirror: %w", err)
		}
		w.logger.InfoContext(ctx, "Transaction removed from mirror",
			log.FieldOperation, log.OpMirror,
			log.FieldTransactionID, ev.Transaction.ID)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}

// SyncResult counts the repairs made by StartupSyncCheck.
type SyncResult struct {
	Appended int
	Removed  int
	Errors   int
}

// StartupSyncCheck brings the mirror in line with the store, covering events
// lost while the worker was down. Individual row failures are counted and
// logged; the check only fails when either side cannot be listed.
func (w *MirrorWorker) StartupSyncCheck(ctx context.Context) (SyncResult, error) {
	var res SyncResult

	stored, err := w.store.Transactions(ctx)
	if err != nil {
		return res, fmt.Errorf("list stored transactions: %w", err)
	}
	mirrored, err := w.mirror.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list mirrored transactions: %w", err)
	}

	want := make(map[int64]struct{}, len(stored))
	for _, t := range stored {
		want[t.ID] = struct{}{}
	}
	have := make(map[int64]struct{}, len(mirrored))
	for _, t := range mirrored {
		have[t.ID] = struct{}{}
		if _, ok := want[t.ID]; ok {
			continue
		}
		if err := w.mirror.Delete(ctx, t.ID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to remove stale mirror row", log.FieldTransactionID, t.ID, log.FieldError, err)
			res.Errors++
			continue
		}
		res.Removed++
	}
	for _, t := range stored {
		if _, ok := have[t.ID]; ok {
			continue
		}
		if _, err := w.mirror.Append(ctx, t); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mirror transaction during startup", log.FieldTransactionID, t.ID, log.FieldError, err)
			res.Errors++
			continue
		}
		res.Appended++
	}

	w.logger.InfoContext(ctx, "Startup sync completed",
		"stored", len(stored),
		"mirrored", len(mirrored),
		"appended", res.Appended,
		"removed", res.Removed,
		"errors", res.Errors)
	return res, nil
}
