package sheets

import (
	"context"

	"tally/internal/core"
)

// Ports for the spreadsheet mirror of the transaction log.
type (
	// TransactionMirror keeps one row per transaction. Both operations are
	// idempotent: appending a mirrored id or deleting a missing one is a
	// no-op.
	TransactionMirror interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
		Delete(ctx context.Context, id int64) error
	}

	// TransactionLister reads the mirrored rows back.
	TransactionLister interface {
		List(ctx context.Context) ([]core.Transaction, error)
	}

	Mirror interface {
		TransactionMirror
		TransactionLister
	}
)
