package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/statement"
	"tally/internal/storage"
)

// ErrNothingImported is returned when a statement parsed but none of its
// rows could be imported.
var ErrNothingImported = errors.New("no importable rows in statement")

const maxDescription = 200

// ImportResult summarizes one statement import.
type ImportResult struct {
	BatchID  string
	Imported int
	Spend    decimal.Decimal
	Income   decimal.Decimal
	Skipped  []statement.RowError
	Balance  decimal.NullDecimal
}

// Import parses a statement and records every readable row in one unit.
// Workbooks are recognized by an .xlsx name; anything else is read as CSV.
// Rows with a known category keep it; the rest are classified from their
// description.
func (s *LedgerService) Import(ctx context.Context, name string, r io.Reader) (ImportResult, error) {
	res := ImportResult{BatchID: uuid.NewString(), Spend: decimal.Zero, Income: decimal.Zero}
	fields := log.NewFields()
	fields["batch_id"] = res.BatchID
	fields["file"] = name

	parsed, err := s.parseStatement(name, r)
	if err != nil {
		err = fmt.Errorf("parse statement: %w", err)
		s.logger.LogOperation(ctx, log.OpImport, err, fields)
		return res, err
	}
	res.Skipped = parsed.Errors
	if len(parsed.Transactions) == 0 {
		s.logger.LogOperation(ctx, log.OpImport, ErrNothingImported, fields.WithCount(0))
		return res, ErrNothingImported
	}

	txs := make([]core.Transaction, 0, len(parsed.Transactions))
	for _, row := range parsed.Transactions {
		t := s.importedTransaction(row)
		if t.Kind == core.KindIncome {
			res.Income = res.Income.Add(t.Amount)
		} else {
			res.Spend = res.Spend.Add(t.Amount)
		}
		txs = append(txs, t)
	}
	res.Spend = core.Round2(res.Spend)
	res.Income = core.Round2(res.Income)

	ch, balance, err := s.mutate(ctx, func(tx storage.Store) (change, error) {
		created := make([]core.Transaction, 0, len(txs))
		for _, t := range txs {
			saved, err := tx.AddTransaction(ctx, t)
			if err != nil {
				return change{}, err
			}
			created = append(created, saved)
		}
		return change{created: created}, nil
	})
	if err != nil {
		err = fmt.Errorf("import statement: %w", err)
		s.logger.LogOperation(ctx, log.OpImport, err, fields)
		return ImportResult{}, err
	}

	res.Imported = len(ch.created)
	res.Balance = balance
	fields["skipped"] = len(res.Skipped)
	s.logger.LogOperation(ctx, log.OpImport, nil, fields.WithCount(res.Imported))
	return res, nil
}

func (s *LedgerService) parseStatement(name string, r io.Reader) (statement.Result, error) {
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return s.parser.ParseXLSX(r)
	}
	return s.parser.ParseReader(r)
}

// importedTransaction maps a signed statement row to a transaction: positive
// amounts are income, everything else a spend. Rows without a usable date
// are stamped with the import time.
func (s *LedgerService) importedTransaction(row statement.Transaction) core.Transaction {
	t := core.Transaction{
		Amount:      core.Round2(row.Amount.Abs()),
		Kind:        core.KindSpend,
		Description: truncate(row.Description, maxDescription),
	}
	if row.Amount.IsPositive() {
		t.Kind = core.KindIncome
	}

	if c, err := core.ParseCategory(row.Category); err == nil && row.Category != "" {
		t.Category = c
	} else {
		t.Category = s.classifier.Categorize(row.Description)
	}

	if ts, ok := core.NormalizeDate(row.Date); ok {
		t.CreatedAt = ts
	} else {
		t.CreatedAt = core.Timestamp(s.now())
	}
	return t
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
