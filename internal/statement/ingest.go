// Package statement converts bank statement exports into signed
// transactions. Column layouts are detected from header aliases; rows that
// cannot be read are reported and skipped.
package statement

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

var (
	ErrEmptyStatement = errors.New("empty statement")
	ErrNoHeader       = errors.New("no recognizable header row found")
)

const defaultDescription = "transaction"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Transaction is one normalized statement row. A negative amount is a spend,
// a positive one an income.
type Transaction struct {
	Row         int
	Date        string
	Description string
	Amount      decimal.Decimal
	Category    string
}

// RowError describes a row that was skipped.
type RowError struct {
	Row     int
	Content []string
	Reason  string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s: %q", e.Row, e.Reason, e.Content)
}

// Result holds every parsed row plus the rows that were skipped.
type Result struct {
	Transactions []Transaction
	Errors       []RowError
}

// Skipped is the number of rows that could not be imported.
func (r Result) Skipped() int { return len(r.Errors) }

type Option func(*Parser)

// WithAliases appends header spellings after the defaults.
func WithAliases(extra ...Alias) Option {
	return func(p *Parser) {
		p.aliases = p.aliases.withExtra(extra)
	}
}

// Parser is safe for concurrent use once built.
type Parser struct {
	aliases aliasTable
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{aliases: aliasTable(DefaultAliases).withExtra(nil)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type record struct {
	line  int
	cells []string
	err   error
}

// Parse reads comma separated statement text.
func (p *Parser) Parse(text string) (Result, error) {
	return p.ParseReader(strings.NewReader(text))
}

// ParseReader reads a CSV statement. Malformed rows end up in
// Result.Errors; only an empty input or a missing header is fatal.
func (p *Parser) ParseReader(r io.Reader) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("read statement: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var records []record
	for {
		cells, err := cr.Read()
		if err == io.EOF {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			records = append(records, record{line: perr.StartLine, err: perr.Err})
			continue
		}
		if err != nil {
			return Result{}, fmt.Errorf("read statement: %w", err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, record{line: line, cells: cells})
	}
	return p.parse(records)
}

// ParseRows parses rows already split into cells, such as spreadsheet rows.
func (p *Parser) ParseRows(rows [][]string) (Result, error) {
	records := make([]record, len(rows))
	for i, row := range rows {
		records[i] = record{line: i + 1, cells: row}
	}
	return p.parse(records)
}

func (p *Parser) parse(records []record) (Result, error) {
	if len(records) == 0 || allBlank(records) {
		return Result{}, ErrEmptyStatement
	}

	headerIdx := -1
	for i, rec := range records {
		if rec.err == nil && p.aliases.isHeader(rec.cells) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return Result{}, ErrNoHeader
	}
	cols := p.aliases.columns(records[headerIdx].cells)

	var res Result
	for _, rec := range records[headerIdx+1:] {
		if rec.err != nil {
			res.Errors = append(res.Errors, RowError{Row: rec.line, Reason: rec.err.Error()})
			continue
		}
		if isBlank(rec.cells) {
			continue
		}
		amount, ok := rowAmount(rec.cells, cols)
		if !ok {
			res.Errors = append(res.Errors, RowError{
				Row:     rec.line,
				Content: rec.cells,
				Reason:  "could not parse amount",
			})
			continue
		}
		desc := cell(rec.cells, cols, FieldDescription)
		if desc == "" {
			desc = defaultDescription
		}
		res.Transactions = append(res.Transactions, Transaction{
			Row:         rec.line,
			Date:        cell(rec.cells, cols, FieldDate),
			Description: desc,
			Amount:      amount,
			Category:    strings.ToLower(cell(rec.cells, cols, FieldCategory)),
		})
	}
	return res, nil
}

// rowAmount prefers a combined amount column. Without one, a nonzero debit
// yields a negative amount and a nonzero credit a positive one; credit wins
// when both are set.
func rowAmount(cells []string, cols map[Field]int) (decimal.Decimal, bool) {
	if i, ok := cols[FieldAmount]; ok && i < len(cells) {
		return parseAmount(cells[i])
	}

	var (
		amount decimal.Decimal
		found  bool
	)
	if i, ok := cols[FieldDebit]; ok && i < len(cells) {
		if d, ok := parseAmount(cells[i]); ok && !d.IsZero() {
			amount, found = d.Abs().Neg(), true
		}
	}
	if i, ok := cols[FieldCredit]; ok && i < len(cells) {
		if c, ok := parseAmount(cells[i]); ok && !c.IsZero() {
			amount, found = c.Abs(), true
		}
	}
	return amount, found
}

// parseAmount drops thousands separators and currency text. Accounting
// negatives such as "(12.50)" are supported; amounts beyond core.MaxAmount
// are not.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '+' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.TrimPrefix(b.String(), "+")
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	if neg {
		d = d.Abs().Neg()
	}
	d = core.Round2(d)
	if core.CheckAmount("amount", d) != nil {
		return decimal.Zero, false
	}
	return d, true
}

func cell(cells []string, cols map[Field]int, f Field) string {
	i, ok := cols[f]
	if !ok || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func allBlank(records []record) bool {
	for _, rec := range records {
		if rec.err != nil || !isBlank(rec.cells) {
			return false
		}
	}
	return true
}
