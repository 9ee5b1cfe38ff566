package statement

import (
	"fmt"
	"strings"
)

// Field is a canonical statement column.
type Field string

const (
	FieldDate        Field = "date"
	FieldDescription Field = "description"
	FieldAmount      Field = "amount"
	FieldDebit       Field = "debit"
	FieldCredit      Field = "credit"
	FieldCategory    Field = "category"
)

// Alias lists the header spellings accepted for one canonical field.
type Alias struct {
	Field   Field
	Headers []string
}

// DefaultAliases covers common English and Arabic bank exports. Adding a new
// bank format means adding spellings here.
var DefaultAliases = []Alias{
	{FieldDate, []string{"date", "transaction date", "trans date", "value date", "posted date", "تاريخ"}},
	{FieldDescription, []string{"description", "narrative", "details", "memo", "particulars", "transaction", "بيان"}},
	{FieldAmount, []string{"amount", "debit/credit", "value", "sum", "المبلغ"}},
	{FieldDebit, []string{"debit", "withdrawal", "سحب"}},
	{FieldCredit, []string{"credit", "deposit", "إيداع"}},
	{FieldCategory, []string{"category", "فئة"}},
}

// headerFields are the fields whose presence marks a row as the header.
var headerFields = map[Field]bool{
	FieldDate:        true,
	FieldDescription: true,
	FieldAmount:      true,
}

type aliasTable []Alias

func (t aliasTable) matches(f Field, cell string) bool {
	for _, a := range t {
		if a.Field != f {
			continue
		}
		for _, h := range a.Headers {
			if h == cell {
				return true
			}
		}
	}
	return false
}

func (t aliasTable) isHeader(row []string) bool {
	for _, cell := range row {
		cell = normalizeHeader(cell)
		for f := range headerFields {
			if t.matches(f, cell) {
				return true
			}
		}
	}
	return false
}

// columns resolves the first matching index for every known field.
func (t aliasTable) columns(header []string) map[Field]int {
	cols := make(map[Field]int)
	for _, a := range t {
		if _, ok := cols[a.Field]; ok {
			continue
		}
		for i, cell := range header {
			if t.matches(a.Field, normalizeHeader(cell)) {
				cols[a.Field] = i
				break
			}
		}
	}
	return cols
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (t aliasTable) withExtra(extra []Alias) aliasTable {
	out := make(aliasTable, 0, len(t)+len(extra))
	out = append(out, t...)
	for _, a := range extra {
		hs := make([]string, 0, len(a.Headers))
		for _, h := range a.Headers {
			hs = append(hs, normalizeHeader(h))
		}
		out = append(out, Alias{Field: a.Field, Headers: hs})
	}
	return out
}

// ParseAliases reads extra header spellings written as
// "field=Header|Other Header;field=...", e.g. "date=Booking Day;amount=Movement".
func ParseAliases(spec string) ([]Alias, error) {
	var out []Alias
	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, headers, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("column alias %q: want field=Header", part)
		}
		f := Field(normalizeHeader(name))
		if !f.known() {
			return nil, fmt.Errorf("column alias %q: unknown field %q", part, name)
		}
		a := Alias{Field: f}
		for _, h := range strings.Split(headers, "|") {
			if h = strings.TrimSpace(h); h != "" {
				a.Headers = append(a.Headers, h)
			}
		}
		if len(a.Headers) == 0 {
			return nil, fmt.Errorf("column alias %q: no headers", part)
		}
		out = append(out, a)
	}
	return out, nil
}

func (f Field) known() bool {
	switch f {
	case FieldDate, FieldDescription, FieldAmount, FieldDebit, FieldCredit, FieldCategory:
		return true
	}
	return false
}
