package statement

import (
	"bytes"
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		assert.NoError(t, err)
		assert.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	assert.NoError(t, err)
	return buf
}

func TestParseXLSX(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Value Date", "Particulars", "Debit", "Credit"},
		{"2026-02-10", "DEWA bill", "320.75", ""},
		{"2026-02-11", "Payroll", "", "12000"},
	})
	res, err := NewParser().ParseXLSX(buf)
	assert.NoError(t, err)
	assert.Equal(t, []string{"-320.75", "12000.00"}, amounts(res))
	assert.Equal(t, "DEWA bill", res.Transactions[0].Description)
}

func TestParseXLSXEmpty(t *testing.T) {
	_, err := NewParser().ParseXLSX(workbook(t, nil))
	assert.True(t, errors.Is(err, ErrEmptyStatement))

	_, err = NewParser().ParseXLSX(bytes.NewBufferString("not a workbook"))
	assert.Error(t, err)
}
