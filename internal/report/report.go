// Package report renders the admin reports as CSV or XLSX downloads.
package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Table is a rendered report: a header row and data rows, all strings.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// utf8BOM makes Excel detect UTF-8 when opening the CSV; without it Persian
// text renders as mojibake.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes the table as BOM-prefixed UTF-8 CSV.
func (t Table) WriteCSV(w io.Writer) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the table as a single-sheet XLSX workbook.
func (t Table) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	sheet := t.Name
	if sheet == "" {
		sheet = "Report"
	}
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	if err := writeRow(f, sheet, 1, t.Header); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}
