package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/glengine/internal/ledger"
)

const sheetName = "Trial Balance"

// Header block occupies rows 1-4; column titles sit on row 6.
const (
	titleRow  = 6
	firstData = 7
)

var xlsxHeader = []string{"Account", "Description", "Main Account", "Main Account Name", "Beginning", "Debit", "Credit", "Ending"}

// XLSXSink writes a single-sheet workbook with numeric amount cells.
type XLSXSink struct{}

// Format implements Sink.
func (XLSXSink) Format() Format { return FormatXLSX }

// Write implements Sink.
func (XLSXSink) Write(ctx context.Context, w io.Writer, tb ledger.TrialBalance) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	amountFmt := "#,##0.00;(#,##0.00)"
	amount, err := f.NewStyle(&excelize.Style{CustomNumFmt: &amountFmt})
	if err != nil {
		return err
	}
	totalAmount, err := f.NewStyle(&excelize.Style{CustomNumFmt: &amountFmt, Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	meta := MetaFor(tb)
	header := [][2]string{
		{"A1", meta.CompanyName},
		{"A2", fmt.Sprintf("Trial Balance %s to %s", meta.StartDate.Format(ledger.DateLayout), meta.EndDate.Format(ledger.DateLayout))},
		{"A3", fmt.Sprintf("Accounts %s to %s, filter %s", meta.StartAccount, meta.EndAccount, meta.FSFilter)},
		{"A4", "Generated " + meta.GeneratedAt.UTC().Format("2006-01-02 15:04:05 MST")},
	}
	for _, h := range header {
		if err := f.SetCellValue(sheetName, h[0], h[1]); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", bold); err != nil {
		return err
	}

	for i, h := range xlsxHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, titleRow)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheetName, fmt.Sprintf("A%d", titleRow), fmt.Sprintf("H%d", titleRow), bold); err != nil {
		return err
	}

	line := firstData
	for _, row := range tb.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		values := []any{
			row.AcctCode,
			row.AcctDesc,
			row.MainAcct,
			row.MainAcctName,
			row.Beginning.Round(2).InexactFloat64(),
			row.Debit.Round(2).InexactFloat64(),
			row.Credit.Round(2).InexactFloat64(),
			row.Ending.Round(2).InexactFloat64(),
		}
		if err := f.SetSheetRow(sheetName, fmt.Sprintf("A%d", line), &values); err != nil {
			return err
		}
		line++
	}
	totals := []any{
		"Totals", "", "", "",
		tb.Totals.Beginning.Round(2).InexactFloat64(),
		tb.Totals.Debit.Round(2).InexactFloat64(),
		tb.Totals.Credit.Round(2).InexactFloat64(),
		tb.Totals.Ending.Round(2).InexactFloat64(),
	}
	if err := f.SetSheetRow(sheetName, fmt.Sprintf("A%d", line), &totals); err != nil {
		return err
	}
	if line > firstData {
		if err := f.SetCellStyle(sheetName, fmt.Sprintf("E%d", firstData), fmt.Sprintf("H%d", line-1), amount); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheetName, fmt.Sprintf("A%d", line), fmt.Sprintf("H%d", line), totalAmount); err != nil {
		return err
	}

	widths := map[string]float64{"A": 14, "B": 40, "C": 14, "D": 30, "E": 16, "F": 16, "G": 16, "H": 16}
	for col, width := range widths {
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return err
		}
	}
	if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: titleRow, TopLeftCell: fmt.Sprintf("A%d", firstData), ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	return f.Write(w)
}
