package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/glengine/internal/ledger"
	_ "github.com/odyssey-erp/glengine/testing"
)

func sampleTB() ledger.TrialBalance {
	d := decimal.RequireFromString
	rows := []ledger.Row{
		{AcctCode: "1000", AcctDesc: "Cash on hand", MainAcct: "10", MainAcctName: "Cash", Beginning: d("1500.00"), Debit: d("250.50"), Credit: d("0"), Ending: d("1750.50")},
		{AcctCode: "5000", AcctDesc: "Office, supplies", MainAcct: "50", MainAcctName: "Expenses", IsPnL: true, Beginning: d("0"), Debit: d("0"), Credit: d("1234567.89"), Ending: d("-1234567.89")},
	}
	totals := ledger.Totals{}
	for _, r := range rows {
		totals = totals.Add(r)
	}
	return ledger.TrialBalance{
		Params: ledger.Params{
			CompanyID:    3,
			StartAccount: "1000",
			EndAccount:   "5999",
			StartDate:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			EndDate:      time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
			FSFilter:     ledger.FSAll,
		},
		CompanyName: "Odyssey Trading",
		Rows:        rows,
		Totals:      totals,
		GeneratedAt: time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("docx")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestGroupedAmount(t *testing.T) {
	assert.Equal(t, "1,234,567.89", groupedAmount(decimal.RequireFromString("1234567.89")))
	assert.Equal(t, "(42.10)", groupedAmount(decimal.RequireFromString("-42.1")))
	assert.Equal(t, "0.00", groupedAmount(decimal.RequireFromString("-0.001")))
}

func TestMetaForUnscopedReport(t *testing.T) {
	tb := sampleTB()
	tb.Params.CompanyID = 0
	tb.CompanyName = ""
	assert.Equal(t, ledger.AllCompaniesName, MetaFor(tb).CompanyName)
}

func TestCSVSink(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSVSink{}.Write(context.Background(), &buf, sampleTB()))

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\r\n"), "\r\n")
	require.Len(t, lines, 9)
	assert.Equal(t, "# Company: Odyssey Trading", lines[1])
	assert.Equal(t, "# Period: 2025-03-01 to 2025-03-31", lines[2])
	assert.Equal(t, "Account,Description,Main Account,Main Account Name,Beginning,Debit,Credit,Ending", lines[5])
	assert.Equal(t, "1000,Cash on hand,10,Cash,1500.00,250.50,0.00,1750.50", lines[6])
	assert.Equal(t, `5000,"Office, supplies",50,Expenses,0.00,0.00,1234567.89,-1234567.89`, lines[7])
	assert.Equal(t, "Totals,,,,1500.00,250.50,1234567.89,-1232817.39", lines[8])
}

func TestXLSXSink(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, XLSXSink{}.Write(context.Background(), &buf, sampleTB()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())
	name, err := f.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Odyssey Trading", name)

	code, err := f.GetCellValue(sheetName, "A7")
	require.NoError(t, err)
	assert.Equal(t, "1000", code)

	ending, err := f.GetCellValue(sheetName, "H7", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "1750.5", ending)

	label, err := f.GetCellValue(sheetName, "A9")
	require.NoError(t, err)
	assert.Equal(t, "Totals", label)
}

type fakePDF struct {
	html string
	err  error
}

func (f *fakePDF) RenderHTML(_ context.Context, html string) ([]byte, error) {
	f.html = html
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-fake"), nil
}

func TestPDFSink(t *testing.T) {
	client := &fakePDF{}
	sink, err := New(FormatPDF, client)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, sink.Write(context.Background(), &buf, sampleTB()))
	assert.Equal(t, "%PDF-fake", buf.String())
	assert.Contains(t, client.html, "Odyssey Trading")
	assert.Contains(t, client.html, "01 Mar 2025")
	assert.Contains(t, client.html, "(1,234,567.89)")
	assert.Contains(t, client.html, "Office, supplies")
}

func TestPDFSinkPropagatesRenderErrors(t *testing.T) {
	boom := errors.New("gotenberg down")
	sink, err := NewPDFSink(&fakePDF{err: boom})
	require.NoError(t, err)

	err = sink.Write(context.Background(), &bytes.Buffer{}, sampleTB())
	assert.ErrorIs(t, err, boom)
}

func TestNewRequiresPDFClient(t *testing.T) {
	_, err := New(FormatPDF, nil)
	assert.Error(t, err)

	sink, err := New(FormatCSV, nil)
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, sink.Format())
}
