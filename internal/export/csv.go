package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/odyssey-erp/glengine/internal/ledger"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

var csvHeader = []string{"Account", "Description", "Main Account", "Main Account Name", "Beginning", "Debit", "Credit", "Ending"}

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeComment(line string) error {
	line = strings.TrimRight(line, "\r\n") + "\r\n"
	_, err := s.buf.WriteString(line)
	return err
}

func (s *csvStreamer) writeRow(row []string) error {
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.flush()
	}
	return nil
}

func (s *csvStreamer) flush() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

// CSVSink streams rows as RFC 4180 CSV preceded by '#' metadata lines.
type CSVSink struct{}

// Format implements Sink.
func (CSVSink) Format() Format { return FormatCSV }

// Write implements Sink.
func (CSVSink) Write(ctx context.Context, w io.Writer, tb ledger.TrialBalance) error {
	meta := MetaFor(tb)
	s := newCSVStreamer(w)
	comments := []string{
		"# Report: Trial Balance",
		fmt.Sprintf("# Company: %s", meta.CompanyName),
		fmt.Sprintf("# Period: %s to %s", meta.StartDate.Format(ledger.DateLayout), meta.EndDate.Format(ledger.DateLayout)),
		fmt.Sprintf("# Accounts: %s to %s", meta.StartAccount, meta.EndAccount),
		fmt.Sprintf("# Filter: %s", meta.FSFilter),
	}
	for _, c := range comments {
		if err := s.writeComment(c); err != nil {
			return err
		}
	}
	if err := s.writeRow(csvHeader); err != nil {
		return err
	}
	for i, row := range tb.Rows {
		if i%csvFlushEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := s.writeRow([]string{
			row.AcctCode,
			row.AcctDesc,
			row.MainAcct,
			row.MainAcctName,
			plainAmount(row.Beginning),
			plainAmount(row.Debit),
			plainAmount(row.Credit),
			plainAmount(row.Ending),
		}); err != nil {
			return err
		}
	}
	if err := s.writeRow([]string{
		"Totals", "", "", "",
		plainAmount(tb.Totals.Beginning),
		plainAmount(tb.Totals.Debit),
		plainAmount(tb.Totals.Credit),
		plainAmount(tb.Totals.Ending),
	}); err != nil {
		return err
	}
	return s.flush()
}
