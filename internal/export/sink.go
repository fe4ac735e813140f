// Package export renders finished trial balances into downloadable artefacts.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/odyssey-erp/glengine/internal/ledger"
)

// ErrUnknownFormat is returned for unsupported output formats.
var ErrUnknownFormat = errors.New("export: unknown format")

// Format identifies an output encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

// ParseFormat normalises raw. Blank means xlsx.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FormatXLSX, nil
	case FormatXLSX, FormatCSV, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

// Extension is the file extension without the dot.
func (f Format) Extension() string {
	return string(f)
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

// Meta is the report header printed by every sink.
type Meta struct {
	CompanyID    int64
	CompanyName  string
	StartDate    time.Time
	EndDate      time.Time
	StartAccount string
	EndAccount   string
	FSFilter     ledger.FSFilter
	GeneratedAt  time.Time
}

// MetaFor derives the header from a built trial balance.
func MetaFor(tb ledger.TrialBalance) Meta {
	name := tb.CompanyName
	if name == "" && tb.Params.CompanyID <= 0 {
		name = ledger.AllCompaniesName
	}
	return Meta{
		CompanyID:    tb.Params.CompanyID,
		CompanyName:  name,
		StartDate:    tb.Params.StartDate,
		EndDate:      tb.Params.EndDate,
		StartAccount: tb.Params.StartAccount,
		EndAccount:   tb.Params.EndAccount,
		FSFilter:     tb.Params.FSFilter,
		GeneratedAt:  tb.GeneratedAt,
	}
}

// Sink writes one trial balance to w.
type Sink interface {
	Format() Format
	Write(ctx context.Context, w io.Writer, tb ledger.TrialBalance) error
}

// New returns the sink for format. The PDF sink needs a renderer.
func New(format Format, pdf PDFClient) (Sink, error) {
	switch format {
	case FormatXLSX:
		return XLSXSink{}, nil
	case FormatCSV:
		return CSVSink{}, nil
	case FormatPDF:
		sink, err := NewPDFSink(pdf)
		if err != nil {
			return nil, err
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
