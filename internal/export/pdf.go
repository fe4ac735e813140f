package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/odyssey-erp/glengine/internal/ledger"
	"github.com/odyssey-erp/glengine/web"
)

// PDFClient exposes the subset of the report client used by the PDF sink.
type PDFClient interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

type pdfDocument struct {
	Meta   Meta
	Rows   []ledger.Row
	Totals ledger.Totals
}

// PDFSink renders the trial balance template and converts it through
// Gotenberg.
type PDFSink struct {
	tpl    *template.Template
	client PDFClient
}

// NewPDFSink parses the embedded template and wires the PDF client.
func NewPDFSink(client PDFClient) (*PDFSink, error) {
	if client == nil {
		return nil, fmt.Errorf("export: pdf client required")
	}
	tpl, err := parseTemplate()
	if err != nil {
		return nil, err
	}
	return &PDFSink{tpl: tpl, client: client}, nil
}

func parseTemplate() (*template.Template, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006")
		},
		"formatTimestamp": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.UTC().Format("02 Jan 2006 15:04 MST")
		},
		"formatAmount": groupedAmount,
	}
	return template.New("trial_balance.html").Funcs(funcMap).ParseFS(web.Templates, "templates/reports/trial_balance.html")
}

// Format implements Sink.
func (*PDFSink) Format() Format { return FormatPDF }

// HTML executes the template without converting it.
func (s *PDFSink) HTML(tb ledger.TrialBalance) (string, error) {
	if s == nil || s.tpl == nil {
		return "", fmt.Errorf("export: pdf sink not initialised")
	}
	buf := &bytes.Buffer{}
	doc := pdfDocument{Meta: MetaFor(tb), Rows: tb.Rows, Totals: tb.Totals}
	if err := s.tpl.Execute(buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Write implements Sink.
func (s *PDFSink) Write(ctx context.Context, w io.Writer, tb ledger.TrialBalance) error {
	html, err := s.HTML(tb)
	if err != nil {
		return err
	}
	pdf, err := s.client.RenderHTML(ctx, html)
	if err != nil {
		return fmt.Errorf("export: render pdf: %w", err)
	}
	_, err = w.Write(pdf)
	return err
}
