package ledger

import (
	"fmt"
	"strings"
)

// Family describes one transaction header/detail table pair. The join
// expression is written against the aliases h (header) and d (detail).
type Family struct {
	Name          string
	HeaderTable   string
	DetailTable   string
	DateColumn    string
	CompanyColumn string
	Join          string
}

// Families lists the five ledgers that feed the trial balance.
var Families = []Family{
	{
		Name:          "general_journal",
		HeaderTable:   "general_journal_headers",
		DetailTable:   "general_journal_details",
		DateColumn:    "gj_date",
		CompanyColumn: "company_id",
		Join:          "d.general_journal_header_id = h.id",
	},
	{
		Name:          "cash_disbursement",
		HeaderTable:   "cash_disbursement_headers",
		DetailTable:   "cash_disbursement_details",
		DateColumn:    "cd_date",
		CompanyColumn: "company_id",
		Join:          "CAST(d.cash_disbursement_header_id AS BIGINT) = h.id",
	},
	{
		Name:          "cash_receipts",
		HeaderTable:   "cash_receipt_headers",
		DetailTable:   "cash_receipt_details",
		DateColumn:    "receipt_date",
		CompanyColumn: "company_id",
		Join:          "CAST(d.cash_receipt_header_id AS BIGINT) = h.id",
	},
	{
		Name:          "cash_purchase",
		HeaderTable:   "cash_purchase_headers",
		DetailTable:   "cash_purchase_details",
		DateColumn:    "purchase_date",
		CompanyColumn: "company_id",
		Join:          "d.cash_purchase_header_id = h.id",
	},
	{
		Name:          "cash_sales",
		HeaderTable:   "cash_sales_headers",
		DetailTable:   "cash_sales_details",
		DateColumn:    "sales_date",
		CompanyColumn: "company_id",
		Join:          "CAST(d.cash_sales_header_id AS BIGINT) = h.id",
	},
}

// postingQuery builds the per-family aggregate query for a window. Values
// are always bound as parameters; only the family's static identifiers are
// written into the statement.
func (f Family) postingQuery(w Window) (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, 5)
	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	fmt.Fprintf(&sb, "SELECT d.acct_code, COALESCE(SUM(d.debit), 0)::text, COALESCE(SUM(d.credit), 0)::text\nFROM %s d\nJOIN %s h ON %s\n",
		f.DetailTable, f.HeaderTable, f.Join)
	fmt.Fprintf(&sb, "WHERE h.%s BETWEEN %s AND %s", f.DateColumn, bind(dateOnly(w.From)), bind(dateOnly(w.To)))
	if !w.Codes.Unbounded() {
		fmt.Fprintf(&sb, "\n  AND d.acct_code COLLATE \"C\" BETWEEN %s AND %s", bind(w.Codes.Lo), bind(w.Codes.Hi))
	}
	if w.CompanyID > 0 {
		fmt.Fprintf(&sb, "\n  AND h.%s = %s", f.CompanyColumn, bind(w.CompanyID))
	}
	sb.WriteString("\nGROUP BY d.acct_code")
	return sb.String(), args
}
