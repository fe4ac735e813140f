package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FSFilter narrows the eligible chart of accounts for a report.
type FSFilter string

const (
	// FSAll applies no financial-statement filter.
	FSAll FSFilter = "ALL"
	// FSActive keeps accounts not flagged as excluded.
	FSActive FSFilter = "ACT"
	// FSBalanceSheet keeps accounts tagged BS*.
	FSBalanceSheet FSFilter = "BS"
	// FSIncomeStatement keeps accounts tagged IS*.
	FSIncomeStatement FSFilter = "IS"
)

// ParseFSFilter normalises user input, defaulting blank values to FSAll.
func ParseFSFilter(raw string) (FSFilter, error) {
	switch f := FSFilter(strings.ToUpper(strings.TrimSpace(raw))); f {
	case "":
		return FSAll, nil
	case FSAll, FSActive, FSBalanceSheet, FSIncomeStatement:
		return f, nil
	default:
		return "", &InputError{Field: "fs_filter", Reason: "must be one of ALL, ACT, BS, IS"}
	}
}

// Account is a chart-of-accounts row scoped to a company.
type Account struct {
	CompanyID    int64
	Code         string
	Description  string
	MainAcct     string
	MainAcctName string
	FS           string
	Exclude      bool
	Active       bool
}

// Posting is a single normalised debit/credit pair, or the per-family sum of
// several pairs for the same account.
type Posting struct {
	AcctCode string
	Debit    decimal.Decimal
	Credit   decimal.Decimal
}

// Split holds debit and credit sums separately.
type Split struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Net returns debit minus credit.
func (s Split) Net() decimal.Decimal {
	return s.Debit.Sub(s.Credit)
}

// CodeRange is an inclusive, lexical account-code range. A zero value is
// unbounded.
type CodeRange struct {
	Lo string
	Hi string
}

// Unbounded reports whether the range places no restriction on codes.
func (r CodeRange) Unbounded() bool {
	return r.Lo == "" && r.Hi == ""
}

// Inverted reports whether lo sorts after hi.
func (r CodeRange) Inverted() bool {
	return !r.Unbounded() && r.Lo > r.Hi
}

// Contains tests a code against the range.
func (r CodeRange) Contains(code string) bool {
	if r.Unbounded() {
		return true
	}
	return code >= r.Lo && code <= r.Hi
}

// Window is the query scope handed to a PostingSource: one company, one
// account range and one inclusive date range.
type Window struct {
	CompanyID int64
	Codes     CodeRange
	From      time.Time
	To        time.Time
}

// Empty reports whether the date range contains no days.
func (w Window) Empty() bool {
	return dateOnly(w.To).Before(dateOnly(w.From))
}

// Params describe a single trial balance request.
type Params struct {
	CompanyID    int64
	StartAccount string
	EndAccount   string
	StartDate    time.Time
	EndDate      time.Time
	FSFilter     FSFilter
}

// Validate rejects requests before any query executes.
func (p Params) Validate() error {
	if strings.TrimSpace(p.StartAccount) == "" {
		return &InputError{Field: "start_account", Reason: "required"}
	}
	if strings.TrimSpace(p.EndAccount) == "" {
		return &InputError{Field: "end_account", Reason: "required"}
	}
	if p.StartAccount > p.EndAccount {
		return &InputError{Field: "end_account", Reason: "must not sort before start_account"}
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return &InputError{Field: "date_range", Reason: "start and end dates required"}
	}
	if dateOnly(p.EndDate).Before(dateOnly(p.StartDate)) {
		return &InputError{Field: "date_range", Reason: "end date precedes start date"}
	}
	if _, err := ParseFSFilter(string(p.FSFilter)); err != nil {
		return err
	}
	return nil
}

// Codes returns the requested account range.
func (p Params) Codes() CodeRange {
	return CodeRange{Lo: p.StartAccount, Hi: p.EndAccount}
}

// Row is one account line of a trial balance.
type Row struct {
	AcctCode     string
	AcctDesc     string
	MainAcct     string
	MainAcctName string
	IsPnL        bool
	Beginning    decimal.Decimal
	Debit        decimal.Decimal
	Credit       decimal.Decimal
	Ending       decimal.Decimal
	// Backout is the net movement between the report start and the baseline
	// cutover that is already embedded in the frozen snapshot.
	Backout decimal.Decimal
}

// Totals are the grand totals across all rows.
type Totals struct {
	Beginning decimal.Decimal
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Ending    decimal.Decimal
}

// Add accumulates a row.
func (t Totals) Add(r Row) Totals {
	return Totals{
		Beginning: t.Beginning.Add(r.Beginning),
		Debit:     t.Debit.Add(r.Debit),
		Credit:    t.Credit.Add(r.Credit),
		Ending:    t.Ending.Add(r.Ending),
	}
}

// Drift returns beginning + debit - credit - ending.
func (t Totals) Drift() decimal.Decimal {
	return t.Beginning.Add(t.Debit).Sub(t.Credit).Sub(t.Ending)
}

// TrialBalance is the finished, ordered report.
type TrialBalance struct {
	Params      Params
	CompanyName string
	Rows        []Row
	Totals      Totals
	GeneratedAt time.Time
}
