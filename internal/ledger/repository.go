package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PostingSource yields normalised postings for a window. Implementations may
// return several entries for the same account code.
type PostingSource interface {
	Postings(ctx context.Context, w Window) ([]Posting, error)
}

// ReferenceSource reads the account chart and the frozen baseline snapshot.
type ReferenceSource interface {
	Accounts(ctx context.Context, companyID int64, codes CodeRange) ([]Account, error)
	BaselineSnapshot(ctx context.Context, companyID int64) (map[string]decimal.Decimal, error)
	CompanyName(ctx context.Context, companyID int64) (string, error)
}

// Store combines every read the engine performs.
type Store interface {
	PostingSource
	ReferenceSource
}

// Querier is satisfied by pgx.Tx, *pgx.Conn and *pgxpool.Pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads ledger data from PostgreSQL.
type Repository struct {
	db       Querier
	families []Family
}

// NewRepository constructs Repository over the supplied querier.
func NewRepository(db Querier) *Repository {
	return &Repository{db: db, families: Families}
}

// Postings queries every family independently and unions the results.
func (r *Repository) Postings(ctx context.Context, w Window) ([]Posting, error) {
	if r == nil || r.db == nil {
		return nil, ErrNotConfigured
	}
	if w.Empty() || w.Codes.Inverted() {
		return nil, nil
	}
	var out []Posting
	for _, fam := range r.families {
		rows, err := r.familyPostings(ctx, fam, w)
		if err != nil {
			return nil, &DataSourceError{Op: "postings", Family: fam.Name, Window: w, Err: err}
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (r *Repository) familyPostings(ctx context.Context, fam Family, w Window) ([]Posting, error) {
	query, args := fam.postingQuery(w)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Posting
	for rows.Next() {
		var code, debit, credit string
		if err := rows.Scan(&code, &debit, &credit); err != nil {
			return nil, err
		}
		p := Posting{AcctCode: code}
		if p.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, fmt.Errorf("debit for %s: %w", code, err)
		}
		if p.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, fmt.Errorf("credit for %s: %w", code, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const accountsQuery = `SELECT company_id, acct_code, COALESCE(acct_desc, ''), COALESCE(main_acct, ''), COALESCE(main_acct_desc, ''),
COALESCE(fs, ''), COALESCE(exclude, 0) <> 0, COALESCE(active_flag, 0) <> 0
FROM account_codes
WHERE COALESCE(active_flag, 0) <> 0 AND acct_code COLLATE "C" BETWEEN $1 AND $2`

// Accounts returns active accounts whose code falls within the range.
func (r *Repository) Accounts(ctx context.Context, companyID int64, codes CodeRange) ([]Account, error) {
	if r == nil || r.db == nil {
		return nil, ErrNotConfigured
	}
	if codes.Inverted() {
		return nil, nil
	}
	query := accountsQuery
	args := []any{codes.Lo, codes.Hi}
	if companyID > 0 {
		query += ` AND company_id = $3`
		args = append(args, companyID)
	}
	query += ` ORDER BY company_id, acct_code COLLATE "C"`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, &DataSourceError{Op: "accounts", Window: Window{CompanyID: companyID, Codes: codes}, Err: err}
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.CompanyID, &a.Code, &a.Description, &a.MainAcct, &a.MainAcctName, &a.FS, &a.Exclude, &a.Active); err != nil {
			return nil, &DataSourceError{Op: "accounts", Window: Window{CompanyID: companyID, Codes: codes}, Err: err}
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &DataSourceError{Op: "accounts", Window: Window{CompanyID: companyID, Codes: codes}, Err: err}
	}
	return out, nil
}

// BaselineSnapshot returns the frozen beginning balance per account code.
// Without a company scope amounts are summed across companies.
func (r *Repository) BaselineSnapshot(ctx context.Context, companyID int64) (map[string]decimal.Decimal, error) {
	if r == nil || r.db == nil {
		return nil, ErrNotConfigured
	}
	query := `SELECT acct_code, COALESCE(SUM(amount), 0)::text FROM beginning_balances`
	var args []any
	if companyID > 0 {
		query += ` WHERE company_id = $1`
		args = append(args, companyID)
	}
	query += ` GROUP BY acct_code`
	wrap := func(err error) error {
		return &DataSourceError{Op: "baseline snapshot", Window: Window{CompanyID: companyID}, Err: err}
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()
	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var code, amount string
		if err := rows.Scan(&code, &amount); err != nil {
			return nil, wrap(err)
		}
		v, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, wrap(fmt.Errorf("amount for %s: %w", code, err))
		}
		out[code] = v
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err)
	}
	return out, nil
}

// CompanyName resolves the report header. Unknown companies yield "".
func (r *Repository) CompanyName(ctx context.Context, companyID int64) (string, error) {
	if r == nil || r.db == nil {
		return "", ErrNotConfigured
	}
	if companyID <= 0 {
		return "", nil
	}
	var name string
	err := r.db.QueryRow(ctx, `SELECT name FROM companies WHERE id = $1`, companyID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", &DataSourceError{Op: "company", Window: Window{CompanyID: companyID}, Err: err}
	}
	return name, nil
}
