package ledger

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrInvalidInput is matched by every InputError.
	ErrInvalidInput = errors.New("ledger: invalid input")
	// ErrNoAccountsInRange indicates the eligible account set is empty.
	ErrNoAccountsInRange = errors.New("ledger: no accounts in range")
	// ErrFlowYear indicates a roll-forward requested before the first flow year.
	ErrFlowYear = errors.New("ledger: year precedes first flow year")
	// ErrNotConfigured indicates a missing dependency.
	ErrNotConfigured = errors.New("ledger: engine not configured")
)

// InputError reports a request rejected before querying.
type InputError struct {
	Field  string
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("ledger: invalid %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidInput) match.
func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// DataSourceError wraps a failed read with the context needed to diagnose it.
type DataSourceError struct {
	Op     string
	Family string
	Window Window
	Err    error
}

func (e *DataSourceError) Error() string {
	scope := fmt.Sprintf("company=%d accounts=[%s..%s] dates=[%s..%s]",
		e.Window.CompanyID, e.Window.Codes.Lo, e.Window.Codes.Hi,
		e.Window.From.Format(DateLayout), e.Window.To.Format(DateLayout))
	msg := "ledger: " + e.Op
	if e.Family != "" {
		msg += " family=" + e.Family
	}
	msg += " " + scope
	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		return fmt.Sprintf("%s: sqlstate %s: %v", msg, pgErr.Code, e.Err)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

// AccountError attaches the account being computed to an aggregation failure.
type AccountError struct {
	AcctCode string
	Err      error
}

func (e *AccountError) Error() string {
	return fmt.Sprintf("ledger: account %s: %v", e.AcctCode, e.Err)
}

func (e *AccountError) Unwrap() error {
	return e.Err
}
