package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc receives coarse progress updates. It must not block for long;
// panics raised by it are recovered and ignored.
type ProgressFunc func(percent int, message string)

// InvariantTolerance is the largest acceptable drift of the grand-total
// identity beginning + debit - credit = ending.
var InvariantTolerance = decimal.RequireFromString("0.005")

// Assembler builds a trial balance from a store.
type Assembler struct {
	settings Settings
	store    Store
	logger   *slog.Logger
	progress ProgressFunc
	now      func() time.Time
}

// NewAssembler constructs Assembler.
func NewAssembler(settings Settings, store Store, logger *slog.Logger) *Assembler {
	return &Assembler{settings: settings, store: store, logger: logger, now: time.Now}
}

// WithProgress installs a progress callback.
func (a *Assembler) WithProgress(fn ProgressFunc) *Assembler {
	a.progress = fn
	return a
}

// WithNow overrides the clock for testing.
func (a *Assembler) WithNow(now func() time.Time) {
	if now != nil {
		a.now = now
	}
}

func (a *Assembler) log() *slog.Logger {
	if a.logger != nil {
		return a.logger.With(slog.String("component", "ledger.assembler"))
	}
	return slog.Default().With(slog.String("component", "ledger.assembler"))
}

// progressGate serialises callbacks from the row workers and drops updates
// that would move the percentage backwards.
type progressGate struct {
	fn     ProgressFunc
	logger *slog.Logger

	mu   sync.Mutex
	last int
}

func (g *progressGate) report(percent int, message string) {
	if g == nil || g.fn == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if percent < g.last {
		return
	}
	g.last = percent
	defer func() {
		if r := recover(); r != nil {
			g.logger.Warn("progress callback panicked", slog.Any("panic", r))
		}
	}()
	g.fn(percent, message)
}

// Build assembles the trial balance for p.
func (a *Assembler) Build(ctx context.Context, p Params) (TrialBalance, error) {
	if a == nil || a.store == nil {
		return TrialBalance{}, ErrNotConfigured
	}
	if p.FSFilter == "" {
		p.FSFilter = FSAll
	}
	if err := p.Validate(); err != nil {
		return TrialBalance{}, err
	}
	p.StartDate = dateOnly(p.StartDate)
	p.EndDate = dateOnly(p.EndDate)
	progress := &progressGate{fn: a.progress, logger: a.log()}

	progress.report(5, "loading accounts")
	accounts, err := a.eligibleAccounts(ctx, p)
	if err != nil {
		return TrialBalance{}, err
	}
	SortAccounts(accounts)

	baselineAmounts, err := a.store.BaselineSnapshot(ctx, p.CompanyID)
	if err != nil {
		return TrialBalance{}, err
	}
	baseline := Baseline(baselineAmounts)
	agg := NewAggregator(a.store)
	retained := NewRetainedEarnings(a.settings, agg, baseline, p.CompanyID)
	resolver := NewOpeningResolver(a.settings, agg, baseline, retained, p.CompanyID, p.Codes())
	period := Window{CompanyID: p.CompanyID, Codes: p.Codes(), From: p.StartDate, To: p.EndDate}

	progress.report(10, fmt.Sprintf("computing %d accounts", len(accounts)))
	rows := make([]Row, len(accounts))
	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.settings.workers())
	for i := range accounts {
		acct := accounts[i]
		g.Go(func() error {
			row, err := a.buildRow(gctx, resolver, agg, acct, period)
			if err != nil {
				return &AccountError{AcctCode: acct.Code, Err: err}
			}
			rows[i] = row
			n := done.Add(1)
			progress.report(10+int(n*85/int64(len(accounts))), fmt.Sprintf("computed %d of %d accounts", n, len(accounts)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return TrialBalance{}, err
	}

	totals := Totals{}
	for _, row := range rows {
		totals = totals.Add(row)
	}
	if drift := totals.Drift(); drift.Abs().GreaterThan(InvariantTolerance) {
		a.log().Error("computation invariant violated",
			slog.Int64("company_id", p.CompanyID),
			slog.String("beginning", totals.Beginning.StringFixed(2)),
			slog.String("debit", totals.Debit.StringFixed(2)),
			slog.String("credit", totals.Credit.StringFixed(2)),
			slog.String("ending", totals.Ending.StringFixed(2)),
			slog.String("drift", drift.String()))
	}
	progress.report(95, "trial balance assembled")
	return TrialBalance{Params: p, Rows: rows, Totals: totals, GeneratedAt: a.now()}, nil
}

func (a *Assembler) eligibleAccounts(ctx context.Context, p Params) ([]Account, error) {
	all, err := a.store.Accounts(ctx, p.CompanyID, p.Codes())
	if err != nil {
		return nil, err
	}
	out := make([]Account, 0, len(all))
	// Unscoped runs aggregate postings and baselines across companies by code,
	// so each code must appear once. The first company's attributes win.
	seen := make(map[string]struct{}, len(all))
	for _, acct := range all {
		if !acct.Active || !p.Codes().Contains(acct.Code) {
			continue
		}
		if p.CompanyID > 0 && acct.CompanyID != 0 && acct.CompanyID != p.CompanyID {
			continue
		}
		if p.CompanyID <= 0 {
			if _, dup := seen[acct.Code]; dup {
				continue
			}
			seen[acct.Code] = struct{}{}
		}
		if MatchesFS(acct, p.FSFilter) {
			out = append(out, acct)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoAccountsInRange
	}
	return out, nil
}

func (a *Assembler) buildRow(ctx context.Context, resolver *OpeningResolver, agg *Aggregator, acct Account, period Window) (Row, error) {
	isPnL := IsPnL(acct, a.settings.REThreshold)
	opening, err := resolver.Opening(ctx, acct.Code, isPnL, period.From)
	if err != nil {
		return Row{}, err
	}
	split, err := agg.SplitFor(ctx, period, acct.Code)
	if err != nil {
		return Row{}, fmt.Errorf("period movement: %w", err)
	}
	return Row{
		AcctCode:     acct.Code,
		AcctDesc:     acct.Description,
		MainAcct:     acct.MainAcct,
		MainAcctName: acct.MainAcctName,
		IsPnL:        isPnL,
		Beginning:    opening.Amount,
		Debit:        split.Debit,
		Credit:       split.Credit,
		Ending:       opening.Amount.Add(split.Debit).Sub(split.Credit),
		Backout:      opening.Backout,
	}, nil
}
