package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Baseline is the frozen beginning-balance snapshot of one report scope.
type Baseline map[string]decimal.Decimal

// Amount returns the snapshot amount for a code, zero when absent.
func (b Baseline) Amount(code string) decimal.Decimal {
	if v, ok := b[code]; ok {
		return v
	}
	return decimal.Zero
}

// SumFrom totals the retained earnings account and every snapshot amount
// whose numeric code is above threshold.
func (b Baseline) SumFrom(threshold int64) decimal.Decimal {
	total := decimal.Zero
	for code, amount := range b {
		if n, ok := NumericPrefix(code); isRetainedEarnings(code, threshold) || (ok && n > threshold) {
			total = total.Add(amount)
		}
	}
	return total
}

// RetainedEarnings rolls the baseline retained earnings block forward by the
// net income of every elapsed flow year.
type RetainedEarnings struct {
	settings  Settings
	agg       *Aggregator
	baseline  Baseline
	companyID int64

	mu   sync.Mutex
	memo map[int]decimal.Decimal
}

// NewRetainedEarnings wires the roll-forward for one company scope.
func NewRetainedEarnings(settings Settings, agg *Aggregator, baseline Baseline, companyID int64) *RetainedEarnings {
	return &RetainedEarnings{
		settings:  settings,
		agg:       agg,
		baseline:  baseline,
		companyID: companyID,
		memo:      make(map[int]decimal.Decimal),
	}
}

// NetIncomeForYear sums debit minus credit across accounts strictly above the
// threshold for the full calendar year. Income is credit-signed, matching how
// retained earnings carries it.
func (r *RetainedEarnings) NetIncomeForYear(ctx context.Context, year int) (decimal.Decimal, error) {
	w := Window{CompanyID: r.companyID, From: yearStart(year), To: yearEnd(year)}
	nets, err := r.agg.NetByAccount(ctx, w)
	if err != nil {
		return decimal.Zero, fmt.Errorf("net income %d: %w", year, err)
	}
	total := decimal.Zero
	for code, net := range nets {
		if n, ok := NumericPrefix(code); ok && n > r.settings.REThreshold {
			total = total.Add(net)
		}
	}
	return total, nil
}

// Constant returns the retained earnings opening as of January 1 of year.
func (r *RetainedEarnings) Constant(ctx context.Context, year int) (decimal.Decimal, error) {
	if year < r.settings.FirstFlowYear {
		return decimal.Zero, &InputError{Field: "year", Reason: fmt.Sprintf("%d precedes first flow year %d", year, r.settings.FirstFlowYear), Err: ErrFlowYear}
	}
	r.mu.Lock()
	if v, ok := r.memo[year]; ok {
		r.mu.Unlock()
		return v, nil
	}
	r.mu.Unlock()

	total := r.baseline.SumFrom(r.settings.REThreshold)
	for y := r.settings.FirstFlowYear; y < year; y++ {
		ni, err := r.NetIncomeForYear(ctx, y)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(ni)
	}

	r.mu.Lock()
	r.memo[year] = total
	r.mu.Unlock()
	return total, nil
}
