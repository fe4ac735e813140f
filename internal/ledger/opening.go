package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Opening is a resolved beginning balance.
type Opening struct {
	Amount  decimal.Decimal
	Backout decimal.Decimal
}

// OpeningResolver computes beginning balances as of a report start date.
// Every window it reads spans the whole report account range so the
// aggregator answers all accounts of a run from the same few reads.
type OpeningResolver struct {
	settings  Settings
	agg       *Aggregator
	baseline  Baseline
	retained  *RetainedEarnings
	companyID int64
	codes     CodeRange
}

// NewOpeningResolver wires a resolver for one report scope.
func NewOpeningResolver(settings Settings, agg *Aggregator, baseline Baseline, retained *RetainedEarnings, companyID int64, codes CodeRange) *OpeningResolver {
	return &OpeningResolver{
		settings:  settings,
		agg:       agg,
		baseline:  baseline,
		retained:  retained,
		companyID: companyID,
		codes:     codes,
	}
}

func (o *OpeningResolver) window(from, to time.Time) Window {
	return Window{CompanyID: o.companyID, Codes: o.codes, From: dateOnly(from), To: dateOnly(to)}
}

// Opening resolves the beginning balance of code at start.
func (o *OpeningResolver) Opening(ctx context.Context, code string, isPnL bool, start time.Time) (Opening, error) {
	start = dateOnly(start)
	backout, err := o.Backout(ctx, code, start)
	if err != nil {
		return Opening{}, err
	}
	if isPnL {
		amount, err := o.pnlOpening(ctx, code, start)
		if err != nil {
			return Opening{}, err
		}
		return Opening{Amount: amount, Backout: backout}, nil
	}
	amount, err := o.balanceSheetOpening(ctx, code, start)
	if err != nil {
		return Opening{}, err
	}
	if o.settings.ApplyBaselineBackout {
		amount = amount.Sub(backout)
	}
	return Opening{Amount: amount, Backout: backout}, nil
}

// P&L accounts restart every January 1; prior-year postings never leak in.
func (o *OpeningResolver) pnlOpening(ctx context.Context, code string, start time.Time) (decimal.Decimal, error) {
	if isNewYearsDay(start) {
		return decimal.Zero, nil
	}
	net, err := o.agg.NetFor(ctx, o.window(yearStart(start.Year()), dayBefore(start)), code)
	if err != nil {
		return decimal.Zero, fmt.Errorf("p&l year-to-date: %w", err)
	}
	return net, nil
}

func (o *OpeningResolver) balanceSheetOpening(ctx context.Context, code string, start time.Time) (decimal.Decimal, error) {
	pre, err := o.preMovement(ctx, code, start)
	if err != nil {
		return decimal.Zero, err
	}
	if isRetainedEarnings(code, o.settings.REThreshold) && start.Year() >= o.settings.FirstFlowYear && o.retained != nil {
		constant, err := o.retained.Constant(ctx, start.Year())
		if err != nil {
			return decimal.Zero, fmt.Errorf("retained earnings: %w", err)
		}
		return constant.Add(pre), nil
	}
	return o.baseline.Amount(code).Add(pre), nil
}

// preMovement is the net movement from the flow start through the day before
// start, zero when that window is empty.
func (o *OpeningResolver) preMovement(ctx context.Context, code string, start time.Time) (decimal.Decimal, error) {
	flowStart := o.settings.FlowStart()
	end := dayBefore(start)
	if end.Before(flowStart) {
		return decimal.Zero, nil
	}
	net, err := o.agg.NetFor(ctx, o.window(flowStart, end), code)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance sheet pre-movement: %w", err)
	}
	return net, nil
}

// Backout is the net movement from start through the baseline cutover for a
// report that starts inside the baseline year, after January and no later
// than the cutover. Those postings are already embedded in the snapshot.
func (o *OpeningResolver) Backout(ctx context.Context, code string, start time.Time) (decimal.Decimal, error) {
	cutover := dateOnly(o.settings.BaselineDate)
	start = dateOnly(start)
	if start.Year() != cutover.Year() || start.After(cutover) || start.Month() == time.January {
		return decimal.Zero, nil
	}
	net, err := o.agg.NetFor(ctx, o.window(start, cutover), code)
	if err != nil {
		return decimal.Zero, fmt.Errorf("baseline backout: %w", err)
	}
	return net, nil
}
