package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allCodes = CodeRange{Lo: "0", Hi: "9999"}

func newResolver(store *memStore, settings Settings, companyID int64) *OpeningResolver {
	baselineAmounts, _ := store.BaselineSnapshot(context.Background(), companyID)
	baseline := Baseline(baselineAmounts)
	agg := NewAggregator(store)
	retained := NewRetainedEarnings(settings, agg, baseline, companyID)
	return NewOpeningResolver(settings, agg, baseline, retained, companyID, allCodes)
}

func TestPnLOpeningResetsOnNewYearsDay(t *testing.T) {
	store := newMemStore().
		post(1, "general_journal", day(2025, 6, 1), "5000", "300", "0").
		post(1, "cash_purchase", day(2025, 12, 31), "5000", "50", "0")
	resolver := newResolver(store, DefaultSettings(), 1)

	got, err := resolver.Opening(context.Background(), "5000", true, day(2026, 1, 1))
	require.NoError(t, err)
	assert.True(t, got.Amount.IsZero())
	assert.Zero(t, store.readCount(), "no query for a January 1 P&L opening")
}

func TestPnLOpeningIsYearToDate(t *testing.T) {
	store := newMemStore().
		post(1, "general_journal", day(2024, 11, 30), "5000", "999", "0").
		post(1, "general_journal", day(2025, 1, 15), "5000", "120", "0").
		post(1, "cash_disbursement", day(2025, 2, 28), "5000", "80", "20").
		post(1, "general_journal", day(2025, 3, 1), "5000", "500", "0")
	resolver := newResolver(store, DefaultSettings(), 1)

	got, err := resolver.Opening(context.Background(), "5000", true, day(2025, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, "180.00", got.Amount.StringFixed(2))
}

func TestBalanceSheetOpeningAddsPreMovementToBaseline(t *testing.T) {
	store := newMemStore().
		setBaseline(1, "1000", "500.00").
		post(1, "cash_receipts", day(2025, 1, 10), "1000", "200", "0").
		post(1, "cash_disbursement", day(2025, 6, 30), "1000", "0", "50").
		post(1, "cash_receipts", day(2025, 7, 1), "1000", "1000", "0")
	resolver := newResolver(store, DefaultSettings(), 1)

	got, err := resolver.Opening(context.Background(), "1000", false, day(2025, 7, 1))
	require.NoError(t, err)
	assert.Equal(t, "650.00", got.Amount.StringFixed(2))

	got, err = resolver.Opening(context.Background(), "1000", false, day(2026, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, "1650.00", got.Amount.StringFixed(2), "balance sheet carries across years")
}

func TestBalanceSheetOpeningOnFlowStartSkipsPreMovement(t *testing.T) {
	store := newMemStore().setBaseline(1, "1000", "500.00")
	resolver := newResolver(store, DefaultSettings(), 1)

	got, err := resolver.Opening(context.Background(), "1000", false, day(2025, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, "500.00", got.Amount.StringFixed(2))
	assert.Zero(t, store.readCount())

	missing, err := resolver.Opening(context.Background(), "1100", false, day(2025, 1, 1))
	require.NoError(t, err)
	assert.True(t, missing.Amount.IsZero(), "absent snapshot defaults to zero")
}

func TestBaselineBackoutIsReportedButNotSubtractedByDefault(t *testing.T) {
	store := newMemStore().
		setBaseline(1, "1000", "900.00").
		post(1, "general_journal", day(2024, 9, 30), "1000", "999", "0").
		post(1, "general_journal", day(2024, 10, 1), "1000", "300", "0").
		post(1, "general_journal", day(2024, 12, 31), "1000", "0", "100")
	resolver := newResolver(store, DefaultSettings(), 1)

	got, err := resolver.Opening(context.Background(), "1000", false, day(2024, 10, 1))
	require.NoError(t, err)
	assert.Equal(t, "200.00", got.Backout.StringFixed(2))
	assert.Equal(t, "900.00", got.Amount.StringFixed(2))
}

func TestBaselineBackoutSubtractedFromBalanceSheetWhenEnabled(t *testing.T) {
	store := newMemStore().
		setBaseline(1, "1000", "900.00").
		setBaseline(1, "5000", "400.00").
		post(1, "general_journal", day(2024, 10, 1), "1000", "300", "0").
		post(1, "general_journal", day(2024, 12, 31), "1000", "0", "100").
		post(1, "general_journal", day(2024, 11, 5), "5000", "40", "0")
	settings := DefaultSettings()
	settings.ApplyBaselineBackout = true
	resolver := newResolver(store, settings, 1)

	bs, err := resolver.Opening(context.Background(), "1000", false, day(2024, 10, 1))
	require.NoError(t, err)
	assert.Equal(t, "700.00", bs.Amount.StringFixed(2))

	pnl, err := resolver.Opening(context.Background(), "5000", true, day(2024, 10, 1))
	require.NoError(t, err)
	assert.Equal(t, "40.00", pnl.Backout.StringFixed(2))
	assert.True(t, pnl.Amount.IsZero(), "p&l opening never subtracts the backout")
}

func TestBaselineBackoutOnlyAppliesInsideBaselineYear(t *testing.T) {
	store := newMemStore().
		post(1, "general_journal", day(2024, 1, 20), "1000", "10", "0").
		post(1, "general_journal", day(2025, 3, 1), "1000", "10", "0")
	resolver := newResolver(store, DefaultSettings(), 1)
	ctx := context.Background()

	for _, start := range []struct {
		name string
		y, m int
		d    int
	}{
		{"january start", 2024, 1, 15},
		{"after cutover", 2025, 2, 1},
		{"earlier year", 2023, 6, 1},
	} {
		got, err := resolver.Backout(ctx, "1000", day(start.y, time.Month(start.m), start.d))
		require.NoError(t, err, start.name)
		assert.True(t, got.IsZero(), start.name)
	}
}

func TestRetainedEarningsAccountOpeningRollsForward(t *testing.T) {
	store := newMemStore().
		setBaseline(1, "4031", "-1000.00").
		setBaseline(1, "5000", "200.00").
		setBaseline(1, "1000", "800.00").
		post(1, "cash_sales", day(2025, 4, 1), "6000", "0", "700").
		post(1, "general_journal", day(2025, 5, 1), "5100", "300", "0").
		post(1, "general_journal", day(2026, 2, 1), "4031", "0", "50")
	resolver := newResolver(store, DefaultSettings(), 1)

	got, err := resolver.Opening(context.Background(), "4031", false, day(2026, 3, 1))
	require.NoError(t, err)
	// baseline block (-1000 + 200) + 2025 income (-400) + direct 2026 posting (-50)
	assert.Equal(t, "-1250.00", got.Amount.StringFixed(2))

	before, err := resolver.Opening(context.Background(), "4031", false, day(2024, 12, 1))
	require.NoError(t, err)
	assert.Equal(t, "-1000.00", before.Amount.StringFixed(2), "baseline year uses the ordinary balance sheet rule")
}

func TestRetainedEarningsSubAccountUsesBalanceSheetRule(t *testing.T) {
	store := newMemStore().
		setBaseline(1, "4031", "-1000.00").
		setBaseline(1, "4031-01", "-25.00").
		post(1, "cash_sales", day(2025, 4, 1), "6000", "0", "700")
	resolver := newResolver(store, DefaultSettings(), 1)

	sub, err := resolver.Opening(context.Background(), "4031-01", false, day(2026, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, "-25.00", sub.Amount.StringFixed(2))

	re, err := resolver.Opening(context.Background(), "4031", false, day(2026, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, "-1700.00", re.Amount.StringFixed(2), "sub-account stays out of the retained earnings block")
}
