package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorUnionsFamilies(t *testing.T) {
	store := newMemStore().
		post(1, "general_journal", day(2025, 3, 2), "1000", "100.00", "0").
		post(1, "cash_receipts", day(2025, 3, 5), "1000", "25.50", "0").
		post(1, "cash_disbursement", day(2025, 3, 9), "1000", "0", "40.25").
		post(1, "cash_sales", day(2025, 3, 9), "6000", "0", "85.25")
	agg := NewAggregator(store)
	w := Window{CompanyID: 1, Codes: CodeRange{Lo: "1000", Hi: "9999"}, From: day(2025, 3, 1), To: day(2025, 3, 31)}

	split, err := agg.SplitByAccount(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, "125.50", split["1000"].Debit.StringFixed(2))
	assert.Equal(t, "40.25", split["1000"].Credit.StringFixed(2))

	net, err := agg.NetByAccount(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, "85.25", net["1000"].StringFixed(2))
	assert.Equal(t, "-85.25", net["6000"].StringFixed(2))
	_, present := net["2000"]
	assert.False(t, present, "accounts without postings are absent")
}

func TestAggregatorMemoisesWindows(t *testing.T) {
	store := newMemStore().post(1, "general_journal", day(2025, 1, 2), "1000", "10", "0")
	agg := NewAggregator(store)
	w := Window{CompanyID: 1, Codes: CodeRange{Lo: "1000", Hi: "1999"}, From: day(2025, 1, 1), To: day(2025, 1, 31)}

	for i := 0; i < 3; i++ {
		v, err := agg.NetFor(context.Background(), w, "1000")
		require.NoError(t, err)
		assert.Equal(t, "10.00", v.StringFixed(2))
	}
	assert.Equal(t, 1, store.readCount())
	assert.Equal(t, 1, agg.Reads())

	missing, err := agg.SplitFor(context.Background(), w, "1500")
	require.NoError(t, err)
	assert.True(t, missing.Debit.IsZero())
	assert.True(t, missing.Credit.IsZero())
}

func TestAggregatorSkipsEmptyAndInvertedWindows(t *testing.T) {
	store := newMemStore()
	agg := NewAggregator(store)
	ctx := context.Background()

	got, err := agg.SplitByAccount(ctx, Window{Codes: CodeRange{Lo: "2", Hi: "1"}, From: day(2025, 1, 1), To: day(2025, 1, 31)})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = agg.SplitByAccount(ctx, Window{From: day(2025, 1, 2), To: day(2025, 1, 1)})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, store.readCount())
}

func TestAggregatorPropagatesSourceErrors(t *testing.T) {
	boom := errors.New("connection reset")
	store := newMemStore()
	store.failOn = func(Window) error { return boom }
	agg := NewAggregator(store)

	_, err := agg.NetByAccount(context.Background(), Window{From: day(2025, 1, 1), To: day(2025, 1, 31)})
	assert.ErrorIs(t, err, boom)
}

func TestAggregatorCompanyIsolation(t *testing.T) {
	store := newMemStore().
		post(1, "general_journal", day(2025, 5, 1), "1000", "10", "0").
		post(2, "general_journal", day(2025, 5, 1), "1000", "999", "0")
	agg := NewAggregator(store)

	net, err := agg.NetByAccount(context.Background(), Window{CompanyID: 1, From: day(2025, 5, 1), To: day(2025, 5, 31)})
	require.NoError(t, err)
	assert.Equal(t, "10.00", net["1000"].StringFixed(2))

	all, err := agg.NetByAccount(context.Background(), Window{CompanyID: 0, From: day(2025, 5, 1), To: day(2025, 5, 31)})
	require.NoError(t, err)
	assert.Equal(t, "1009.00", all["1000"].StringFixed(2))
}
