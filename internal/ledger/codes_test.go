package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortCodesNaturalOrder(t *testing.T) {
	codes := []string{"2", "10", "1-A", "1", "A"}
	SortCodes(codes)
	assert.Equal(t, []string{"1", "1-A", "2", "10", "A"}, codes)
}

func TestSortAccountsIsDeterministic(t *testing.T) {
	build := func() []Account {
		return []Account{{Code: "B"}, {Code: "4031"}, {Code: "0100"}, {Code: "100"}, {Code: "A"}, {Code: "99X"}}
	}
	first := build()
	second := build()
	SortAccounts(first)
	SortAccounts(second)
	assert.Equal(t, first, second)

	var got []string
	for _, a := range first {
		got = append(got, a.Code)
	}
	assert.Equal(t, []string{"99X", "0100", "100", "4031", "A", "B"}, got)
}

func TestNumericPrefix(t *testing.T) {
	n, ok := NumericPrefix("4031-01")
	require.True(t, ok)
	assert.Equal(t, int64(4031), n)

	_, ok = NumericPrefix("CASH")
	assert.False(t, ok)

	n, ok = NumericPrefix(" 12")
	require.True(t, ok)
	assert.Equal(t, int64(12), n)
}

func TestIsPnL(t *testing.T) {
	assert.True(t, IsPnL(Account{Code: "5000", FS: "BS"}, DefaultREThreshold), "numeric code above threshold")
	assert.True(t, IsPnL(Account{Code: "1000", FS: "IS-REV"}, DefaultREThreshold), "IS tag")
	assert.False(t, IsPnL(Account{Code: "4031", FS: "BS-EQ"}, DefaultREThreshold), "retained earnings account itself")
	assert.False(t, IsPnL(Account{Code: "ADJ", FS: "BS"}, DefaultREThreshold))
}

func TestMatchesFS(t *testing.T) {
	bs := Account{Code: "1000", FS: "BS-CA"}
	is := Account{Code: "5000", FS: "is-exp", Exclude: true}

	assert.True(t, MatchesFS(bs, FSAll))
	assert.True(t, MatchesFS(is, FSAll))
	assert.True(t, MatchesFS(bs, FSActive))
	assert.False(t, MatchesFS(is, FSActive))
	assert.True(t, MatchesFS(bs, FSBalanceSheet))
	assert.False(t, MatchesFS(is, FSBalanceSheet))
	assert.True(t, MatchesFS(is, FSIncomeStatement))
}

func TestParseFSFilter(t *testing.T) {
	f, err := ParseFSFilter(" bs ")
	require.NoError(t, err)
	assert.Equal(t, FSBalanceSheet, f)

	f, err = ParseFSFilter("")
	require.NoError(t, err)
	assert.Equal(t, FSAll, f)

	_, err = ParseFSFilter("CF")
	require.ErrorIs(t, err, ErrInvalidInput)
}
