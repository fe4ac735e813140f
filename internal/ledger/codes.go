package ledger

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// NumericPrefix returns the leading run of digits of an account code. ok is
// false when the code does not start with a digit.
func NumericPrefix(code string) (n int64, ok bool) {
	code = strings.TrimSpace(code)
	end := 0
	for end < len(code) && code[end] >= '0' && code[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseInt(code[:end], 10, 64)
	if err != nil {
		return math.MaxInt64, true
	}
	return v, true
}

// CompareCodes orders account codes naturally: numeric prefix ascending,
// codes without a numeric prefix last, full string as tiebreak.
func CompareCodes(a, b string) int {
	na, oka := NumericPrefix(a)
	nb, okb := NumericPrefix(b)
	switch {
	case oka && !okb:
		return -1
	case !oka && okb:
		return 1
	case oka && okb && na != nb:
		if na < nb {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// SortCodes sorts codes in natural order.
func SortCodes(codes []string) {
	sort.SliceStable(codes, func(i, j int) bool {
		return CompareCodes(codes[i], codes[j]) < 0
	})
}

// SortAccounts sorts accounts in natural code order.
func SortAccounts(accounts []Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		return CompareCodes(accounts[i].Code, accounts[j].Code) < 0
	})
}

// IsPnL classifies an account as profit and loss when its FS tag starts with
// IS or its numeric code exceeds the retained earnings threshold.
func IsPnL(acct Account, threshold int64) bool {
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(acct.FS)), "IS") {
		return true
	}
	n, ok := NumericPrefix(acct.Code)
	return ok && n > threshold
}

// isRetainedEarnings matches the whole code, so sub-accounts such as
// 4031-01 stay ordinary balance sheet accounts.
func isRetainedEarnings(code string, threshold int64) bool {
	return strings.TrimSpace(code) == strconv.FormatInt(threshold, 10)
}

// MatchesFS applies the financial statement filter.
func MatchesFS(acct Account, filter FSFilter) bool {
	fs := strings.ToUpper(strings.TrimSpace(acct.FS))
	switch filter {
	case FSActive:
		return !acct.Exclude
	case FSBalanceSheet:
		return strings.HasPrefix(fs, "BS")
	case FSIncomeStatement:
		return strings.HasPrefix(fs, "IS")
	default:
		return true
	}
}
