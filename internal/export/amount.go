package export

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// plainAmount is the machine-readable form used by CSV.
func plainAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// groupedAmount renders thousands separators and wraps negatives in
// parentheses, the way printed ledgers show credit balances.
func groupedAmount(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	var out string
	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		out = printer.Sprintf("%d", n) + "." + frac
	} else {
		out = fixed
	}
	if d.Round(2).IsNegative() {
		return "(" + out + ")"
	}
	return out
}
