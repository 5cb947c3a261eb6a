package ledger

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)`)

// ParseQuantity reads the numeric prefix of a form field the way forms expect:
// "2.5", " 3 ", "2kg" parse; anything without a leading number is 0.
// Negative amounts are clamped to 0. Forms stay forgiving on purpose; callers
// that need a hard failure must check for blank input themselves.
func ParseQuantity(s string) decimal.Decimal {
	m := leadingNumber.FindString(strings.TrimSpace(s))
	if m == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(m, "."))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}
