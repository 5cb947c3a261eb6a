package ledger

import (
	"fmt"
	"strings"

	"invexis/internal/model"
)

const (
	// SerialWidth is the zero-padded width of the serial part of a batch number
	SerialWidth = 4
	// MaxSerial is the last serial before the counter wraps back to 1
	MaxSerial = 9999

	prefixLen     = 3
	dateKeyLayout = "060102"
)

// Prefix returns the first three characters of name, uppercased.
// Names shorter than three characters are used whole.
func Prefix(name string) string {
	r := []rune(strings.TrimSpace(name))
	if len(r) > prefixLen {
		r = r[:prefixLen]
	}
	return strings.ToUpper(string(r))
}

// DateKey formats day as YYMMDD
func DateKey(day model.Date) string {
	return day.Time().Format(dateKeyLayout)
}

// FormatBatchNo builds "{PREFIX}-{YYMMDD}-{SERIAL}". It has no side effects;
// serial bookkeeping belongs to the caller.
func FormatBatchNo(name string, day model.Date, serial int) string {
	return formatKey(Prefix(name), DateKey(day), serial)
}

func formatKey(prefix, dateKey string, serial int) string {
	return fmt.Sprintf("%s-%s-%0*d", prefix, dateKey, SerialWidth, serial)
}
