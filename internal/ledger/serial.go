package ledger

import (
	"fmt"
	"strings"

	"invexis/internal/model"
)

// SerialCounters maps dateKey -> name prefix -> last used serial.
// The ledger keeps one for its whole lifetime so numbers stay unique across
// submissions made on the same day.
type SerialCounters map[string]map[string]int

// Last returns the last serial issued for the pair, 0 when unseen
func (c SerialCounters) Last(dateKey, prefix string) int {
	return c[dateKey][prefix]
}

func (c SerialCounters) set(dateKey, prefix string, serial int) {
	byPrefix, ok := c[dateKey]
	if !ok {
		byPrefix = make(map[string]int)
		c[dateKey] = byPrefix
	}
	byPrefix[prefix] = serial
}

func (c SerialCounters) clone() SerialCounters {
	out := make(SerialCounters, len(c))
	for dk, byPrefix := range c {
		cp := make(map[string]int, len(byPrefix))
		for p, s := range byPrefix {
			cp[p] = s
		}
		out[dk] = cp
	}
	return out
}

// Allocator hands out batch numbers for one submission. It works on a private
// copy of the counters; the ledger adopts them only if the submission commits.
type Allocator struct {
	counters SerialCounters
	existing map[string]struct{}
	issued   map[string]struct{}
}

// NewAllocator starts a submission. counters is modified in place; existing
// holds batch numbers already in the ledger. Either may be nil.
func NewAllocator(counters SerialCounters, existing map[string]struct{}) *Allocator {
	if counters == nil {
		counters = make(SerialCounters)
	}
	return &Allocator{
		counters: counters,
		existing: existing,
		issued:   make(map[string]struct{}),
	}
}

func (a *Allocator) used(batchNo string) bool {
	if _, ok := a.existing[batchNo]; ok {
		return true
	}
	_, ok := a.issued[batchNo]
	return ok
}

// Reserve claims a caller supplied batch number verbatim
func (a *Allocator) Reserve(batchNo string) error {
	if a.used(batchNo) {
		return fmt.Errorf("%w: %s", ErrDuplicateBatchNumber, batchNo)
	}
	a.issued[batchNo] = struct{}{}
	return nil
}

// Next issues the next free batch number for name on day. Serials wrap to 1
// after MaxSerial; taken candidates are skipped. When every serial of the
// (day, prefix) pair is taken the submission must be abandoned.
func (a *Allocator) Next(name string, day model.Date) (string, error) {
	prefix, dateKey := Prefix(name), DateKey(day)
	serial := a.counters.Last(dateKey, prefix)
	for attempt := 0; attempt < MaxSerial; attempt++ {
		serial++
		if serial > MaxSerial {
			serial = 1
		}
		candidate := formatKey(prefix, dateKey, serial)
		if a.used(candidate) {
			continue
		}
		a.counters.set(dateKey, prefix, serial)
		a.issued[candidate] = struct{}{}
		return candidate, nil
	}
	return "", fmt.Errorf("%w: no free serial left for %s", ErrDuplicateBatchNumber, strings.Join([]string{prefix, dateKey}, "-"))
}
