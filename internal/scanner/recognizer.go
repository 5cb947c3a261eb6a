package scanner

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one line read off a vendor bill
type Record struct {
	Name        string          `json:"name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Matched     bool            `json:"matched"`               // Name matches a known inventory item
	Suggestions []string        `json:"suggestions,omitempty"` // Known names close to an unmatched line
}

// Recognizer turns a bill into records. A real OCR backend plugs in here.
type Recognizer interface {
	Recognize(ctx context.Context, vendor string) ([]Record, error)
}

// CannedRecognizer waits Delay and then returns a fixed bill
type CannedRecognizer struct {
	Delay   time.Duration
	Records []Record
}

// NewCannedRecognizer returns a recognizer with the demo bill
func NewCannedRecognizer(delay time.Duration) *CannedRecognizer {
	return &CannedRecognizer{
		Delay: delay,
		Records: []Record{
			{Name: "Tomatoes", Quantity: decimal.NewFromInt(5), Unit: "kg", UnitPrice: decimal.NewFromInt(30), Matched: true},
			{Name: "Onions", Quantity: decimal.NewFromInt(10), Unit: "kg", UnitPrice: decimal.NewFromInt(25), Matched: true},
			{Name: "Chiken Brest", Quantity: decimal.NewFromInt(4), Unit: "kg", UnitPrice: decimal.NewFromInt(220), Matched: false, Suggestions: []string{"Chicken Breast"}},
			{Name: "Curry Leaves", Quantity: decimal.RequireFromString("0.5"), Unit: "kg", UnitPrice: decimal.NewFromInt(80), Matched: true},
		},
	}
}

func (r *CannedRecognizer) Recognize(ctx context.Context, _ string) ([]Record, error) {
	timer := time.NewTimer(r.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	out := make([]Record, len(r.Records))
	for i, rec := range r.Records {
		rec.Suggestions = slices.Clone(rec.Suggestions)
		out[i] = rec
	}
	return out, nil
}
