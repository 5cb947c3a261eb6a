package ledger

import (
	"errors"
	"testing"

	"invexis/internal/model"

	"github.com/shopspring/decimal"
)

func TestGroupRows(t *testing.T) {
	rows := []model.StockInRow{
		{Name: "Onions", Quantity: "5", Unit: "KG", UnitPrice: "2.5", Expiry: "2025-03-01"},
		{Name: ""},
		{Name: "Chicken", Quantity: "x", Unit: "KG", Expiry: "2025-08-01"},
		{Name: "Onions", Quantity: "3", Unit: "L", Expiry: "2025-02-15"},
		{Name: "onions", Quantity: "1", Unit: "g", Expiry: "2025-02-10"},
	}

	candidates, estimate, err := GroupRows(rows, july25, "Green Valley", NewAllocator(nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 3 {
		t.Fatalf("got %d candidates, want 3 (grouping is case-sensitive)", len(candidates))
	}

	onions := candidates[0]
	if onions.Name != "Onions" || onions.Unit != "KG" || !onions.Quantity.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("onions = %+v", onions)
	}
	if onions.Batch[0].Expires.String() != "2025-02-15" || onions.Expiry.String() != "2025-02-15" {
		t.Errorf("onions not sorted: %+v", onions.Batch)
	}
	if onions.Batch[0].BatchNo != "ONI-250725-0002" || onions.Batch[1].BatchNo != "ONI-250725-0001" {
		t.Errorf("onion batch numbers = %s, %s", onions.Batch[0].BatchNo, onions.Batch[1].BatchNo)
	}
	if onions.Batch[0].Supplier != "Green Valley" || onions.Batch[0].Procured.String() != "2025-07-25" {
		t.Errorf("batch metadata = %+v", onions.Batch[0])
	}

	if chicken := candidates[1]; !chicken.Quantity.IsZero() || chicken.Batch[0].BatchNo != "CHI-250725-0001" {
		t.Errorf("chicken = %+v", chicken)
	}
	if lower := candidates[2]; lower.Name != "onions" || lower.Batch[0].BatchNo != "ONI-250725-0003" {
		t.Errorf("lowercase onions = %+v", lower)
	}
	if !estimate.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("estimate = %s", estimate)
	}
}

func TestGroupRowsRejectsMalformedExpiry(t *testing.T) {
	_, _, err := GroupRows([]model.StockInRow{{Name: "Milk", Quantity: "1", Expiry: "tomorrow"}}, july25, "", NewAllocator(nil, nil))
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Fields[0] != "rows[0].expiry" {
		t.Fatalf("err = %v", err)
	}
}

func TestGroupRowsDuplicateExplicitNumbers(t *testing.T) {
	rows := []model.StockInRow{
		{Name: "Milk", Quantity: "1", BatchNo: "LOT-7"},
		{Name: "Cream", Quantity: "1", BatchNo: "LOT-7"},
	}
	if _, _, err := GroupRows(rows, july25, "", NewAllocator(nil, nil)); !errors.Is(err, ErrDuplicateBatchNumber) {
		t.Fatalf("err = %v", err)
	}
}
