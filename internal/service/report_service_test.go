package service

import (
	"context"
	"testing"

	"invexis/internal/ledger"
	"invexis/internal/model"
	"invexis/internal/seed"

	"github.com/shopspring/decimal"
)

func TestSummary(t *testing.T) {
	today := model.MustParseDate("2025-07-25")
	l := ledger.New(ledger.WithItems(seed.Demo(today)))
	svc := NewReportService(l, 7)

	report, err := svc.Summary(context.Background(), today, -1)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if report.WarningDays != 7 {
		t.Errorf("warning days = %d, want default 7", report.WarningDays)
	}
	if report.TotalItems != 4 || report.TotalBatches != 5 {
		t.Errorf("totals = %d items, %d batches; want 4, 5", report.TotalItems, report.TotalBatches)
	}
	if got := report.QuantityByUnit["kg"]; !got.Equal(decimal.RequireFromString("17.7")) {
		t.Errorf("kg total = %s, want 17.7", got)
	}
	if report.ItemsByCategory["Vegetables"] != 1 {
		t.Errorf("vegetables = %d, want 1", report.ItemsByCategory["Vegetables"])
	}

	// Tomatoes expire today and tomorrow, chicken in five days
	if len(report.ExpiringSoon) != 3 {
		t.Fatalf("expiring soon = %+v, want 3 batches", report.ExpiringSoon)
	}
	first := report.ExpiringSoon[0]
	if first.ItemName != "Tomatoes" || first.DaysLeft != 0 || !first.UseFirst {
		t.Errorf("first alert = %+v", first)
	}
	if report.ExpiringSoon[1].UseFirst {
		t.Error("second tomato batch should not be marked use-first")
	}
	if len(report.Expired) != 1 || report.Expired[0].ItemName != "Curry Leaves" || report.Expired[0].DaysLeft != -5 {
		t.Errorf("expired = %+v", report.Expired)
	}
}

func TestSummaryHorizon(t *testing.T) {
	today := model.MustParseDate("2025-07-25")
	l := ledger.New(ledger.WithClock(today.Time), ledger.WithItems(seed.Demo(today)))
	svc := NewReportService(l, 7)

	report, _ := svc.Summary(context.Background(), model.Date{}, 0)
	if !report.AsOf.Equal(today) {
		t.Errorf("as of = %s, want ledger today %s", report.AsOf, today)
	}
	if len(report.ExpiringSoon) != 1 {
		t.Errorf("expiring within 0 days = %d, want 1", len(report.ExpiringSoon))
	}
}
