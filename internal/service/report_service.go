package service

import (
	"context"
	"slices"
	"strings"

	"invexis/internal/model"

	"github.com/shopspring/decimal"
)

// ItemSource is the read side of the ledger
type ItemSource interface {
	Items() []model.StockItem
	Today() model.Date
}

type ReportService interface {
	Summary(ctx context.Context, asOf model.Date, warningDays int) (model.SummaryReport, error)
}

type reportService struct {
	items       ItemSource
	warningDays int
}

// NewReportService builds reports over the ledger. warningDays is the default
// horizon for expiring batches.
func NewReportService(items ItemSource, warningDays int) ReportService {
	return &reportService{items: items, warningDays: warningDays}
}

// Summary totals the ledger and lists batches expired or expiring within
// warningDays of asOf. A zero asOf means today; a negative horizon uses the
// default.
func (s *reportService) Summary(ctx context.Context, asOf model.Date, warningDays int) (model.SummaryReport, error) {
	if asOf.IsZero() {
		asOf = s.items.Today()
	}
	if warningDays < 0 {
		warningDays = s.warningDays
	}

	report := model.SummaryReport{
		AsOf:            asOf,
		WarningDays:     warningDays,
		QuantityByUnit:  make(map[string]decimal.Decimal),
		ItemsByCategory: make(map[string]int),
		ExpiringSoon:    []model.BatchAlert{},
		Expired:         []model.BatchAlert{},
	}

	for _, it := range s.items.Items() {
		report.TotalItems++
		report.TotalBatches += len(it.Batch)

		unit := strings.ToLower(it.Unit)
		report.QuantityByUnit[unit] = report.QuantityByUnit[unit].Add(it.Quantity)

		category := it.Category
		if category == "" {
			category = "Uncategorized"
		}
		report.ItemsByCategory[category]++

		for i, b := range it.Batch {
			if b.Expires.IsZero() {
				continue
			}
			days := daysBetween(asOf, b.Expires)
			if days > warningDays {
				continue
			}
			alert := model.BatchAlert{
				ItemID:   it.ID,
				ItemName: it.Name,
				BatchNo:  b.BatchNo,
				Qty:      b.Qty,
				Unit:     it.Unit,
				Expires:  b.Expires,
				DaysLeft: days,
				UseFirst: i == 0,
			}
			if days < 0 {
				report.Expired = append(report.Expired, alert)
			} else {
				report.ExpiringSoon = append(report.ExpiringSoon, alert)
			}
		}
	}

	byExpiry := func(a, b model.BatchAlert) int {
		if c := a.Expires.Compare(b.Expires); c != 0 {
			return c
		}
		return strings.Compare(a.BatchNo, b.BatchNo)
	}
	slices.SortFunc(report.ExpiringSoon, byExpiry)
	slices.SortFunc(report.Expired, byExpiry)

	return report, nil
}

// daysBetween counts whole calendar days from a to b
func daysBetween(a, b model.Date) int {
	return int(b.Time().Sub(a.Time()).Hours() / 24)
}
