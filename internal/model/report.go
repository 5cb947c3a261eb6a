package model

import "github.com/shopspring/decimal"

// SummaryReport aggregates the ledger for the dashboard and quick reports
type SummaryReport struct {
	AsOf            Date                       `json:"as_of"`
	WarningDays     int                        `json:"warning_days"`
	TotalItems      int                        `json:"total_items"`
	TotalBatches    int                        `json:"total_batches"`
	QuantityByUnit  map[string]decimal.Decimal `json:"quantity_by_unit"`
	ItemsByCategory map[string]int             `json:"items_by_category"`
	ExpiringSoon    []BatchAlert               `json:"expiring_soon"`
	Expired         []BatchAlert               `json:"expired"`
}

// BatchAlert points at a batch that needs attention
type BatchAlert struct {
	ItemID   string          `json:"item_id"`
	ItemName string          `json:"item_name"`
	BatchNo  string          `json:"batch_no"`
	Qty      decimal.Decimal `json:"qty"`
	Unit     string          `json:"unit"`
	Expires  Date            `json:"expires"`
	DaysLeft int             `json:"days_left"`
	UseFirst bool            `json:"use_first"`
}
