package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemStatus Enum Simulation
const (
	StatusFresh    = "fresh"
	StatusExpiring = "expiring"
	StatusExpired  = "expired"
)

// UnknownSupplier is recorded when a batch arrives without a source
const UnknownSupplier = "Unknown"

// ValidStatus reports whether s is one of the item statuses
func ValidStatus(s string) bool {
	return s == StatusFresh || s == StatusExpiring || s == StatusExpired
}

// StockItem is one tracked inventory item and its FIFO batches
type StockItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
	Category string          `json:"category"`
	Status   string          `json:"status"` // fresh, expiring, expired
	Expiry   Date            `json:"expiry"`
	Batch    []Batch         `json:"batch"`
}

// Clone returns a deep copy so callers never share batch slices with the ledger
func (i StockItem) Clone() StockItem {
	out := i
	out.Batch = make([]Batch, len(i.Batch))
	copy(out.Batch, i.Batch)
	return out
}

// Batch is one received lot of a StockItem
type Batch struct {
	BatchNo  string          `json:"batchNo"`
	Qty      decimal.Decimal `json:"qty"`
	Procured Date            `json:"procured"`
	Expires  Date            `json:"expires"`
	Supplier string          `json:"supplier"`
	Urgent   bool            `json:"urgent"`
}

// ManualEntry carries the raw fields of the single-item add form
type ManualEntry struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
	Category string `json:"category"`
	Expiry   string `json:"expiry"`
}

// StockInRow is one physical receipt line of a stock-in submission
type StockInRow struct {
	Name      string `json:"name"`
	Quantity  string `json:"quantity"`
	Unit      string `json:"unit"`
	UnitPrice string `json:"unit_price"`
	BatchNo   string `json:"batch_no"`
	Expiry    string `json:"expiry"`
}

// MovementSource Enum Simulation
const (
	SourceManual   = "MANUAL"
	SourceStockIn  = "STOCK_IN"
	SourceBillScan = "BILL_SCAN"
)

// StockMovement records every batch received into the ledger
type StockMovement struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ItemID    string          `gorm:"type:varchar(64);not null;index" json:"item_id"`
	ItemName  string          `gorm:"type:varchar(255);not null" json:"item_name"`
	BatchNo   string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"batch_no"`
	Quantity  decimal.Decimal `gorm:"type:decimal(14,3);not null" json:"quantity"`
	Unit      string          `gorm:"type:varchar(20)" json:"unit"`
	Procured  time.Time       `gorm:"type:date;not null" json:"procured"`
	Expires   *time.Time      `gorm:"type:date" json:"expires"` // Nullable for undated stock-in rows
	Supplier  string          `gorm:"type:varchar(255)" json:"supplier"`
	Source    string          `gorm:"type:varchar(20);not null" json:"source"` // MANUAL, STOCK_IN, BILL_SCAN
	CreatedAt time.Time       `json:"created_at"`
}
