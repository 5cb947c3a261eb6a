package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionAddItem      = "ADD_ITEM"
	ActionStockIn      = "STOCK_IN"
	ActionBillScanIn   = "BILL_SCAN_STOCK_IN"
	ActionUpdateStatus = "UPDATE_ITEM_STATUS"
)

// AuditLog tracks What and When for every committed ledger mutation
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string    `gorm:"type:varchar(64);index" json:"entity_id"`        // Item id, or submission id for bulk stock-in
	EntityName string    `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string    `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
