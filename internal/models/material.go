package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MaterialStatus string

const (
	MaterialActive   MaterialStatus = "active"
	MaterialInactive MaterialStatus = "inactive"
	MaterialArchived MaterialStatus = "archived"
)

func (s MaterialStatus) Valid() bool {
	switch s {
	case MaterialActive, MaterialInactive, MaterialArchived:
		return true
	}
	return false
}

// Material is a raw material tracked through stock batches. Quantity and
// UnitPrice are derived from the active batches and only written by the ledger.
type Material struct {
	ID        uint            `gorm:"column:material_id;primaryKey" json:"material_id"`
	Name      string          `gorm:"column:material_name;size:150;not null;uniqueIndex" json:"material_name"`
	Unit      string          `gorm:"size:20;not null" json:"unit"` // kg, m, pcs...
	Category  string          `gorm:"size:60;index" json:"category"`
	Quantity  decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"unit_price"`
	Status    MaterialStatus  `gorm:"size:20;not null;index" json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Material) TableName() string { return "materials" }
