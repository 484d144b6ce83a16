package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MovementDirection string

const (
	MovementIn  MovementDirection = "in"
	MovementOut MovementDirection = "out"
)

type MovementReason string

const (
	ReasonPurchase   MovementReason = "purchase"
	ReasonUse        MovementReason = "use"
	ReasonProduction MovementReason = "production"
)

// MaterialMovement records every quantity change applied to a batch.
type MaterialMovement struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	MaterialID uint              `gorm:"not null;index" json:"material_id"`
	StockID    uint              `gorm:"not null;index" json:"stock_id"`
	Direction  MovementDirection `gorm:"size:5;not null" json:"direction"`
	Quantity   decimal.Decimal   `gorm:"type:numeric(14,4);not null" json:"quantity"`
	UnitPrice  decimal.Decimal   `gorm:"type:numeric(14,4);not null" json:"unit_price"`
	Reason     MovementReason    `gorm:"size:20;not null;index" json:"reason"`
	Reference  string            `gorm:"size:100" json:"reference"`
	Note       string            `gorm:"size:255" json:"note"`
	CreatedAt  time.Time         `json:"created_at"`
}
