package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BatchStatus string

const (
	BatchActive   BatchStatus = "active"
	BatchInactive BatchStatus = "inactive"
)

func (s BatchStatus) Valid() bool {
	return s == BatchActive || s == BatchInactive
}

// StockBatch is one purchase of a material. Only RemainingQuantity and Status
// change after creation.
type StockBatch struct {
	ID                uint            `gorm:"column:stock_id;primaryKey" json:"stock_id"`
	MaterialID        uint            `gorm:"not null;index;uniqueIndex:idx_material_batch_number,priority:1" json:"material_id"`
	InvoiceID         uint            `gorm:"not null;index" json:"invoice_id"`
	SupplierName      string          `gorm:"size:150;not null" json:"supplier_name"`
	Quantity          decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"quantity"`
	RemainingQuantity decimal.Decimal `gorm:"type:numeric(14,4);not null;check:chk_stock_remaining_nonneg,remaining_quantity >= 0" json:"remaining_quantity"`
	PriceBought       decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"price_bought"` // total paid for the batch
	UnitPrice         decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"unit_price"`
	BatchNumber       int             `gorm:"not null;uniqueIndex:idx_material_batch_number,priority:2" json:"batch_number"`
	Status            BatchStatus     `gorm:"column:batch_status;size:20;not null;index" json:"batch_status"`
	PurchaseDate      time.Time       `gorm:"not null" json:"purchase_date"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (StockBatch) TableName() string { return "material_stock_items" }
