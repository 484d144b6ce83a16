package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockInvoice groups the batches bought in one purchase.
type StockInvoice struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	InvoiceNumber string          `gorm:"size:40;not null;uniqueIndex" json:"invoice_number"`
	SupplierName  string          `gorm:"size:150" json:"supplier_name"`
	PurchaseDate  time.Time       `gorm:"not null;index" json:"purchase_date"`
	TotalCost     decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"total_cost"`
	CreatedAt     time.Time       `json:"created_at"`

	Batches []StockBatch `gorm:"foreignKey:InvoiceID" json:"batches,omitempty"`
}

func (StockInvoice) TableName() string { return "material_stock" }
