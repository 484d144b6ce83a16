package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductionMethod string

const (
	MethodScratch  ProductionMethod = "scratch"
	MethodProvider ProductionMethod = "provider"
)

// ProductionRecord: one production run of a product.
type ProductionRecord struct {
	ID               uint             `gorm:"column:production_id;primaryKey" json:"production_id"`
	ProductID        uint             `gorm:"not null;index" json:"product_id"`
	Method           ProductionMethod `gorm:"size:20;not null" json:"method"`
	ProviderName     string           `gorm:"size:150" json:"provider_name"`
	ProducedQuantity decimal.Decimal  `gorm:"type:numeric(14,4);not null" json:"produced_quantity"`
	CostOfProduction decimal.Decimal  `gorm:"type:numeric(14,4);not null" json:"cost_of_production"` // per unit
	TotalCost        decimal.Decimal  `gorm:"type:numeric(14,4);not null" json:"total_cost"`
	ProductionDate   time.Time        `gorm:"not null;index" json:"production_date"`
	Notes            string           `gorm:"size:255" json:"notes"`
	CreatedBy        uint             `json:"created_by"`
	CreatedAt        time.Time        `json:"created_at"`

	Materials []ProductionMaterial `gorm:"foreignKey:ProductionID;references:ID" json:"materials,omitempty"`
}

func (ProductionRecord) TableName() string { return "production" }

// ProductionMaterial: material drawn by a production run. Measurement is per
// produced unit, ConsumedQuantity is the total taken from stock.
type ProductionMaterial struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	ProductionID     uint            `gorm:"not null;index" json:"production_id"`
	MaterialID       uint            `gorm:"not null;index" json:"material_id"`
	Measurement      decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"measurement"`
	ConsumedQuantity decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"consumed_quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"unit_price"`
}
