package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID               uint            `gorm:"column:product_id;primaryKey" json:"product_id"`
	Name             string          `gorm:"column:product_name;size:150;not null;uniqueIndex" json:"product_name"`
	Category         string          `gorm:"size:60;index" json:"category"`
	Quantity         decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"quantity"`
	CostOfProduction decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"cost_of_production"` // per unit, from the latest production run
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (Product) TableName() string { return "products" }
