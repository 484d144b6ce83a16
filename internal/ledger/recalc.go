package ledger

import (
	"workshop-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceScale is the number of decimal places kept for unit prices.
const PriceScale = 4

// fitsScale reports whether d survives storage in a numeric(14,4) column unchanged.
func fitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(PriceScale))
}

type Aggregate struct {
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ComputeAggregate derives a material's quantity and weighted-average unit
// price from its batches. Inactive batches are ignored; with no active stock
// both values are zero.
func ComputeAggregate(batches []models.StockBatch) Aggregate {
	qty, value := decimal.Zero, decimal.Zero
	for _, b := range batches {
		if b.Status != models.BatchActive {
			continue
		}
		qty = qty.Add(b.RemainingQuantity)
		value = value.Add(b.RemainingQuantity.Mul(b.UnitPrice))
	}
	if !qty.IsPositive() {
		return Aggregate{Quantity: decimal.Zero, UnitPrice: decimal.Zero}
	}
	return Aggregate{Quantity: qty, UnitPrice: value.DivRound(qty, PriceScale)}
}

// recalculate rewrites the material aggregates from its active batches. The
// caller must hold the material lock.
func (l *Ledger) recalculate(tx *gorm.DB, m *models.Material) error {
	batches, err := activeBatches(tx, m.ID, false)
	if err != nil {
		return err
	}
	agg := ComputeAggregate(batches)
	now := l.now()
	err = tx.Model(&models.Material{}).
		Where("material_id = ?", m.ID).
		Updates(map[string]any{
			"quantity":   agg.Quantity,
			"unit_price": agg.UnitPrice,
			"updated_at": now,
		}).Error
	if err != nil {
		return err
	}
	m.Quantity = agg.Quantity
	m.UnitPrice = agg.UnitPrice
	m.UpdatedAt = now
	return nil
}
