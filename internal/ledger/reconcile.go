package ledger

import (
	"context"

	"workshop-backend/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Drift is a material whose stored aggregates disagree with its batches.
type Drift struct {
	MaterialID        uint            `json:"material_id"`
	MaterialName      string          `json:"material_name"`
	StoredQuantity    decimal.Decimal `json:"stored_quantity"`
	ExpectedQuantity  decimal.Decimal `json:"expected_quantity"`
	StoredUnitPrice   decimal.Decimal `json:"stored_unit_price"`
	ExpectedUnitPrice decimal.Decimal `json:"expected_unit_price"`
	// GhostBatches are active batches with nothing left.
	GhostBatches []uint `json:"ghost_batches,omitempty"`
	Repaired     bool   `json:"repaired"`
}

// Reconcile compares every material with its active batches. With repair it
// deactivates exhausted active batches and rewrites the aggregates.
func (l *Ledger) Reconcile(ctx context.Context, repair bool) ([]Drift, error) {
	var ids []uint
	err := l.read(ctx, "ledger.reconcile.scan", func(db *gorm.DB) error {
		return db.Model(&models.Material{}).Order("material_id ASC").Pluck("material_id", &ids).Error
	})
	if err != nil {
		return nil, err
	}

	var drifts []Drift
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return drifts, MapError("ledger.reconcile", err)
		}
		d, err := l.reconcileOne(ctx, id, repair)
		if err != nil {
			return drifts, err
		}
		if d != nil {
			drifts = append(drifts, *d)
		}
	}
	if len(drifts) > 0 {
		l.log.Warn("ledger drift detected", zap.Int("materials", len(drifts)), zap.Bool("repair", repair))
	}
	return drifts, nil
}

func (l *Ledger) reconcileOne(ctx context.Context, id uint, repair bool) (*Drift, error) {
	var drift *Drift
	err := l.write(ctx, "ledger.reconcile", func(tx *gorm.DB) error {
		m, err := lockMaterial(tx, id)
		if err != nil {
			return err
		}
		batches, err := activeBatches(tx, id, true)
		if err != nil {
			return err
		}

		var ghosts []uint
		for _, b := range batches {
			if !b.RemainingQuantity.IsPositive() {
				ghosts = append(ghosts, b.ID)
			}
		}
		agg := ComputeAggregate(batches)
		if agg.Quantity.Equal(m.Quantity) && agg.UnitPrice.Equal(m.UnitPrice) && len(ghosts) == 0 {
			return nil
		}

		drift = &Drift{
			MaterialID:        m.ID,
			MaterialName:      m.Name,
			StoredQuantity:    m.Quantity,
			ExpectedQuantity:  agg.Quantity,
			StoredUnitPrice:   m.UnitPrice,
			ExpectedUnitPrice: agg.UnitPrice,
			GhostBatches:      ghosts,
		}
		if !repair {
			return nil
		}
		if len(ghosts) > 0 {
			err := tx.Model(&models.StockBatch{}).
				Where("stock_id IN ?", ghosts).
				Updates(map[string]any{"batch_status": models.BatchInactive, "updated_at": l.now()}).Error
			if err != nil {
				return err
			}
		}
		if err := l.recalculate(tx, m); err != nil {
			return err
		}
		drift.Repaired = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drift, nil
}
