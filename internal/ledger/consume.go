package ledger

import (
	"context"
	"strings"

	"workshop-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ConsumeInput struct {
	MaterialID uint
	Quantity   decimal.Decimal
	Reference  string
	Note       string
}

type ConsumptionResult struct {
	Material models.Material `json:"material"`
	Consumed decimal.Decimal `json:"consumed"`
	Cost     decimal.Decimal `json:"cost"` // FIFO purchase value of the consumed quantity
	Draws    []Draw          `json:"draws"`
}

// Consume takes quantity from the material's active batches, oldest first.
// When the active stock is smaller than the request nothing is written and
// an insufficient stock error is returned.
func (l *Ledger) Consume(ctx context.Context, in ConsumeInput) (*ConsumptionResult, error) {
	const op = "ledger.consume"
	if in.MaterialID == 0 {
		return nil, l.reject(op, ValidationError("material_id is required"))
	}
	if !in.Quantity.IsPositive() {
		return nil, l.reject(op, ValidationError("quantity must be greater than zero"))
	}
	if !fitsScale(in.Quantity) {
		return nil, l.reject(op, ValidationErrorf("quantity must have at most %d decimal places", PriceScale))
	}

	var res *ConsumptionResult
	err := l.write(ctx, op, func(tx *gorm.DB) error {
		m, err := lockMaterial(tx, in.MaterialID)
		if err != nil {
			return err
		}
		if m.Status != models.MaterialActive {
			return ValidationErrorf("material %q is %s and cannot be consumed", m.Name, m.Status)
		}
		res, err = l.consumeLocked(tx, m, in.Quantity, models.ReasonUse, in.Reference, in.Note)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// consumeLocked drains batches of a material whose row lock the caller holds.
func (l *Ledger) consumeLocked(tx *gorm.DB, m *models.Material, qty decimal.Decimal, reason models.MovementReason, ref, note string) (*ConsumptionResult, error) {
	batches, err := activeBatches(tx, m.ID, true)
	if err != nil {
		return nil, err
	}
	if available := sumRemaining(batches); available.LessThan(qty) {
		return nil, InsufficientStockError(Violation{
			MaterialID:   m.ID,
			MaterialName: m.Name,
			Reason:       ReasonInsufficient,
			Requested:    qty,
			Available:    available,
		})
	}

	draws, err := PlanFIFO(batches, qty)
	if err != nil {
		return nil, err
	}

	now := l.now()
	for _, d := range draws {
		updates := map[string]any{
			"remaining_quantity": d.Remaining,
			"updated_at":         now,
		}
		if d.Exhausted {
			updates["batch_status"] = models.BatchInactive
		}
		if err := tx.Model(&models.StockBatch{}).Where("stock_id = ?", d.BatchID).Updates(updates).Error; err != nil {
			return nil, err
		}
		mv := models.MaterialMovement{
			MaterialID: m.ID,
			StockID:    d.BatchID,
			Direction:  models.MovementOut,
			Quantity:   d.Taken,
			UnitPrice:  d.UnitPrice,
			Reason:     reason,
			Reference:  strings.TrimSpace(ref),
			Note:       strings.TrimSpace(note),
			CreatedAt:  now,
		}
		if err := tx.Create(&mv).Error; err != nil {
			return nil, err
		}
	}

	if err := l.recalculate(tx, m); err != nil {
		return nil, err
	}
	return &ConsumptionResult{
		Material: *m,
		Consumed: qty,
		Cost:     DrawCost(draws),
		Draws:    draws,
	}, nil
}
