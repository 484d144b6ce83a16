package ledger

import (
	"errors"

	"workshop-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// lockMaterial loads a material and holds its row lock until the transaction
// ends. Every writer of a material's batches takes this lock first.
func lockMaterial(tx *gorm.DB, id uint) (*models.Material, error) {
	var m models.Material
	err := forUpdate(tx).Where("material_id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFoundError("material", id)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// activeBatches returns the material's active batches oldest first.
func activeBatches(tx *gorm.DB, materialID uint, lock bool) ([]models.StockBatch, error) {
	q := tx
	if lock {
		q = forUpdate(tx)
	}
	var batches []models.StockBatch
	err := q.Where("material_id = ? AND batch_status = ?", materialID, models.BatchActive).
		Order("batch_number ASC").
		Find(&batches).Error
	return batches, err
}

func sumRemaining(batches []models.StockBatch) decimal.Decimal {
	total := decimal.Zero
	for _, b := range batches {
		if b.Status == models.BatchActive {
			total = total.Add(b.RemainingQuantity)
		}
	}
	return total
}
