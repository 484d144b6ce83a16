package ledger

import (
	"testing"

	"workshop-backend/internal/models"
)

func batch(number int, remaining, unitPrice string, status models.BatchStatus) models.StockBatch {
	return models.StockBatch{
		ID:                uint(number),
		BatchNumber:       number,
		Quantity:          dec(remaining),
		RemainingQuantity: dec(remaining),
		UnitPrice:         dec(unitPrice),
		Status:            status,
	}
}

func TestComputeAggregateWeightedAverage(t *testing.T) {
	agg := ComputeAggregate([]models.StockBatch{
		batch(1, "100", "5", models.BatchActive),
		batch(2, "50", "6", models.BatchActive),
	})
	assertDecimal(t, "quantity", agg.Quantity, "150")
	assertDecimal(t, "unit_price", agg.UnitPrice, "5.3333")
}

func TestComputeAggregateIgnoresInactiveBatches(t *testing.T) {
	agg := ComputeAggregate([]models.StockBatch{
		batch(1, "100", "5", models.BatchInactive),
		batch(2, "30", "6", models.BatchActive),
	})
	assertDecimal(t, "quantity", agg.Quantity, "30")
	assertDecimal(t, "unit_price", agg.UnitPrice, "6")
}

func TestComputeAggregateWithoutActiveStock(t *testing.T) {
	for name, batches := range map[string][]models.StockBatch{
		"none":      nil,
		"inactive":  {batch(1, "10", "2", models.BatchInactive)},
		"exhausted": {batch(1, "0", "2", models.BatchActive)},
	} {
		t.Run(name, func(t *testing.T) {
			agg := ComputeAggregate(batches)
			assertDecimal(t, "quantity", agg.Quantity, "0")
			assertDecimal(t, "unit_price", agg.UnitPrice, "0")
		})
	}
}
