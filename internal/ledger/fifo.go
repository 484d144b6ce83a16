package ledger

import (
	"sort"

	"workshop-backend/internal/models"

	"github.com/shopspring/decimal"
)

// Draw is the quantity taken from one batch by a consumption.
type Draw struct {
	BatchID     uint            `json:"stock_id"`
	BatchNumber int             `json:"batch_number"`
	Taken       decimal.Decimal `json:"taken"`
	Remaining   decimal.Decimal `json:"remaining"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Exhausted   bool            `json:"exhausted"`
}

// PlanFIFO distributes qty over the active batches, lowest batch number
// first. It does not modify batches. A batch drawn down to exactly zero is
// marked exhausted.
func PlanFIFO(batches []models.StockBatch, qty decimal.Decimal) ([]Draw, error) {
	if !qty.IsPositive() {
		return nil, ValidationError("quantity must be greater than zero")
	}

	ordered := make([]models.StockBatch, 0, len(batches))
	for _, b := range batches {
		if b.Status == models.BatchActive && b.RemainingQuantity.IsPositive() {
			ordered = append(ordered, b)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].BatchNumber < ordered[j].BatchNumber
	})

	available := sumRemaining(ordered)
	if available.LessThan(qty) {
		return nil, InsufficientStockError(Violation{
			Reason:    ReasonInsufficient,
			Requested: qty,
			Available: available,
		})
	}

	left := qty
	draws := make([]Draw, 0, len(ordered))
	for _, b := range ordered {
		if !left.IsPositive() {
			break
		}
		take := decimal.Min(left, b.RemainingQuantity)
		remaining := b.RemainingQuantity.Sub(take)
		draws = append(draws, Draw{
			BatchID:     b.ID,
			BatchNumber: b.BatchNumber,
			Taken:       take,
			Remaining:   remaining,
			UnitPrice:   b.UnitPrice,
			Exhausted:   remaining.IsZero(),
		})
		left = left.Sub(take)
	}
	return draws, nil
}

// DrawCost is the purchase value of the drawn quantities.
func DrawCost(draws []Draw) decimal.Decimal {
	cost := decimal.Zero
	for _, d := range draws {
		cost = cost.Add(d.Taken.Mul(d.UnitPrice))
	}
	return cost.Round(PriceScale)
}
