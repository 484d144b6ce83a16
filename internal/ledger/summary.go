package ledger

import (
	"context"
	"sort"
	"time"

	"workshop-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaterialFlow totals the movements of one material over a period.
type MaterialFlow struct {
	MaterialID   uint            `json:"material_id"`
	MaterialName string          `json:"material_name"`
	Unit         string          `json:"unit"`
	In           decimal.Decimal `json:"in"`
	Out          decimal.Decimal `json:"out"`
	InCost       decimal.Decimal `json:"in_cost"`
	OutCost      decimal.Decimal `json:"out_cost"`
}

type DailyFlow struct {
	Date    string          `json:"date"`
	InCost  decimal.Decimal `json:"in_cost"`
	OutCost decimal.Decimal `json:"out_cost"`
}

type StockSummary struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	InCost    decimal.Decimal `json:"in_cost"`  // purchases
	OutCost   decimal.Decimal `json:"out_cost"` // use and production
	Materials []MaterialFlow  `json:"materials"`
	Daily     []DailyFlow     `json:"daily"`
	// StockValue is the value of all active batches right now.
	StockValue decimal.Decimal `json:"stock_value"`
}

// Summary aggregates movements between from and to, both inclusive days.
func (l *Ledger) Summary(ctx context.Context, from, to time.Time) (*StockSummary, error) {
	const op = "ledger.summary"
	from = truncateDay(from)
	to = truncateDay(to)
	if to.Before(from) {
		return nil, l.reject(op, ValidationError("to must not be before from"))
	}

	out := &StockSummary{
		From:       from.Format("2006-01-02"),
		To:         to.Format("2006-01-02"),
		InCost:     decimal.Zero,
		OutCost:    decimal.Zero,
		StockValue: decimal.Zero,
	}
	err := l.read(ctx, op, func(db *gorm.DB) error {
		var moves []models.MaterialMovement
		err := db.Where("created_at >= ? AND created_at < ?", from, to.AddDate(0, 0, 1)).
			Order("created_at ASC, id ASC").
			Find(&moves).Error
		if err != nil {
			return err
		}

		flows := map[uint]*MaterialFlow{}
		days := map[string]*DailyFlow{}
		for _, mv := range moves {
			f, ok := flows[mv.MaterialID]
			if !ok {
				f = &MaterialFlow{MaterialID: mv.MaterialID, In: decimal.Zero, Out: decimal.Zero, InCost: decimal.Zero, OutCost: decimal.Zero}
				flows[mv.MaterialID] = f
			}
			key := mv.CreatedAt.UTC().Format("2006-01-02")
			d, ok := days[key]
			if !ok {
				d = &DailyFlow{Date: key, InCost: decimal.Zero, OutCost: decimal.Zero}
				days[key] = d
			}

			cost := mv.Quantity.Mul(mv.UnitPrice).Round(PriceScale)
			if mv.Direction == models.MovementIn {
				f.In = f.In.Add(mv.Quantity)
				f.InCost = f.InCost.Add(cost)
				d.InCost = d.InCost.Add(cost)
				out.InCost = out.InCost.Add(cost)
			} else {
				f.Out = f.Out.Add(mv.Quantity)
				f.OutCost = f.OutCost.Add(cost)
				d.OutCost = d.OutCost.Add(cost)
				out.OutCost = out.OutCost.Add(cost)
			}
		}

		if len(flows) > 0 {
			ids := make([]uint, 0, len(flows))
			for id := range flows {
				ids = append(ids, id)
			}
			var mats []models.Material
			if err := db.Where("material_id IN ?", ids).Find(&mats).Error; err != nil {
				return err
			}
			for _, m := range mats {
				flows[m.ID].MaterialName = m.Name
				flows[m.ID].Unit = m.Unit
			}
		}

		out.Materials = make([]MaterialFlow, 0, len(flows))
		for _, f := range flows {
			out.Materials = append(out.Materials, *f)
		}
		sort.Slice(out.Materials, func(i, j int) bool {
			return out.Materials[i].MaterialName < out.Materials[j].MaterialName
		})
		out.Daily = make([]DailyFlow, 0, len(days))
		for _, d := range days {
			out.Daily = append(out.Daily, *d)
		}
		sort.Slice(out.Daily, func(i, j int) bool { return out.Daily[i].Date < out.Daily[j].Date })

		var active []models.StockBatch
		if err := db.Where("batch_status = ?", models.BatchActive).Find(&active).Error; err != nil {
			return err
		}
		for _, b := range active {
			out.StockValue = out.StockValue.Add(b.RemainingQuantity.Mul(b.UnitPrice))
		}
		out.StockValue = out.StockValue.Round(PriceScale)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
