package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"workshop-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductionLine struct {
	MaterialID  uint
	Measurement decimal.Decimal // per produced unit
}

type ProductionInput struct {
	ProductID        uint
	Method           models.ProductionMethod
	ProviderName     string
	ProducedQuantity decimal.Decimal
	// CostOfProduction overrides the per-unit cost derived from material prices.
	CostOfProduction decimal.NullDecimal
	ProductionDate   time.Time
	Notes            string
	Materials        []ProductionLine
	CreatedBy        uint
}

func validateProduction(in ProductionInput) error {
	switch {
	case in.ProductID == 0:
		return ValidationError("product_id is required")
	case !in.ProducedQuantity.IsPositive():
		return ValidationError("produced_quantity must be greater than zero")
	case !fitsScale(in.ProducedQuantity):
		return ValidationErrorf("produced_quantity must have at most %d decimal places", PriceScale)
	case in.CostOfProduction.Valid && in.CostOfProduction.Decimal.IsNegative():
		return ValidationError("cost_of_production cannot be negative")
	}
	switch in.Method {
	case models.MethodScratch:
		if len(in.Materials) == 0 {
			return ValidationError("scratch production needs at least one material")
		}
	case models.MethodProvider:
		if !in.CostOfProduction.Valid {
			return ValidationError("provider production needs cost_of_production")
		}
		if len(in.Materials) > 0 {
			return ValidationError("provider production does not consume materials")
		}
	default:
		return ValidationErrorf("method must be %q or %q", models.MethodScratch, models.MethodProvider)
	}
	return nil
}

type plannedLine struct {
	line     ProductionLine
	material *models.Material
	required decimal.Decimal
	price    decimal.Decimal
}

// CreateProduction records a production run. Every material line is checked
// before anything is written and all violations are reported together; the
// run is rejected as a whole if any line fails. Materials are consumed
// through the FIFO engine.
func (l *Ledger) CreateProduction(ctx context.Context, in ProductionInput) (*models.ProductionRecord, error) {
	const op = "ledger.create_production"
	if err := validateProduction(in); err != nil {
		return nil, l.reject(op, err)
	}
	date := in.ProductionDate
	if date.IsZero() {
		date = l.now()
	}

	var rec *models.ProductionRecord
	err := l.write(ctx, op, func(tx *gorm.DB) error {
		var product models.Product
		err := forUpdate(tx).Where("product_id = ?", in.ProductID).First(&product).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFoundError("product", in.ProductID)
		}
		if err != nil {
			return err
		}

		planned, err := l.checkProductionLines(tx, in)
		if err != nil {
			return err
		}

		cost := in.CostOfProduction.Decimal
		if !in.CostOfProduction.Valid {
			cost = decimal.Zero
			for _, p := range planned {
				cost = cost.Add(p.price.Mul(p.line.Measurement))
			}
		}
		cost = cost.Round(PriceScale)

		rec = &models.ProductionRecord{
			ProductID:        product.ID,
			Method:           in.Method,
			ProviderName:     strings.TrimSpace(in.ProviderName),
			ProducedQuantity: in.ProducedQuantity,
			CostOfProduction: cost,
			TotalCost:        cost.Mul(in.ProducedQuantity).Round(PriceScale),
			ProductionDate:   date,
			Notes:            strings.TrimSpace(in.Notes),
			CreatedBy:        in.CreatedBy,
			CreatedAt:        l.now(),
		}
		if err := tx.Omit("Materials").Create(rec).Error; err != nil {
			return err
		}

		ref := fmt.Sprintf("production:%d", rec.ID)
		for _, p := range planned {
			if _, err := l.consumeLocked(tx, p.material, p.required, models.ReasonProduction, ref, ""); err != nil {
				return err
			}
			pm := models.ProductionMaterial{
				ProductionID:     rec.ID,
				MaterialID:       p.material.ID,
				Measurement:      p.line.Measurement,
				ConsumedQuantity: p.required,
				UnitPrice:        p.price,
			}
			if err := tx.Create(&pm).Error; err != nil {
				return err
			}
			rec.Materials = append(rec.Materials, pm)
		}

		return tx.Model(&models.Product{}).
			Where("product_id = ?", product.ID).
			Updates(map[string]any{
				"quantity":           product.Quantity.Add(in.ProducedQuantity),
				"cost_of_production": cost,
				"updated_at":         l.now(),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// checkProductionLines locks every referenced material in ascending id order
// and collects all violations before returning.
func (l *Ledger) checkProductionLines(tx *gorm.DB, in ProductionInput) ([]plannedLine, error) {
	lines := append([]ProductionLine(nil), in.Materials...)
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].MaterialID < lines[j].MaterialID })

	var (
		planned    []plannedLine
		violations []Violation
		short      bool
	)
	seen := map[uint]bool{}
	for _, line := range lines {
		required := line.Measurement.Mul(in.ProducedQuantity)
		if seen[line.MaterialID] {
			violations = append(violations, Violation{MaterialID: line.MaterialID, Reason: ReasonDuplicate, Requested: required})
			continue
		}
		seen[line.MaterialID] = true
		if !line.Measurement.IsPositive() {
			violations = append(violations, Violation{MaterialID: line.MaterialID, Reason: ReasonMeasurement, Requested: required})
			continue
		}
		if !fitsScale(line.Measurement) || !fitsScale(required) {
			violations = append(violations, Violation{MaterialID: line.MaterialID, Reason: ReasonPrecision, Requested: required})
			continue
		}

		m, err := lockMaterial(tx, line.MaterialID)
		if errors.Is(err, ErrNotFound) {
			violations = append(violations, Violation{MaterialID: line.MaterialID, Reason: ReasonNotFound, Requested: required})
			continue
		}
		if err != nil {
			return nil, err
		}
		if m.Status != models.MaterialActive {
			violations = append(violations, Violation{
				MaterialID:   m.ID,
				MaterialName: m.Name,
				Reason:       fmt.Sprintf("%s (%s)", ReasonNotActive, m.Status),
				Requested:    required,
				Available:    m.Quantity,
			})
			continue
		}

		batches, err := activeBatches(tx, m.ID, true)
		if err != nil {
			return nil, err
		}
		if available := sumRemaining(batches); available.LessThan(required) {
			short = true
			violations = append(violations, Violation{
				MaterialID:   m.ID,
				MaterialName: m.Name,
				Reason:       ReasonInsufficient,
				Requested:    required,
				Available:    available,
			})
			continue
		}
		planned = append(planned, plannedLine{line: line, material: m, required: required, price: m.UnitPrice})
	}

	if len(violations) > 0 {
		kind := ErrValidation
		if short {
			kind = ErrInsufficientStock
		}
		return nil, &Error{Kind: kind, Message: "production rejected", Violations: violations}
	}
	return planned, nil
}

type ProductInput struct {
	Name     string
	Category string
}

func (l *Ledger) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	const op = "ledger.create_product"
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, l.reject(op, ValidationError("product_name is required"))
	}
	p := &models.Product{
		Name:             name,
		Category:         strings.TrimSpace(in.Category),
		Quantity:         decimal.Zero,
		CostOfProduction: decimal.Zero,
	}
	err := l.write(ctx, op, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Product{}).Where("LOWER(product_name) = ?", strings.ToLower(name)).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ConflictError(fmt.Sprintf("product %q already exists", name), nil)
		}
		return tx.Create(p).Error
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (l *Ledger) ListProducts(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	err := l.read(ctx, "ledger.list_products", func(db *gorm.DB) error {
		return db.Order("product_name ASC").Find(&out).Error
	})
	return out, err
}

// ListProductions returns production runs newest first, optionally for one product.
func (l *Ledger) ListProductions(ctx context.Context, productID uint) ([]models.ProductionRecord, error) {
	var out []models.ProductionRecord
	err := l.read(ctx, "ledger.list_productions", func(db *gorm.DB) error {
		q := db.Preload("Materials")
		if productID != 0 {
			q = q.Where("product_id = ?", productID)
		}
		return q.Order("production_date DESC, production_id DESC").Find(&out).Error
	})
	return out, err
}
