package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"workshop-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BatchInput struct {
	MaterialID uint
	// InvoiceID appends the batch to an existing invoice; zero creates a new one.
	InvoiceID    uint
	SupplierName string
	Quantity     decimal.Decimal
	PriceBought  decimal.Decimal // total paid for the batch
	PurchaseDate time.Time
}

type PurchaseItem struct {
	MaterialID   uint
	SupplierName string // defaults to the purchase supplier
	Quantity     decimal.Decimal
	PriceBought  decimal.Decimal
}

type PurchaseInput struct {
	SupplierName string
	PurchaseDate time.Time
	Items        []PurchaseItem
}

func (l *Ledger) validateBatch(materialID uint, supplier string, qty, price decimal.Decimal) error {
	switch {
	case materialID == 0:
		return ValidationError("material_id is required")
	case strings.TrimSpace(supplier) == "":
		return ValidationError("supplier_name is required")
	case !qty.IsInteger():
		return ValidationError("quantity must be a whole number")
	case qty.LessThan(decimal.NewFromInt(1)) || qty.GreaterThan(decimal.NewFromInt(int64(l.maxBatch))):
		return ValidationErrorf("quantity must be between 1 and %d", l.maxBatch)
	case price.IsNegative():
		return ValidationError("price_bought cannot be negative")
	case !fitsScale(price):
		return ValidationErrorf("price_bought must have at most %d decimal places", PriceScale)
	}
	return nil
}

// CreateBatch records one purchased batch and recomputes the material.
func (l *Ledger) CreateBatch(ctx context.Context, in BatchInput) (*models.StockBatch, error) {
	const op = "ledger.create_batch"
	if err := l.validateBatch(in.MaterialID, in.SupplierName, in.Quantity, in.PriceBought); err != nil {
		return nil, l.reject(op, err)
	}
	date := in.PurchaseDate
	if date.IsZero() {
		date = l.now()
	}

	var batch *models.StockBatch
	err := l.write(ctx, op, func(tx *gorm.DB) error {
		var inv *models.StockInvoice
		if in.InvoiceID != 0 {
			var existing models.StockInvoice
			err := forUpdate(tx).Where("id = ?", in.InvoiceID).First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError("invoice", in.InvoiceID)
			}
			if err != nil {
				return err
			}
			inv = &existing
		}

		m, err := lockMaterial(tx, in.MaterialID)
		if err != nil {
			return err
		}
		if m.Status == models.MaterialArchived {
			return ValidationErrorf("material %q is archived", m.Name)
		}

		if inv == nil {
			if inv, err = l.newInvoice(tx, in.SupplierName, date); err != nil {
				return err
			}
		}
		batch, err = l.insertBatch(tx, m, inv.ID, in.SupplierName, in.Quantity, in.PriceBought, date)
		if err != nil {
			return err
		}
		if err := addInvoiceCost(tx, inv, in.PriceBought); err != nil {
			return err
		}
		return l.recalculate(tx, m)
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// AddStock records a purchase of several lines under one invoice.
func (l *Ledger) AddStock(ctx context.Context, in PurchaseInput) (*models.StockInvoice, error) {
	const op = "ledger.add_stock"
	if len(in.Items) == 0 {
		return nil, l.reject(op, ValidationError("at least one item is required"))
	}
	for i, it := range in.Items {
		supplier := it.SupplierName
		if strings.TrimSpace(supplier) == "" {
			supplier = in.SupplierName
		}
		if err := l.validateBatch(it.MaterialID, supplier, it.Quantity, it.PriceBought); err != nil {
			return nil, l.reject(op, ValidationErrorf("item %d: %s", i+1, messageOf(err)))
		}
	}
	date := in.PurchaseDate
	if date.IsZero() {
		date = l.now()
	}

	var inv *models.StockInvoice
	err := l.write(ctx, op, func(tx *gorm.DB) error {
		// lock in ascending id order so concurrent purchases cannot deadlock
		ids := make([]uint, 0, len(in.Items))
		seen := map[uint]bool{}
		for _, it := range in.Items {
			if !seen[it.MaterialID] {
				seen[it.MaterialID] = true
				ids = append(ids, it.MaterialID)
			}
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		locked := make(map[uint]*models.Material, len(ids))
		for _, id := range ids {
			m, err := lockMaterial(tx, id)
			if err != nil {
				return err
			}
			if m.Status == models.MaterialArchived {
				return ValidationErrorf("material %q is archived", m.Name)
			}
			locked[id] = m
		}

		var err error
		if inv, err = l.newInvoice(tx, in.SupplierName, date); err != nil {
			return err
		}
		total := decimal.Zero
		for _, it := range in.Items {
			supplier := it.SupplierName
			if strings.TrimSpace(supplier) == "" {
				supplier = in.SupplierName
			}
			b, err := l.insertBatch(tx, locked[it.MaterialID], inv.ID, supplier, it.Quantity, it.PriceBought, date)
			if err != nil {
				return err
			}
			inv.Batches = append(inv.Batches, *b)
			total = total.Add(it.PriceBought)
		}
		if err := addInvoiceCost(tx, inv, total); err != nil {
			return err
		}
		for _, id := range ids {
			if err := l.recalculate(tx, locked[id]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (l *Ledger) newInvoice(tx *gorm.DB, supplier string, date time.Time) (*models.StockInvoice, error) {
	inv := &models.StockInvoice{
		InvoiceNumber: invoiceNumber(date),
		SupplierName:  strings.TrimSpace(supplier),
		PurchaseDate:  date,
		TotalCost:     decimal.Zero,
		CreatedAt:     l.now(),
	}
	if err := tx.Create(inv).Error; err != nil {
		return nil, err
	}
	return inv, nil
}

func invoiceNumber(date time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("INV-%s-%s", date.Format("20060102"), suffix)
}

func addInvoiceCost(tx *gorm.DB, inv *models.StockInvoice, amount decimal.Decimal) error {
	inv.TotalCost = inv.TotalCost.Add(amount)
	return tx.Model(&models.StockInvoice{}).
		Where("id = ?", inv.ID).
		Update("total_cost", inv.TotalCost).Error
}

// insertBatch numbers and stores a new active batch. The caller must hold
// the material lock so numbering cannot race.
func (l *Ledger) insertBatch(tx *gorm.DB, m *models.Material, invoiceID uint, supplier string, qty, price decimal.Decimal, date time.Time) (*models.StockBatch, error) {
	var last int
	err := tx.Model(&models.StockBatch{}).
		Where("material_id = ?", m.ID).
		Select("COALESCE(MAX(batch_number), 0)").
		Scan(&last).Error
	if err != nil {
		return nil, err
	}

	now := l.now()
	b := &models.StockBatch{
		MaterialID:        m.ID,
		InvoiceID:         invoiceID,
		SupplierName:      strings.TrimSpace(supplier),
		Quantity:          qty,
		RemainingQuantity: qty,
		PriceBought:       price,
		UnitPrice:         price.DivRound(qty, PriceScale),
		BatchNumber:       last + 1,
		Status:            models.BatchActive,
		PurchaseDate:      date,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := tx.Create(b).Error; err != nil {
		return nil, err
	}

	mv := models.MaterialMovement{
		MaterialID: m.ID,
		StockID:    b.ID,
		Direction:  models.MovementIn,
		Quantity:   qty,
		UnitPrice:  b.UnitPrice,
		Reason:     models.ReasonPurchase,
		Reference:  fmt.Sprintf("invoice:%d", invoiceID),
		CreatedAt:  now,
	}
	if err := tx.Create(&mv).Error; err != nil {
		return nil, err
	}
	return b, nil
}

// SetBatchStatus activates or deactivates a batch. Exhausted batches cannot
// be activated. In exclusive mode activating a batch deactivates the others.
func (l *Ledger) SetBatchStatus(ctx context.Context, batchID uint, status models.BatchStatus) (*models.StockBatch, error) {
	const op = "ledger.set_batch_status"
	if !status.Valid() {
		return nil, l.reject(op, ValidationErrorf("invalid batch status %q", status))
	}

	var batch models.StockBatch
	err := l.write(ctx, op, func(tx *gorm.DB) error {
		var probe models.StockBatch
		err := tx.Select("stock_id", "material_id").Where("stock_id = ?", batchID).First(&probe).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFoundError("batch", batchID)
		}
		if err != nil {
			return err
		}

		m, err := lockMaterial(tx, probe.MaterialID)
		if err != nil {
			return err
		}
		if err := forUpdate(tx).Where("stock_id = ?", batchID).First(&batch).Error; err != nil {
			return err
		}
		if status == models.BatchActive && !batch.RemainingQuantity.IsPositive() {
			return ValidationErrorf("batch %d is exhausted and cannot be activated", batch.BatchNumber)
		}

		now := l.now()
		if status == models.BatchActive && l.exclusive {
			err := tx.Model(&models.StockBatch{}).
				Where("material_id = ? AND stock_id <> ? AND batch_status = ?", m.ID, batch.ID, models.BatchActive).
				Updates(map[string]any{"batch_status": models.BatchInactive, "updated_at": now}).Error
			if err != nil {
				return err
			}
		}
		if batch.Status != status {
			err := tx.Model(&models.StockBatch{}).
				Where("stock_id = ?", batch.ID).
				Updates(map[string]any{"batch_status": status, "updated_at": now}).Error
			if err != nil {
				return err
			}
			batch.Status = status
			batch.UpdatedAt = now
		}
		return l.recalculate(tx, m)
	})
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func messageOf(err error) string {
	var le *Error
	if errors.As(err, &le) {
		return le.Message
	}
	return err.Error()
}
