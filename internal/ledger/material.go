package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"workshop-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MaterialInput struct {
	Name     string
	Unit     string
	Category string
}

// CreateMaterial adds a material with zero stock and zero price.
func (l *Ledger) CreateMaterial(ctx context.Context, in MaterialInput) (*models.Material, error) {
	const op = "ledger.create_material"
	name := strings.TrimSpace(in.Name)
	unit := strings.TrimSpace(in.Unit)
	switch {
	case name == "":
		return nil, l.reject(op, ValidationError("material_name is required"))
	case unit == "":
		return nil, l.reject(op, ValidationError("unit is required"))
	}

	m := &models.Material{
		Name:      name,
		Unit:      unit,
		Category:  strings.TrimSpace(in.Category),
		Quantity:  decimal.Zero,
		UnitPrice: decimal.Zero,
		Status:    models.MaterialActive,
	}
	err := l.write(ctx, op, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Material{}).Where("LOWER(material_name) = ?", strings.ToLower(name)).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ConflictError(fmt.Sprintf("material %q already exists", name), nil)
		}
		return tx.Create(m).Error
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

type MaterialFilter struct {
	// Status is a material status, "all", or empty for everything but archived.
	Status   string
	Search   string
	Category string
	Unit     string
	// Quantity is "in_stock", "out_of_stock", or a number N for quantity <= N.
	Quantity string
}

func (l *Ledger) ListMaterials(ctx context.Context, f MaterialFilter) ([]models.Material, error) {
	const op = "ledger.list_materials"
	var out []models.Material
	err := l.read(ctx, op, func(db *gorm.DB) error {
		q := db.Model(&models.Material{})

		switch status := strings.TrimSpace(strings.ToLower(f.Status)); {
		case status == "":
			q = q.Where("status <> ?", models.MaterialArchived)
		case status == "all":
		case models.MaterialStatus(status).Valid():
			q = q.Where("status = ?", status)
		default:
			return ValidationErrorf("invalid status filter %q", f.Status)
		}

		if s := strings.TrimSpace(strings.ToLower(f.Search)); s != "" {
			like := "%" + s + "%"
			q = q.Where("LOWER(material_name) LIKE ? OR LOWER(category) LIKE ?", like, like)
		}
		if c := strings.TrimSpace(f.Category); c != "" {
			q = q.Where("category = ?", c)
		}
		if u := strings.TrimSpace(f.Unit); u != "" {
			q = q.Where("unit = ?", u)
		}

		switch qty := strings.TrimSpace(strings.ToLower(f.Quantity)); qty {
		case "":
		case "in_stock":
			q = q.Where("quantity > 0")
		case "out_of_stock":
			q = q.Where("quantity = 0")
		default:
			limit, err := decimal.NewFromString(qty)
			if err != nil {
				return ValidationErrorf("invalid quantity filter %q", f.Quantity)
			}
			q = q.Where("quantity <= ?", limit)
		}

		return q.Order("material_name ASC").Find(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type MaterialDetail struct {
	models.Material
	Batches []models.StockBatch `json:"batches"`
}

func (l *Ledger) GetMaterial(ctx context.Context, id uint) (*MaterialDetail, error) {
	var d MaterialDetail
	err := l.read(ctx, "ledger.get_material", func(db *gorm.DB) error {
		err := db.Where("material_id = ?", id).First(&d.Material).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFoundError("material", id)
		}
		if err != nil {
			return err
		}
		return db.Where("material_id = ?", id).Order("batch_number ASC").Find(&d.Batches).Error
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// SetMaterialStatus moves a material through its lifecycle. Materials are
// never deleted.
func (l *Ledger) SetMaterialStatus(ctx context.Context, id uint, status models.MaterialStatus) (*models.Material, error) {
	const op = "ledger.set_material_status"
	if !status.Valid() {
		return nil, l.reject(op, ValidationErrorf("invalid material status %q", status))
	}
	var m *models.Material
	err := l.write(ctx, op, func(tx *gorm.DB) error {
		var err error
		if m, err = lockMaterial(tx, id); err != nil {
			return err
		}
		now := l.now()
		err = tx.Model(&models.Material{}).
			Where("material_id = ?", id).
			Updates(map[string]any{"status": status, "updated_at": now}).Error
		if err != nil {
			return err
		}
		m.Status = status
		m.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListBatches returns a material's batches by batch number; status filters when set.
func (l *Ledger) ListBatches(ctx context.Context, materialID uint, status string) ([]models.StockBatch, error) {
	const op = "ledger.list_batches"
	var out []models.StockBatch
	err := l.read(ctx, op, func(db *gorm.DB) error {
		var count int64
		if err := db.Model(&models.Material{}).Where("material_id = ?", materialID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return NotFoundError("material", materialID)
		}
		q := db.Where("material_id = ?", materialID)
		if status != "" {
			if !models.BatchStatus(status).Valid() {
				return ValidationErrorf("invalid batch status %q", status)
			}
			q = q.Where("batch_status = ?", status)
		}
		return q.Order("batch_number ASC").Find(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Ledger) ListInvoices(ctx context.Context) ([]models.StockInvoice, error) {
	var out []models.StockInvoice
	err := l.read(ctx, "ledger.list_invoices", func(db *gorm.DB) error {
		return db.Preload("Batches", func(db *gorm.DB) *gorm.DB {
			return db.Order("material_id ASC, batch_number ASC")
		}).Order("purchase_date DESC, id DESC").Find(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Ledger) ListMovements(ctx context.Context, materialID uint, limit int) ([]models.MaterialMovement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []models.MaterialMovement
	err := l.read(ctx, "ledger.list_movements", func(db *gorm.DB) error {
		var count int64
		if err := db.Model(&models.Material{}).Where("material_id = ?", materialID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return NotFoundError("material", materialID)
		}
		return db.Where("material_id = ?", materialID).
			Order("created_at DESC, id DESC").
			Limit(limit).
			Find(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
