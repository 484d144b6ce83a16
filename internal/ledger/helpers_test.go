package ledger

import (
	"context"
	"testing"
	"time"

	"workshop-backend/internal/models"
	"workshop-backend/internal/testutil"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func newTestLedger(t *testing.T, opts Options) (*Ledger, *gorm.DB) {
	t.Helper()
	db := testutil.SQLite(t)
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return testNow }
	}
	return New(db, opts), db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s = %s, want %s", label, got.String(), want)
	}
}

func mustMaterial(t *testing.T, l *Ledger, name string) *models.Material {
	t.Helper()
	m, err := l.CreateMaterial(context.Background(), MaterialInput{Name: name, Unit: "m", Category: "fabric"})
	if err != nil {
		t.Fatalf("CreateMaterial(%s): %v", name, err)
	}
	return m
}

func mustBatch(t *testing.T, l *Ledger, materialID uint, qty, price string) *models.StockBatch {
	t.Helper()
	b, err := l.CreateBatch(context.Background(), BatchInput{
		MaterialID:   materialID,
		SupplierName: "Mill & Co",
		Quantity:     dec(qty),
		PriceBought:  dec(price),
	})
	if err != nil {
		t.Fatalf("CreateBatch(%d, %s, %s): %v", materialID, qty, price, err)
	}
	return b
}

func loadMaterial(t *testing.T, db *gorm.DB, id uint) models.Material {
	t.Helper()
	var m models.Material
	if err := db.Where("material_id = ?", id).First(&m).Error; err != nil {
		t.Fatalf("load material %d: %v", id, err)
	}
	return m
}

func loadBatches(t *testing.T, db *gorm.DB, materialID uint) []models.StockBatch {
	t.Helper()
	var out []models.StockBatch
	if err := db.Where("material_id = ?", materialID).Order("batch_number ASC").Find(&out).Error; err != nil {
		t.Fatalf("load batches %d: %v", materialID, err)
	}
	return out
}

// assertAggregates checks the stored material against its batches.
func assertAggregates(t *testing.T, db *gorm.DB, materialID uint) {
	t.Helper()
	m := loadMaterial(t, db, materialID)
	want := ComputeAggregate(loadBatches(t, db, materialID))
	if !m.Quantity.Equal(want.Quantity) {
		t.Fatalf("material %d quantity = %s, batches sum to %s", materialID, m.Quantity, want.Quantity)
	}
	if !m.UnitPrice.Equal(want.UnitPrice) {
		t.Fatalf("material %d unit_price = %s, weighted average is %s", materialID, m.UnitPrice, want.UnitPrice)
	}
}

type spyHooks struct {
	ops       []string
	rejected  []string
	durations int
}

func (s *spyHooks) ObserveOperation(name, status string, dur time.Duration) {
	s.ops = append(s.ops, name+":"+status)
	s.durations++
}

func (s *spyHooks) IncRejected(name, code string) {
	s.rejected = append(s.rejected, name+":"+code)
}
