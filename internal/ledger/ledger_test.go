package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"workshop-backend/internal/models"
)

func TestCottonScenario(t *testing.T) {
	l, db := newTestLedger(t, Options{ExclusiveActivation: true})
	ctx := context.Background()
	cotton := mustMaterial(t, l, "Cotton")

	a := mustBatch(t, l, cotton.ID, "100", "500")
	m := loadMaterial(t, db, cotton.ID)
	assertDecimal(t, "quantity after A", m.Quantity, "100")
	assertDecimal(t, "unit_price after A", m.UnitPrice, "5")

	b := mustBatch(t, l, cotton.ID, "50", "300")
	m = loadMaterial(t, db, cotton.ID)
	assertDecimal(t, "quantity after B", m.Quantity, "150")
	assertDecimal(t, "unit_price after B", m.UnitPrice, "5.3333")
	if a.BatchNumber != 1 || b.BatchNumber != 2 {
		t.Fatalf("batch numbers = %d,%d, want 1,2", a.BatchNumber, b.BatchNumber)
	}

	res, err := l.Consume(ctx, ConsumeInput{MaterialID: cotton.ID, Quantity: dec("120")})
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	assertDecimal(t, "result quantity", res.Material.Quantity, "30")
	assertDecimal(t, "result unit_price", res.Material.UnitPrice, "6")
	assertDecimal(t, "fifo cost", res.Cost, "620")

	batches := loadBatches(t, db, cotton.ID)
	if batches[0].Status != models.BatchInactive || !batches[0].RemainingQuantity.IsZero() {
		t.Fatalf("batch A = %s/%s, want 0/inactive", batches[0].RemainingQuantity, batches[0].Status)
	}
	if batches[1].Status != models.BatchActive {
		t.Fatalf("batch B status = %s, want active", batches[1].Status)
	}
	assertDecimal(t, "batch B remaining", batches[1].RemainingQuantity, "30")

	m = loadMaterial(t, db, cotton.ID)
	assertDecimal(t, "quantity", m.Quantity, "30")
	assertDecimal(t, "unit_price", m.UnitPrice, "6")
}

func TestConsumeSpansBatches(t *testing.T) {
	l, db := newTestLedger(t, Options{})
	m := mustMaterial(t, l, "Thread")
	mustBatch(t, l, m.ID, "5", "10")
	mustBatch(t, l, m.ID, "5", "15")

	if _, err := l.Consume(context.Background(), ConsumeInput{MaterialID: m.ID, Quantity: dec("7")}); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	batches := loadBatches(t, db, m.ID)
	assertDecimal(t, "B1 remaining", batches[0].RemainingQuantity, "0")
	if batches[0].Status != models.BatchInactive {
		t.Fatalf("B1 should be inactive")
	}
	assertDecimal(t, "B2 remaining", batches[1].RemainingQuantity, "3")
	if batches[1].Status != models.BatchActive {
		t.Fatalf("B2 should stay active")
	}
	assertAggregates(t, db, m.ID)
}

func TestConsumeExactExhaustion(t *testing.T) {
	l, db := newTestLedger(t, Options{})
	m := mustMaterial(t, l, "Buttons")
	mustBatch(t, l, m.ID, "4", "8")
	mustBatch(t, l, m.ID, "6", "18")

	if _, err := l.Consume(context.Background(), ConsumeInput{MaterialID: m.ID, Quantity: dec("10")}); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	for _, b := range loadBatches(t, db, m.ID) {
		if b.Status != models.BatchInactive {
			t.Fatalf("batch %d still active", b.BatchNumber)
		}
	}
	got := loadMaterial(t, db, m.ID)
	assertDecimal(t, "quantity", got.Quantity, "0")
	assertDecimal(t, "unit_price", got.UnitPrice, "0")
}

func TestConsumeInsufficientStockWritesNothing(t *testing.T) {
	l, db := newTestLedger(t, Options{})
	m := mustMaterial(t, l, "Zipper")
	mustBatch(t, l, m.ID, "3", "9")
	mustBatch(t, l, m.ID, "2", "8")
	before := loadBatches(t, db, m.ID)
	beforeMaterial := loadMaterial(t, db, m.ID)

	_, err := l.Consume(context.Background(), ConsumeInput{MaterialID: m.ID, Quantity: dec("6")})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	v := ViolationsOf(err)
	if len(v) != 1 || v[0].MaterialID != m.ID {
		t.Fatalf("violations = %+v", v)
	}
	assertDecimal(t, "available", v[0].Available, "5")
	assertDecimal(t, "requested", v[0].Requested, "6")

	after := loadBatches(t, db, m.ID)
	for i := range before {
		if !before[i].RemainingQuantity.Equal(after[i].RemainingQuantity) || before[i].Status != after[i].Status {
			t.Fatalf("batch %d changed: %+v -> %+v", before[i].BatchNumber, before[i], after[i])
		}
	}
	afterMaterial := loadMaterial(t, db, m.ID)
	if !afterMaterial.Quantity.Equal(beforeMaterial.Quantity) || !afterMaterial.UnitPrice.Equal(beforeMaterial.UnitPrice) {
		t.Fatalf("material changed after rejected consumption")
	}

	var movements int64
	db.Model(&models.MaterialMovement{}).Where("material_id = ? AND direction = ?", m.ID, models.MovementOut).Count(&movements)
	if movements != 0 {
		t.Fatalf("rejected consumption left %d movements", movements)
	}
}

func TestConsumeRejectsUnknownAndArchivedMaterial(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	ctx := context.Background()

	if _, err := l.Consume(ctx, ConsumeInput{MaterialID: 99, Quantity: dec("1")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown material err = %v, want ErrNotFound", err)
	}

	m := mustMaterial(t, l, "Lace")
	mustBatch(t, l, m.ID, "10", "10")
	if _, err := l.SetMaterialStatus(ctx, m.ID, models.MaterialArchived); err != nil {
		t.Fatalf("SetMaterialStatus: %v", err)
	}
	if _, err := l.Consume(ctx, ConsumeInput{MaterialID: m.ID, Quantity: dec("1")}); !errors.Is(err, ErrValidation) {
		t.Fatalf("archived material err = %v, want ErrValidation", err)
	}
}

func TestBatchNumbersArePerMaterial(t *testing.T) {
	l, db := newTestLedger(t, Options{})
	a := mustMaterial(t, l, "Denim")
	b := mustMaterial(t, l, "Silk")

	mustBatch(t, l, a.ID, "1", "1")
	mustBatch(t, l, b.ID, "1", "1")
	mustBatch(t, l, a.ID, "1", "1")
	if _, err := l.Consume(context.Background(), ConsumeInput{MaterialID: b.ID, Quantity: dec("1")}); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	mustBatch(t, l, b.ID, "1", "1")
	mustBatch(t, l, a.ID, "1", "1")

	for material, want := range map[uint][]int{a.ID: {1, 2, 3}, b.ID: {1, 2}} {
		batches := loadBatches(t, db, material)
		if len(batches) != len(want) {
			t.Fatalf("material %d has %d batches, want %d", material, len(batches), len(want))
		}
		for i, bt := range batches {
			if bt.BatchNumber != want[i] {
				t.Fatalf("material %d batch %d numbered %d", material, i, bt.BatchNumber)
			}
		}
	}
}

func TestCreateBatchValidation(t *testing.T) {
	l, _ := newTestLedger(t, Options{MaxBatchQuantity: 2000})
	m := mustMaterial(t, l, "Wool")
	ctx := context.Background()

	cases := map[string]BatchInput{
		"zero quantity":    {MaterialID: m.ID, SupplierName: "s", Quantity: dec("0"), PriceBought: dec("1")},
		"over max":         {MaterialID: m.ID, SupplierName: "s", Quantity: dec("2001"), PriceBought: dec("1")},
		"fractional":       {MaterialID: m.ID, SupplierName: "s", Quantity: dec("1.5"), PriceBought: dec("1")},
		"negative price":   {MaterialID: m.ID, SupplierName: "s", Quantity: dec("1"), PriceBought: dec("-1")},
		"missing supplier": {MaterialID: m.ID, SupplierName: "  ", Quantity: dec("1"), PriceBought: dec("1")},
		"missing material": {SupplierName: "s", Quantity: dec("1"), PriceBought: dec("1")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := l.CreateBatch(ctx, in); !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}

	if _, err := l.CreateBatch(ctx, BatchInput{MaterialID: m.ID, SupplierName: "s", Quantity: dec("2000"), PriceBought: dec("0")}); err != nil {
		t.Fatalf("max quantity should be accepted: %v", err)
	}
	if _, err := l.CreateBatch(ctx, BatchInput{MaterialID: 404, SupplierName: "s", Quantity: dec("1"), PriceBought: dec("1")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown material err = %v, want ErrNotFound", err)
	}
	if _, err := l.CreateBatch(ctx, BatchInput{MaterialID: m.ID, InvoiceID: 404, SupplierName: "s", Quantity: dec("1"), PriceBought: dec("1")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown invoice err = %v, want ErrNotFound", err)
	}
}

func TestCreateBatchAppendsToInvoice(t *testing.T) {
	l, db := newTestLedger(t, Options{})
	ctx := context.Background()
	m := mustMaterial(t, l, "Linen")
	first := mustBatch(t, l, m.ID, "10", "100")

	second, err := l.CreateBatch(ctx, BatchInput{
		MaterialID:   m.ID,
		InvoiceID:    first.InvoiceID,
		SupplierName: "Mill & Co",
		Quantity:     dec("5"),
		PriceBought:  dec("60"),
	})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if second.InvoiceID != first.InvoiceID {
		t.Fatalf("second batch invoice = %d, want %d", second.InvoiceID, first.InvoiceID)
	}

	var inv models.StockInvoice
	if err := db.First(&inv, first.InvoiceID).Error; err != nil {
		t.Fatalf("load invoice: %v", err)
	}
	assertDecimal(t, "invoice total", inv.TotalCost, "160")
	if !strings.HasPrefix(inv.InvoiceNumber, "INV-20250310-") {
		t.Fatalf("invoice number = %q", inv.InvoiceNumber)
	}
	assertAggregates(t, db, m.ID)
}

func TestAddStockGroupsBatchesUnderOneInvoice(t *testing.T) {
	l, db := newTestLedger(t, Options{})
	a := mustMaterial(t, l, "Felt")
	b := mustMaterial(t, l, "Canvas")

	inv, err := l.AddStock(context.Background(), PurchaseInput{
		SupplierName: "Textile Hub",
		PurchaseDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Items: []PurchaseItem{
			{MaterialID: b.ID, Quantity: dec("20"), PriceBought: dec("100")},
			{MaterialID: a.ID, Quantity: dec("10"), PriceBought: dec("40")},
			{MaterialID: b.ID, Quantity: dec("10"), PriceBought: dec("80"), SupplierName: "Other"},
		},
	})
	if err != nil {
		t.Fatalf("AddStock: %v", err)
	}
	assertDecimal(t, "invoice total", inv.TotalCost, "220")
	if len(inv.Batches) != 3 {
		t.Fatalf("invoice batches = %d, want 3", len(inv.Batches))
	}
	if inv.Batches[2].SupplierName != "Other" || inv.Batches[0].SupplierName != "Textile Hub" {
		t.Fatalf("supplier names not applied: %+v", inv.Batches)
	}

	canvas := loadMaterial(t, db, b.ID)
	assertDecimal(t, "canvas quantity", canvas.Quantity, "30")
	assertDecimal(t, "canvas unit_price", canvas.UnitPrice, "6")
	assertAggregates(t, db, a.ID)

	if _, err := l.AddStock(context.Background(), PurchaseInput{SupplierName: "x"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty purchase err = %v, want ErrValidation", err)
	}
	_, err = l.AddStock(context.Background(), PurchaseInput{
		SupplierName: "x",
		Items: []PurchaseItem{
			{MaterialID: a.ID, Quantity: dec("1"), PriceBought: dec("1")},
			{MaterialID: 999, Quantity: dec("1"), PriceBought: dec("1")},
		},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown material err = %v, want ErrNotFound", err)
	}
	assertDecimal(t, "felt quantity after rejected purchase", loadMaterial(t, db, a.ID).Quantity, "10")
}

func TestSetBatchStatusExclusiveActivation(t *testing.T) {
	l, db := newTestLedger(t, Options{ExclusiveActivation: true})
	ctx := context.Background()
	m := mustMaterial(t, l, "Velvet")
	b1 := mustBatch(t, l, m.ID, "10", "100")
	mustBatch(t, l, m.ID, "10", "200")
	b3 := mustBatch(t, l, m.ID, "10", "300")

	if _, err := l.SetBatchStatus(ctx, b1.ID, models.BatchInactive); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	assertDecimal(t, "quantity after deactivation", loadMaterial(t, db, m.ID).Quantity, "20")
	assertAggregates(t, db, m.ID)

	got, err := l.SetBatchStatus(ctx, b3.ID, models.BatchActive)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if got.Status != models.BatchActive {
		t.Fatalf("returned status = %s", got.Status)
	}
	active := 0
	for _, b := range loadBatches(t, db, m.ID) {
		if b.Status == models.BatchActive {
			active++
			if b.ID != b3.ID {
				t.Fatalf("batch %d should have been deactivated", b.BatchNumber)
			}
		}
	}
	if active != 1 {
		t.Fatalf("active batches = %d, want 1", active)
	}
	mat := loadMaterial(t, db, m.ID)
	assertDecimal(t, "quantity", mat.Quantity, "10")
	assertDecimal(t, "unit_price", mat.UnitPrice, "30")
}

func TestSetBatchStatusOverrideMode(t *testing.T) {
	l, db := newTestLedger(t, Options{ExclusiveActivation: false})
	ctx := context.Background()
	m := mustMaterial(t, l, "Satin")
	b1 := mustBatch(t, l, m.ID, "10", "100")
	mustBatch(t, l, m.ID, "10", "200")

	if _, err := l.SetBatchStatus(ctx, b1.ID, models.BatchInactive); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := l.SetBatchStatus(ctx, b1.ID, models.BatchActive); err != nil {
		t.Fatalf("activate: %v", err)
	}
	mat := loadMaterial(t, db, m.ID)
	assertDecimal(t, "quantity", mat.Quantity, "20")
	assertDecimal(t, "unit_price", mat.UnitPrice, "15")
}

func TestSetBatchStatusRejections(t *testing.T) {
	l, _ := newTestLedger(t, Options{ExclusiveActivation: true})
	ctx := context.Background()
	m := mustMaterial(t, l, "Tweed")
	b := mustBatch(t, l, m.ID, "2", "10")
	if _, err := l.Consume(ctx, ConsumeInput{MaterialID: m.ID, Quantity: dec("2")}); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	if _, err := l.SetBatchStatus(ctx, b.ID, models.BatchActive); !errors.Is(err, ErrValidation) {
		t.Fatalf("activating exhausted batch err = %v, want ErrValidation", err)
	}
	if _, err := l.SetBatchStatus(ctx, 12345, models.BatchActive); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown batch err = %v, want ErrNotFound", err)
	}
	if _, err := l.SetBatchStatus(ctx, b.ID, "paused"); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad status err = %v, want ErrValidation", err)
	}
}

func TestFailedOperationReleasesConnection(t *testing.T) {
	l, db := newTestLedger(t, Options{})
	m := mustMaterial(t, l, "Jersey")
	mustBatch(t, l, m.ID, "1", "1")

	for i := 0; i < 3; i++ {
		if _, err := l.Consume(context.Background(), ConsumeInput{MaterialID: m.ID, Quantity: dec("5")}); !errors.Is(err, ErrInsufficientStock) {
			t.Fatalf("err = %v, want ErrInsufficientStock", err)
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	if inUse := sqlDB.Stats().InUse; inUse != 0 {
		t.Fatalf("connections in use after failed operations = %d", inUse)
	}

	// the pool holds a single connection, so this would block if one leaked
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := l.Consume(ctx, ConsumeInput{MaterialID: m.ID, Quantity: dec("1")}); err != nil {
		t.Fatalf("Consume after failures: %v", err)
	}
}

func TestMovementsFollowBatchChanges(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	ctx := context.Background()
	m := mustMaterial(t, l, "Chiffon")
	mustBatch(t, l, m.ID, "5", "10")
	mustBatch(t, l, m.ID, "5", "20")
	if _, err := l.Consume(ctx, ConsumeInput{MaterialID: m.ID, Quantity: dec("7"), Reference: "order-17"}); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	moves, err := l.ListMovements(ctx, m.ID, 0)
	if err != nil {
		t.Fatalf("ListMovements: %v", err)
	}
	var in, out int
	for _, mv := range moves {
		switch mv.Direction {
		case models.MovementIn:
			in++
		case models.MovementOut:
			out++
			if mv.Reason != models.ReasonUse || mv.Reference != "order-17" {
				t.Fatalf("out movement = %+v", mv)
			}
		}
	}
	if in != 2 || out != 2 {
		t.Fatalf("movements in/out = %d/%d, want 2/2", in, out)
	}
}

func TestHooksObserveOutcomes(t *testing.T) {
	hooks := &spyHooks{}
	l, _ := newTestLedger(t, Options{Hooks: hooks})
	m := mustMaterial(t, l, "Mesh")
	if _, err := l.Consume(context.Background(), ConsumeInput{MaterialID: m.ID, Quantity: dec("1")}); err == nil {
		t.Fatalf("expected insufficient stock")
	}

	if len(hooks.rejected) != 1 || hooks.rejected[0] != "ledger.consume:insufficient_stock" {
		t.Fatalf("rejected = %v", hooks.rejected)
	}
	last := hooks.ops[len(hooks.ops)-1]
	if last != "ledger.consume:insufficient_stock" {
		t.Fatalf("last observed op = %s", last)
	}
	if hooks.ops[0] != "ledger.create_material:ok" {
		t.Fatalf("first observed op = %s", hooks.ops[0])
	}
}

func TestConsumeRejectsQuantityBeyondStoredScale(t *testing.T) {
	l, db := newTestLedger(t, Options{})
	m := mustMaterial(t, l, "Thread")
	mustBatch(t, l, m.ID, "1", "5")

	_, err := l.Consume(context.Background(), ConsumeInput{MaterialID: m.ID, Quantity: dec("0.99999")})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	batches := loadBatches(t, db, m.ID)
	if batches[0].Status != models.BatchActive {
		t.Fatalf("batch status = %s, want active", batches[0].Status)
	}
	assertDecimal(t, "remaining", batches[0].RemainingQuantity, "1")

	res, err := l.Consume(context.Background(), ConsumeInput{MaterialID: m.ID, Quantity: dec("0.9999")})
	if err != nil {
		t.Fatalf("Consume(0.9999): %v", err)
	}
	assertDecimal(t, "consumed", res.Consumed, "0.9999")
	assertAggregates(t, db, m.ID)
}

func TestCreateBatchRejectsPriceBeyondStoredScale(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	m := mustMaterial(t, l, "Lining")
	_, err := l.CreateBatch(context.Background(), BatchInput{
		MaterialID: m.ID, SupplierName: "Acme", Quantity: dec("2"), PriceBought: dec("10.00001"),
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestHooksObserveEarlyValidationFailures(t *testing.T) {
	hooks := &spyHooks{}
	l, _ := newTestLedger(t, Options{Hooks: hooks})
	ctx := context.Background()
	m := mustMaterial(t, l, "Felt")

	if _, err := l.Consume(ctx, ConsumeInput{MaterialID: m.ID, Quantity: dec("0")}); !errors.Is(err, ErrValidation) {
		t.Fatalf("Consume(0) err = %v", err)
	}
	if _, err := l.CreateBatch(ctx, BatchInput{MaterialID: m.ID, SupplierName: "Acme", Quantity: dec("5000"), PriceBought: dec("1")}); !errors.Is(err, ErrValidation) {
		t.Fatalf("CreateBatch(5000) err = %v", err)
	}
	if _, err := l.CreateMaterial(ctx, MaterialInput{Unit: "m"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("CreateMaterial without name err = %v", err)
	}

	want := []string{"ledger.consume:validation", "ledger.create_batch:validation", "ledger.create_material:validation"}
	if len(hooks.rejected) != len(want) {
		t.Fatalf("rejected = %v, want %v", hooks.rejected, want)
	}
	for i := range want {
		if hooks.rejected[i] != want[i] {
			t.Fatalf("rejected[%d] = %s, want %s", i, hooks.rejected[i], want[i])
		}
	}
	if last := hooks.ops[len(hooks.ops)-1]; last != "ledger.create_material:validation" {
		t.Fatalf("last observed op = %s", last)
	}
}
