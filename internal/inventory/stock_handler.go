package inventory

import (
	"fmt"

	"workshop-backend/internal/audit"
	"workshop-backend/internal/ledger"
	"workshop-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type AddStockBatchRequest struct {
	MaterialID   uint            `json:"material_id"`
	InvoiceID    uint            `json:"invoice_id"` // optional
	SupplierName string          `json:"supplier_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	PriceBought  decimal.Decimal `json:"price_bought"`
	PurchaseDate string          `json:"purchase_date"` // "2025-03-10"
}

type AddStockItem struct {
	MaterialID   uint            `json:"material_id"`
	SupplierName string          `json:"supplier_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	PriceBought  decimal.Decimal `json:"price_bought"`
}

type AddStockRequest struct {
	SupplierName string         `json:"supplier_name"`
	PurchaseDate string         `json:"purchase_date"`
	Items        []AddStockItem `json:"items"`
}

type UseStockRequest struct {
	MaterialID uint            `json:"material_id"`
	Quantity   decimal.Decimal `json:"used_quantity"`
	Reference  string          `json:"reference"`
	Note       string          `json:"note"`
}

type BatchStatusRequest struct {
	Status models.BatchStatus `json:"status"`
}

// POST /api/materials/add-stock-batch
func AddStockBatchHandler(l *ledger.Ledger, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body AddStockBatchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		date, err := ledger.ParseDate("purchase_date", body.PurchaseDate)
		if err != nil {
			return err
		}

		batch, err := l.CreateBatch(c.UserContext(), ledger.BatchInput{
			MaterialID:   body.MaterialID,
			InvoiceID:    body.InvoiceID,
			SupplierName: body.SupplierName,
			Quantity:     body.Quantity,
			PriceBought:  body.PriceBought,
			PurchaseDate: date,
		})
		if err != nil {
			return err
		}

		rec.Record(c.UserContext(), audit.Entry(c, "stock_batch", batch.ID, models.AuditActionCreate,
			fmt.Sprintf("Batch %d of material %d: %s for %s", batch.BatchNumber, batch.MaterialID, batch.Quantity, batch.PriceBought), batch))

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "Stock batch added",
			"batch":   batch,
		})
	}
}

// POST /api/materials/add-stock
func AddStockHandler(l *ledger.Ledger, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body AddStockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		date, err := ledger.ParseDate("purchase_date", body.PurchaseDate)
		if err != nil {
			return err
		}

		items := make([]ledger.PurchaseItem, 0, len(body.Items))
		for _, it := range body.Items {
			items = append(items, ledger.PurchaseItem{
				MaterialID:   it.MaterialID,
				SupplierName: it.SupplierName,
				Quantity:     it.Quantity,
				PriceBought:  it.PriceBought,
			})
		}

		inv, err := l.AddStock(c.UserContext(), ledger.PurchaseInput{
			SupplierName: body.SupplierName,
			PurchaseDate: date,
			Items:        items,
		})
		if err != nil {
			return err
		}

		rec.Record(c.UserContext(), audit.Entry(c, "stock_invoice", inv.ID, models.AuditActionCreate,
			fmt.Sprintf("Invoice %s: %d batches, total %s", inv.InvoiceNumber, len(inv.Batches), inv.TotalCost), inv))

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "Stock added",
			"invoice": inv,
		})
	}
}

// POST /api/materials/use-stock
func UseStockHandler(l *ledger.Ledger, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UseStockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		res, err := l.Consume(c.UserContext(), ledger.ConsumeInput{
			MaterialID: body.MaterialID,
			Quantity:   body.Quantity,
			Reference:  body.Reference,
			Note:       body.Note,
		})
		if err != nil {
			return err
		}

		rec.Record(c.UserContext(), audit.Entry(c, "material", body.MaterialID, models.AuditActionConsume,
			fmt.Sprintf("Used %s of %s across %d batches", res.Consumed, res.Material.Name, len(res.Draws)), res))

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Stock used",
			"result":  res,
		})
	}
}

// PUT /api/materials/batches/:id/status
func SetBatchStatusHandler(l *ledger.Ledger, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var body BatchStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		batch, err := l.SetBatchStatus(c.UserContext(), id, body.Status)
		if err != nil {
			return err
		}

		rec.Record(c.UserContext(), audit.Entry(c, "stock_batch", batch.ID, models.AuditActionUpdate,
			fmt.Sprintf("Batch %d of material %d set to %s", batch.BatchNumber, batch.MaterialID, batch.Status), batch))

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Batch status updated",
			"batch":   batch,
		})
	}
}
