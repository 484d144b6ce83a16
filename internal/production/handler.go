package production

import (
	"fmt"
	"strconv"
	"strings"

	"workshop-backend/internal/audit"
	"workshop-backend/internal/auth"
	"workshop-backend/internal/ledger"
	"workshop-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	Name     string `json:"product_name"`
	Category string `json:"category"`
}

type ProductionMaterialRequest struct {
	MaterialID  uint            `json:"material_id"`
	Measurement decimal.Decimal `json:"measurement"`
}

type CreateProductionRequest struct {
	ProductID        uint                        `json:"product_id"`
	Method           models.ProductionMethod     `json:"method"`
	ProviderName     string                      `json:"provider_name"`
	ProducedQuantity decimal.Decimal             `json:"produced_quantity"`
	CostOfProduction decimal.NullDecimal         `json:"cost_of_production"` // null derives it from materials
	ProductionDate   string                      `json:"production_date"`
	Notes            string                      `json:"notes"`
	Materials        []ProductionMaterialRequest `json:"materials"`
}

// POST /api/products
func CreateProductHandler(l *ledger.Ledger, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		p, err := l.CreateProduct(c.UserContext(), ledger.ProductInput{
			Name:     body.Name,
			Category: body.Category,
		})
		if err != nil {
			return err
		}

		rec.Record(c.UserContext(), audit.Entry(c, "product", p.ID, models.AuditActionCreate, "Product added: "+p.Name, p))

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "Product added",
			"product": p,
		})
	}
}

// GET /api/products
func ListProductsHandler(l *ledger.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		products, err := l.ListProducts(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(products)
	}
}

// POST /api/production
//
// Scratch runs draw every material line through FIFO consumption in the
// same transaction as the production record; any shortage rejects the run.
func CreateProductionHandler(l *ledger.Ledger, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		date, err := ledger.ParseDate("production_date", body.ProductionDate)
		if err != nil {
			return err
		}

		lines := make([]ledger.ProductionLine, 0, len(body.Materials))
		for _, m := range body.Materials {
			lines = append(lines, ledger.ProductionLine{MaterialID: m.MaterialID, Measurement: m.Measurement})
		}

		p, _ := auth.PrincipalFrom(c)
		run, err := l.CreateProduction(c.UserContext(), ledger.ProductionInput{
			ProductID:        body.ProductID,
			Method:           body.Method,
			ProviderName:     strings.TrimSpace(body.ProviderName),
			ProducedQuantity: body.ProducedQuantity,
			CostOfProduction: body.CostOfProduction,
			ProductionDate:   date,
			Notes:            body.Notes,
			Materials:        lines,
			CreatedBy:        p.UserID,
		})
		if err != nil {
			return err
		}

		rec.Record(c.UserContext(), audit.Entry(c, "production", run.ID, models.AuditActionCreate,
			fmt.Sprintf("Produced %s of product %d (%s), total cost %s", run.ProducedQuantity, run.ProductID, run.Method, run.TotalCost), run))

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success":    true,
			"message":    "Production recorded",
			"production": run,
		})
	}
}

// GET /api/production?product_id=
func ListProductionsHandler(l *ledger.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var productID uint
		if s := c.Query("product_id"); s != "" {
			id, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid product_id")
			}
			productID = uint(id)
		}
		runs, err := l.ListProductions(c.UserContext(), productID)
		if err != nil {
			return err
		}
		return c.JSON(runs)
	}
}
