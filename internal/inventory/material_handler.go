package inventory

import (
	"fmt"

	"workshop-backend/internal/audit"
	"workshop-backend/internal/ledger"
	"workshop-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type AddMaterialRequest struct {
	Name     string `json:"material_name"`
	Unit     string `json:"unit"`
	Category string `json:"category"`
}

type MaterialStatusRequest struct {
	Status models.MaterialStatus `json:"status"`
}

// POST /api/materials/add-material
func AddMaterialHandler(l *ledger.Ledger, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body AddMaterialRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		m, err := l.CreateMaterial(c.UserContext(), ledger.MaterialInput{
			Name:     body.Name,
			Unit:     body.Unit,
			Category: body.Category,
		})
		if err != nil {
			return err
		}

		rec.Record(c.UserContext(), audit.Entry(c, "material", m.ID, models.AuditActionCreate,
			fmt.Sprintf("Material added: %s (%s)", m.Name, m.Unit), m))

		return c.Status(fiber.StatusCreated).JSON(m)
	}
}

// GET /api/materials?status=&search=&category=&unit=&quantity=
func ListMaterialsHandler(l *ledger.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		materials, err := l.ListMaterials(c.UserContext(), ledger.MaterialFilter{
			Status:   c.Query("status"),
			Search:   c.Query("search"),
			Category: c.Query("category"),
			Unit:     c.Query("unit"),
			Quantity: c.Query("quantity"),
		})
		if err != nil {
			return err
		}
		return c.JSON(materials)
	}
}

// GET /api/materials/:id
func GetMaterialHandler(l *ledger.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		m, err := l.GetMaterial(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(m)
	}
}

// PUT /api/materials/:id/status
func SetMaterialStatusHandler(l *ledger.Ledger, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var body MaterialStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		m, err := l.SetMaterialStatus(c.UserContext(), id, body.Status)
		if err != nil {
			return err
		}

		rec.Record(c.UserContext(), audit.Entry(c, "material", m.ID, models.AuditActionUpdate,
			fmt.Sprintf("Material %s set to %s", m.Name, m.Status), m))

		return c.JSON(fiber.Map{
			"success":  true,
			"message":  "Material status updated",
			"material": m,
		})
	}
}

// GET /api/materials/:id/batches?status=active
func ListBatchesHandler(l *ledger.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		batches, err := l.ListBatches(c.UserContext(), id, c.Query("status"))
		if err != nil {
			return err
		}
		return c.JSON(batches)
	}
}

// GET /api/materials/:id/movements?limit=100
func ListMovementsHandler(l *ledger.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		moves, err := l.ListMovements(c.UserContext(), id, c.QueryInt("limit", 100))
		if err != nil {
			return err
		}
		return c.JSON(moves)
	}
}

// GET /api/materials/invoices
func ListInvoicesHandler(l *ledger.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		invoices, err := l.ListInvoices(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(invoices)
	}
}
