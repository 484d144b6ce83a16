package admin

import (
	"fmt"

	"workshop-backend/internal/audit"
	"workshop-backend/internal/auth"
	"workshop-backend/internal/ledger"
	"workshop-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// POST /api/admin/reconcile?repair=true
//
// Without repair the call only reports drift.
func ReconcileHandler(l *ledger.Ledger, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		repair := c.QueryBool("repair", false)

		drifts, err := l.Reconcile(c.UserContext(), repair)
		if err != nil {
			return err
		}

		if repair && len(drifts) > 0 {
			p, _ := auth.PrincipalFrom(c)
			for _, d := range drifts {
				rec.Record(c.UserContext(), audit.LogOptions{
					UserID:      p.UserID,
					UserName:    p.Name,
					EntityType:  "material",
					EntityID:    d.MaterialID,
					Action:      models.AuditActionRepair,
					Description: fmt.Sprintf("Aggregates of %s rewritten to %s @ %s", d.MaterialName, d.ExpectedQuantity, d.ExpectedUnitPrice),
					After:       d,
				})
			}
		}

		if drifts == nil {
			drifts = []ledger.Drift{}
		}
		return c.JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("%d materials out of balance", len(drifts)),
			"repair":  repair,
			"drifts":  drifts,
		})
	}
}
