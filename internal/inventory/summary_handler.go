package inventory

import (
	"time"

	"workshop-backend/internal/ledger"

	"github.com/gofiber/fiber/v2"
)

// GET /api/materials/summary?from=2025-03-01&to=2025-03-31
// Both dates default to today.
func StockSummaryHandler(l *ledger.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, err := ledger.ParseDate("from", c.Query("from"))
		if err != nil {
			return err
		}
		to, err := ledger.ParseDate("to", c.Query("to"))
		if err != nil {
			return err
		}
		now := time.Now()
		if from.IsZero() {
			from = now
		}
		if to.IsZero() {
			to = now
		}

		s, err := l.Summary(c.UserContext(), from, to)
		if err != nil {
			return err
		}
		return c.JSON(s)
	}
}
