package audit

import (
	"workshop-backend/internal/auth"
	"workshop-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Entry builds the log options for a change made by the request's principal.
func Entry(c *fiber.Ctx, entityType string, entityID uint, action models.AuditAction, desc string, after any) LogOptions {
	p, _ := auth.PrincipalFrom(c)
	return LogOptions{
		UserID:      p.UserID,
		UserName:    p.Name,
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      action,
		Description: desc,
		After:       after,
	}
}
