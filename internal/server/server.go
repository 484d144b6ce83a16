// Package server assembles the HTTP API.
package server

import (
	"workshop-backend/internal/admin"
	"workshop-backend/internal/audit"
	"workshop-backend/internal/auth"
	"workshop-backend/internal/config"
	"workshop-backend/internal/inventory"
	"workshop-backend/internal/ledger"
	"workshop-backend/internal/metrics"
	"workshop-backend/internal/production"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Ledger  *ledger.Ledger
	Audit   *audit.Recorder
	Metrics *metrics.Metrics // nil disables /metrics
	Logger  *zap.Logger
}

func New(d Deps) *fiber.App {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:      "workshop-backend",
		ErrorHandler: errorHandler(log),
	})

	app.Use(requestID())
	app.Use(requestLogger(log, d.Metrics))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: d.Config.AllowedOrigins(),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/health", healthHandler(d.DB))
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
	}

	api := app.Group("/api")

	api.Post("/auth/register-admin", auth.RegisterAdminHandler(d.DB))
	api.Post("/auth/login", auth.LoginHandler(d.DB, d.Config.JWTSecret))

	protected := api.Group("", auth.JWTMiddleware(d.Config.JWTSecret))
	protected.Get("/auth/me", auth.MeHandler())

	read := auth.RequirePermission(auth.PermMaterialsRead)
	write := auth.RequirePermission(auth.PermMaterialsWrite)
	stock := auth.RequirePermission(auth.PermStockWrite)

	materials := protected.Group("/materials")
	// static paths before /:id
	materials.Get("/invoices", read, inventory.ListInvoicesHandler(d.Ledger))
	materials.Get("/summary", read, inventory.StockSummaryHandler(d.Ledger))
	materials.Post("/add-material", write, inventory.AddMaterialHandler(d.Ledger, d.Audit))
	materials.Post("/add-stock-batch", stock, inventory.AddStockBatchHandler(d.Ledger, d.Audit))
	materials.Post("/add-stock", stock, inventory.AddStockHandler(d.Ledger, d.Audit))
	materials.Post("/use-stock", auth.RequirePermission(auth.PermStockConsume), inventory.UseStockHandler(d.Ledger, d.Audit))
	materials.Put("/batches/:id/status", stock, inventory.SetBatchStatusHandler(d.Ledger, d.Audit))
	materials.Get("/", read, inventory.ListMaterialsHandler(d.Ledger))
	materials.Get("/:id", read, inventory.GetMaterialHandler(d.Ledger))
	materials.Put("/:id/status", write, inventory.SetMaterialStatusHandler(d.Ledger, d.Audit))
	materials.Get("/:id/batches", read, inventory.ListBatchesHandler(d.Ledger))
	materials.Get("/:id/movements", read, inventory.ListMovementsHandler(d.Ledger))

	prodRead := auth.RequirePermission(auth.PermProductionRead)
	prodWrite := auth.RequirePermission(auth.PermProductionWrite)
	protected.Post("/products", prodWrite, production.CreateProductHandler(d.Ledger, d.Audit))
	protected.Get("/products", prodRead, production.ListProductsHandler(d.Ledger))
	protected.Post("/production", prodWrite, production.CreateProductionHandler(d.Ledger, d.Audit))
	protected.Get("/production", prodRead, production.ListProductionsHandler(d.Ledger))

	protected.Get("/audit-logs", auth.RequirePermission(auth.PermAuditRead), audit.ListAuditLogsHandler(d.DB))

	adminRoutes := protected.Group("/admin")
	adminRoutes.Post("/users", auth.RequirePermission(auth.PermUsersManage), auth.CreateUserHandler(d.DB))
	adminRoutes.Post("/reconcile", auth.RequirePermission(auth.PermReconcile), admin.ReconcileHandler(d.Ledger, d.Audit))

	return app
}

func healthHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
