package api

import (
	"receiptly/docs"
	"receiptly/internal/api/handlers"
	"receiptly/pkg/auth"
	"receiptly/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

func SetupRouter(
	authHandler *handlers.AuthHandler,
	receiptHandler *handlers.ReceiptHandler,
	categoryHandler *handlers.CategoryHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	jwtManager *auth.JWTManager,
	uploadDir string,
	maxBodyBytes int64,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: int(maxBodyBytes),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	_ = docs.SwaggerInfo // importing docs registers the swagger doc via init()
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Static("/uploads", uploadDir)

	// Auth routes (public)
	userAuth := app.Group("/user/auth")
	userAuth.Post("/register", authHandler.Register)
	userAuth.Post("/login", authHandler.Login)
	userAuth.Post("/refresh", authHandler.RefreshToken)

	// Protected routes
	protected := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger))

	receipts := protected.Group("/receipts")
	receipts.Post("/upload", receiptHandler.UploadReceipt)
	receipts.Get("", receiptHandler.ListReceipts)
	receipts.Get("/:id", receiptHandler.GetReceipt)
	receipts.Put("/:id", receiptHandler.UpdateReceipt)
	receipts.Delete("/:id", receiptHandler.DeleteReceipt)
	receipts.Post("/:id/process", receiptHandler.ProcessReceipt)
	receipts.Post("/:id/reconcile", receiptHandler.ReconcileReceipt)

	categories := protected.Group("/categories")
	categories.Post("", categoryHandler.CreateCategory)
	categories.Get("", categoryHandler.ListCategories)
	categories.Put("/:id", categoryHandler.UpdateCategory)
	categories.Delete("/:id", categoryHandler.DeleteCategory)

	analytics := protected.Group("/analytics")
	analytics.Get("/summary", analyticsHandler.SpendSummary)
	analytics.Get("/trends", analyticsHandler.MonthlyTrends)
	analytics.Get("/stores", analyticsHandler.TopStores)
	analytics.Get("/categories", analyticsHandler.CategoryBreakdown)
	analytics.Get("/export", analyticsHandler.ExportCSV)

	return app
}
