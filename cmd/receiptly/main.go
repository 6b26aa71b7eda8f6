package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"receiptly/internal/api"
	"receiptly/internal/api/handlers"
	"receiptly/internal/extraction"
	"receiptly/internal/repository"
	"receiptly/internal/service"
	"receiptly/internal/vision"
	"receiptly/pkg/auth"
	"receiptly/pkg/config"
	"receiptly/pkg/logger"
	"receiptly/pkg/postgres"

	"go.uber.org/zap"
)

// @title Receiptly API
// @version 1.0
// @description Receipt management backend with AI-powered extraction

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting Receiptly service")

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db, appLogger)
	catRepo := repository.NewCategoryRepository(db, appLogger)
	receiptRepo := repository.NewReceiptRepository(db, appLogger)
	itemRepo := repository.NewItemRepository(db, appLogger)

	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)

	visionClient, err := newVisionClient(ctx, &cfg.Vision, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize vision client", zap.Error(err))
	}
	defer visionClient.Close()
	appLogger.Info("Vision backend ready", zap.String("provider", cfg.Vision.Provider))

	agent := extraction.NewAgent(visionClient, cfg.Vision.ExtractTimeout, appLogger)
	reconciler := extraction.NewReconciler(visionClient, cfg.Vision.ReconcileTimeout, appLogger)
	pipeline := extraction.NewPipeline(agent, appLogger)

	authService := service.NewAuthService(userRepo, jwtManager, appLogger)
	categoryService := service.NewCategoryService(catRepo, appLogger)
	receiptService := service.NewReceiptService(receiptRepo, itemRepo, catRepo, pipeline, reconciler, cfg.Upload.Dir, appLogger)
	analyticsService := service.NewAnalyticsService(receiptRepo, appLogger)
	exportService := service.NewExportService(receiptRepo, itemRepo, catRepo, appLogger)

	authHandler := handlers.NewAuthHandler(authService, appLogger)
	receiptHandler := handlers.NewReceiptHandler(receiptService, appLogger)
	categoryHandler := handlers.NewCategoryHandler(categoryService, appLogger)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService, exportService, appLogger)

	app := api.SetupRouter(authHandler, receiptHandler, categoryHandler, analyticsHandler, jwtManager, cfg.Upload.Dir, cfg.Upload.MaxSizeBytes, appLogger)

	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}

func newVisionClient(ctx context.Context, cfg *config.VisionConfig, appLogger *zap.Logger) (vision.Client, error) {
	switch cfg.Provider {
	case "gemini":
		return vision.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case "gigachat":
		return vision.NewGigaChat(ctx, cfg.GigaChatAPIKey, cfg.GigaChatScope, appLogger)
	default:
		return nil, fmt.Errorf("unknown vision provider %q", cfg.Provider)
	}
}
