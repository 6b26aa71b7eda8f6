package main

import (
	"context"
	"flag"
	"log"
	"time"

	"receiptly/internal/extraction"
	"receiptly/internal/models"
	"receiptly/internal/repository"
	"receiptly/pkg/config"
	"receiptly/pkg/logger"
	"receiptly/pkg/postgres"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// starterCategories is the grocery-oriented taxonomy the extraction prompt
// steers the model toward. Seeding it up front means most receipts resolve
// to existing categories instead of creating near-duplicates.
var starterCategories = []struct {
	name        string
	description string
}{
	{"Produce", "Fresh fruit and vegetables"},
	{"Dairy", "Milk, cheese, yogurt, eggs and other dairy products"},
	{"Meat & Seafood", "Fresh and packaged meat, poultry and fish"},
	{"Bakery", "Bread, pastries and other baked goods"},
	{"Beverages", "Drinks of all kinds, alcoholic and not"},
	{"Deli", "Prepared foods, cured meats and cheeses from the deli counter"},
	{"Dry Goods & Pantry", "Pasta, rice, canned goods, spices and other shelf-stable staples"},
	{"Frozen", "Frozen meals, vegetables and desserts"},
	{"Snacks", "Chips, candy, cookies and other snack foods"},
	{"Household", "Cleaning supplies, paper products and other household goods"},
	{"Personal Care", "Toiletries, cosmetics and hygiene products"},
	{"Health", "Medicine, vitamins and supplements"},
	{"Pet Supplies", "Pet food, litter and accessories"},
	{"Electronics", "Devices, batteries, cables and accessories"},
	{"Clothing", "Apparel, shoes and accessories"},
	{"Other", "Items that fit no other category"},
}

func main() {
	userIDFlag := flag.String("user", "", "ID of the user to seed categories for")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	userID, err := uuid.Parse(*userIDFlag)
	if err != nil {
		appLogger.Fatal("A valid -user flag is required", zap.Error(err))
	}

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	catRepo := repository.NewCategoryRepository(db, appLogger)

	appLogger.Info("Seeding starter categories", zap.String("user_id", userID.String()))

	existing, err := catRepo.ListByUserID(ctx, userID)
	if err != nil {
		appLogger.Fatal("Failed to list existing categories", zap.Error(err))
	}
	taken := make(map[string]bool, len(existing))
	for _, c := range existing {
		taken[extraction.NormalizeCategoryName(c.Name)] = true
	}

	now := time.Now()
	var toCreate []*models.Category
	for _, sc := range starterCategories {
		if taken[extraction.NormalizeCategoryName(sc.name)] {
			appLogger.Info("Category already present, skipping", zap.String("name", sc.name))
			continue
		}
		toCreate = append(toCreate, &models.Category{
			ID:          uuid.New(),
			UserID:      userID,
			Name:        sc.name,
			Description: sc.description,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	if err := catRepo.CreateBatch(ctx, toCreate); err != nil {
		appLogger.Fatal("Failed to create categories", zap.Error(err))
	}

	appLogger.Info("Seeding completed",
		zap.Int("created", len(toCreate)),
		zap.Int("skipped", len(starterCategories)-len(toCreate)),
	)
}
