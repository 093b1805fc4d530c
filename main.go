package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"prize-settlement-service/handlers"
	"prize-settlement-service/middleware"
	"prize-settlement-service/models"
	"prize-settlement-service/services"
	"prize-settlement-service/settlement"
	"prize-settlement-service/storepg"
	"prize-settlement-service/utils"
	"prize-settlement-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // settlement payloads are small JSON
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.LedgerConfig{},
		&models.EntryFee{},
		&models.PrizePool{},
		&models.WinnerShare{},
		&models.AssetAccount{},
		&models.AssetAllowance{},
		&models.Deposit{},
		&models.ResultSubmitter{},
		&models.SettlementEvent{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// R2 archiving is optional; the scheduler disables itself when unset.
	if os.Getenv("CLOUDFLARE_ACCOUNT_ID") != "" {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := storepg.New(db)
	engine := settlement.NewEngine(store)

	feeBasisPoints := int64(0)
	if bpsStr := os.Getenv("LEDGER_FEE_BASIS_POINTS"); bpsStr != "" {
		feeBasisPoints, err = strconv.ParseInt(bpsStr, 10, 64)
		if err != nil {
			log.Fatal("invalid LEDGER_FEE_BASIS_POINTS:", err)
		}
	}
	adminID := os.Getenv("LEDGER_ADMIN_ID")
	if adminID == "" {
		log.Fatal("LEDGER_ADMIN_ID environment variable not set")
	}
	if err := engine.Init(ctx, settlement.Config{
		AdminID:        adminID,
		AcceptedAsset:  os.Getenv("LEDGER_ACCEPTED_ASSET"),
		RewardAsset:    os.Getenv("LEDGER_REWARD_ASSET"),
		TreasuryID:     os.Getenv("LEDGER_TREASURY_ID"),
		PoolID:         os.Getenv("LEDGER_POOL_ID"),
		FeeBasisPoints: feeBasisPoints,
	}); err != nil {
		log.Fatal("failed to initialize settlement ledger:", err)
	}

	settlementService := services.NewSettlementService(engine, db)
	adminService := services.NewAdminService(engine)

	// Deposit polling is optional; skip when no wallet service is configured.
	if os.Getenv("SYNC_SERVICE_URL") != "" {
		depositSyncClient := workers.NewDepositSyncClient(db)
		go workers.PollDeposits(ctx, depositSyncClient, 10*time.Second)
		log.Println("✅ Deposit polling running (every 10s)")
	} else {
		log.Println("⚠️  SYNC_SERVICE_URL not set, deposit sync disabled")
	}

	settlementService.StartArchiveScheduler()

	handlers.SetupSettlementRoutes(app, settlementService, adminService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
