package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "invexis/api/swagger" // swagger docs
	"invexis/internal/config"
	"invexis/internal/database"
	"invexis/internal/handler"
	"invexis/internal/ledger"
	"invexis/internal/metrics"
	"invexis/internal/middleware"
	"invexis/internal/model"
	"invexis/internal/repository"
	"invexis/internal/scanner"
	"invexis/internal/seed"
	"invexis/internal/service"
	"invexis/internal/websocket"
	"invexis/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Invexis Inventory API
// @version         1.0
// @description     Batch-level stock ledger with FIFO expiry tracking, stock-in and bill scanning.
// @host            localhost:8080
// @BasePath        /
func main() {
	cfg, err := config.Load()
	logger.Init("invexis-api", cfg.IsDevelopment())
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger.SetLevel(cfg.LogLevel)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Journal: PostgreSQL when enabled, process memory otherwise
	var (
		txManager    repository.TransactionManager
		auditRepo    repository.AuditRepository
		movementRepo repository.MovementRepository
	)
	if cfg.DB.Enabled {
		db, err := database.NewConnection(cfg.DB.DSN())
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Database connection failed")
		}
		logger.Logger.Info().Str("host", cfg.DB.Host).Str("database", cfg.DB.Name).Msg("Connected to PostgreSQL")
		txManager = repository.NewTransactionManager(db)
		auditRepo = repository.NewAuditRepository(db)
		movementRepo = repository.NewMovementRepository(db)
	} else {
		logger.Logger.Warn().Msg("DB_ENABLED is false, journal is kept in memory")
		txManager = repository.NewMemoryTransactionManager()
		auditRepo = repository.NewMemoryAuditRepository()
		movementRepo = repository.NewMemoryMovementRepository()
	}

	// Numbers journaled by earlier runs stay taken
	journaled, err := movementRepo.ListBatchNos(context.Background())
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to load journaled batch numbers")
	}
	opts := []ledger.Option{ledger.WithReservedBatchNos(journaled)}
	logger.Logger.Info().Int("batch_numbers", len(journaled)).Msg("Reserved journaled batch numbers")
	if cfg.SeedDemo {
		demo := seed.Demo(model.NewDate(time.Now()))
		opts = append(opts, ledger.WithItems(demo))
		logger.Logger.Info().Int("items", len(demo)).Msg("Seeded demo inventory")
	}
	stock := ledger.New(opts...)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)

	m := metrics.New()

	scans := scanner.NewManager(scanner.NewCannedRecognizer(cfg.ScanDelay))
	scans.SetRetention(cfg.ScanRetention)
	defer scans.Close()

	// Set up dependencies (Repository -> Service -> Handler)
	inventoryService := service.NewInventoryService(stock, auditRepo, movementRepo, txManager, wsHub, m)
	scanService := service.NewBillScanService(scans, inventoryService, wsHub, m)
	auditService := service.NewAuditService(auditRepo)
	reportService := service.NewReportService(stock, cfg.ExpiryWarningDays)

	inventoryHandler := handler.NewInventoryHandler(inventoryService)
	scanHandler := handler.NewScanHandler(scanService)
	auditHandler := handler.NewAuditHandler(auditService)
	reportHandler := handler.NewReportHandler(reportService)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(), middleware.Metrics(m))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept", "X-Request-Id"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(m.Handler()))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "items": len(stock.Items()), "ws_clients": wsHub.ClientCount()})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c)
	})

	inventoryHandler.RegisterRoutes(router.Group(""))
	scanHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))
	reportHandler.RegisterRoutes(router.Group(""))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	stop()
}
