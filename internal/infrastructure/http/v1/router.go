// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"taller/internal/domain/catalogs/item"
	"taller/internal/domain/ledger"
	"taller/internal/domain/maintenance"
	"taller/internal/domain/movements"
	"taller/internal/infrastructure/http/v1/handlers"
	"taller/internal/infrastructure/http/v1/middleware"
	"taller/internal/infrastructure/storage/postgres"
	"taller/pkg/logger"
	"taller/pkg/numerator"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks).
	Pool *postgres.Pool

	// TxManager runs coordinator operations as transactions.
	TxManager *postgres.TxManager

	// Logger for request logging.
	Logger *logger.Logger

	// Numerator generates movement document numbers.
	Numerator numerator.Generator

	// Auditor records movement change history.
	Auditor movements.Auditor

	// AuditReader serves the recorded history back.
	AuditReader movements.AuditReader
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// Repositories and services share the tx manager so operations started
	// by the coordinator see one consistent transaction.
	itemRepo := postgres.NewItemRepo(cfg.TxManager)
	movementRepo := postgres.NewMovementRepo(cfg.TxManager)
	maintenanceRepo := postgres.NewMaintenanceRepo(cfg.TxManager)

	ledgerService := ledger.NewService(itemRepo)
	itemService := item.NewService(itemRepo)
	maintenanceService := maintenance.NewService(maintenanceRepo)
	movementService := movements.NewService(
		movementRepo,
		ledgerService,
		itemRepo,
		maintenanceRepo,
		cfg.TxManager,
		cfg.Numerator,
		cfg.Auditor,
	)

	baseHandler := handlers.NewBaseHandler()
	itemHandler := handlers.NewItemHandler(baseHandler, itemService)
	movementHandler := handlers.NewMovementHandler(baseHandler, movementService, cfg.AuditReader)
	maintenanceHandler := handlers.NewMaintenanceHandler(baseHandler, maintenanceService)

	v1 := router.Group("/api/v1")
	{
		itemsGroup := v1.Group("/items")
		itemHandler.RegisterRoutes(itemsGroup)
		itemsGroup.GET("/:id/stock", movementHandler.Stock)
		itemsGroup.GET("/:id/movements", movementHandler.ListByItem)

		movementHandler.RegisterRoutes(v1.Group("/movements"))
		maintenanceHandler.RegisterRoutes(v1.Group("/maintenance-records"))
	}

	return router
}
