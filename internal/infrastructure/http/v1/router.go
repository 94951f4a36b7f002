// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"rentory/internal/domain/auth"
	"rentory/internal/domain/catalogs/item"
	"rentory/internal/domain/catalogs/location"
	"rentory/internal/domain/documents/purchase_receipt"
	"rentory/internal/domain/documents/rental"
	"rentory/internal/domain/documents/sale"
	"rentory/internal/domain/ledger"
	"rentory/internal/domain/units"
	"rentory/internal/infrastructure/http/v1/handlers"
	"rentory/internal/infrastructure/http/v1/middleware"
	"rentory/internal/infrastructure/storage/postgres"
	"rentory/pkg/logger"
)

// RouterConfig holds the constructed services the router wires handlers to.
type RouterConfig struct {
	// Pool is the database connection (for health checks)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// AuthService for authentication endpoints
	AuthService *auth.Service

	// Engine is the stock ledger allocation engine
	Engine *ledger.Engine

	// Catalog services
	ItemService     *item.Service
	LocationService *location.Service

	// Document services
	PurchaseReceiptService *purchase_receipt.Service
	RentalService          *rental.Service
	SaleService            *sale.Service

	// UnitsService for serialized inventory
	UnitsService *units.Service

	// IdempotencyStore enables idempotency middleware when non-nil
	IdempotencyStore *postgres.IdempotencyStore
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

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	v1 := router.Group("/api/v1")
	{
		registerAuthRoutes(v1, cfg)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))
		if cfg.IdempotencyStore != nil {
			protected.Use(middleware.Idempotency(cfg.IdempotencyStore))
		}

		registerCatalogRoutes(protected, cfg)
		registerStockRoutes(protected, cfg)
		registerDocumentRoutes(protected, cfg)
		registerUnitRoutes(protected, cfg)
		registerUserRoutes(protected, cfg)
	}

	return router
}

// registerAuthRoutes registers authentication endpoints.
func registerAuthRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.AuthService == nil {
		return
	}

	handler := handlers.NewAuthHandler(cfg.AuthService)

	public := rg.Group("/auth")
	{
		public.POST("/login", handler.Login)
		public.POST("/refresh", handler.Refresh)
	}

	protected := rg.Group("/auth")
	protected.Use(middleware.Auth(cfg.JWTValidator))
	{
		protected.POST("/logout", handler.Logout)
		protected.POST("/change-password", handler.ChangePassword)
		protected.GET("/me", handler.Me)
	}
}

// registerUserRoutes registers user administration endpoints.
func registerUserRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.AuthService == nil {
		return
	}

	handler := handlers.NewAuthHandler(cfg.AuthService)
	admin := rg.Group("/users")
	admin.Use(middleware.RequireRole("admin"))
	{
		admin.POST("", handler.Register)
		admin.GET("", handler.ListUsers)
		admin.GET("/:id", handler.GetUser)
	}
}

// registerCatalogRoutes registers item and location catalog endpoints.
func registerCatalogRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	itemHandler := handlers.NewItemHandler(cfg.ItemService)
	items := rg.Group("/items")
	{
		items.POST("", itemHandler.Create)
		items.GET("", itemHandler.List)
		items.GET("/:id", itemHandler.Get)
		items.GET("/sku/:sku", itemHandler.GetBySKU)
		items.PUT("/:id", itemHandler.Update)
		items.DELETE("/:id", itemHandler.Delete)
		items.POST("/:id/deletion-mark", itemHandler.SetDeletionMark)
	}

	locationHandler := handlers.NewLocationHandler(cfg.LocationService)
	locations := rg.Group("/locations")
	{
		locations.POST("", locationHandler.Create)
		locations.GET("", locationHandler.List)
		locations.GET("/:id", locationHandler.Get)
		locations.PUT("/:id", locationHandler.Update)
		locations.DELETE("/:id", locationHandler.Delete)
		locations.POST("/:id/deletion-mark", locationHandler.SetDeletionMark)
	}
}

// registerStockRoutes registers stock ledger endpoints. Manual quantity
// operations are restricted to stock managers.
func registerStockRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	handler := handlers.NewStockHandler(cfg.Engine)
	stock := rg.Group("/stock")
	{
		stock.GET("/levels/:id", handler.GetLevel)
		stock.GET("/levels/:id/movements", handler.GetTrail)
		stock.GET("/levels/:id/consistency", handler.CheckConsistency)
		stock.GET("/locations/:locationId/levels", handler.ListLevels)
		stock.GET("/locations/:locationId/items/:itemId", handler.GetLevelByPair)
		stock.GET("/movements", handler.ListMovements)
		stock.GET("/items/:itemId/summary", handler.GetSummary)
		stock.POST("/check-availability", handler.CheckAvailability)

		manage := stock.Group("")
		manage.Use(middleware.RequireRole("stock_manager"))
		{
			manage.POST("/levels", handler.CreateLevel)
			manage.POST("/levels/:id/adjust", handler.Adjust)
			manage.POST("/levels/:id/write-off", handler.WriteOff)
			manage.POST("/transfer", handler.Transfer)
			manage.POST("/levels/:id/deactivate", handler.Deactivate)
		}
	}
}

// registerDocumentRoutes registers document endpoints.
func registerDocumentRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	receiptHandler := handlers.NewPurchaseReceiptHandler(cfg.PurchaseReceiptService)
	receipts := rg.Group("/purchase-receipts")
	{
		receipts.POST("", receiptHandler.Create)
		receipts.GET("", receiptHandler.List)
		receipts.GET("/:id", receiptHandler.Get)
		receipts.PUT("/:id", receiptHandler.Update)
		receipts.DELETE("/:id", receiptHandler.Delete)
		receipts.POST("/:id/post", receiptHandler.Post)
		receipts.POST("/:id/unpost", receiptHandler.Unpost)
	}

	rentalHandler := handlers.NewRentalHandler(cfg.RentalService)
	rentals := rg.Group("/rental-orders")
	{
		rentals.POST("", rentalHandler.Create)
		rentals.GET("", rentalHandler.List)
		rentals.GET("/:id", rentalHandler.Get)
		rentals.PUT("/:id", rentalHandler.Update)
		rentals.DELETE("/:id", rentalHandler.Delete)
		rentals.POST("/:id/validate", rentalHandler.ValidateAvailability)
		rentals.POST("/:id/post", rentalHandler.Post)
		rentals.POST("/:id/returns", rentalHandler.RegisterReturn)
	}

	saleHandler := handlers.NewSaleHandler(cfg.SaleService)
	sales := rg.Group("/sale-invoices")
	{
		sales.POST("", saleHandler.Create)
		sales.GET("", saleHandler.List)
		sales.GET("/:id", saleHandler.Get)
		sales.PUT("/:id", saleHandler.Update)
		sales.DELETE("/:id", saleHandler.Delete)
		sales.POST("/:id/validate", saleHandler.ValidateAvailability)
		sales.POST("/:id/post", saleHandler.Post)
		sales.POST("/:id/unpost", saleHandler.Unpost)
	}
}

// registerUnitRoutes registers serialized inventory unit endpoints.
func registerUnitRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.UnitsService == nil {
		return
	}

	handler := handlers.NewUnitHandler(cfg.UnitsService)
	unitsGroup := rg.Group("/units")
	{
		unitsGroup.POST("", handler.Register)
		unitsGroup.GET("", handler.List)
		unitsGroup.GET("/:id", handler.Get)
		unitsGroup.POST("/:id/transition", handler.Transition)
		unitsGroup.POST("/:id/retire", handler.Retire)
		unitsGroup.GET("/reconcile/:locationId/:itemId", handler.Reconcile)
	}
}
