// Package main is the entry point for the rentory API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentory/internal/config"
	"rentory/internal/domain"
	"rentory/internal/domain/auth"
	"rentory/internal/domain/catalogs/item"
	"rentory/internal/domain/catalogs/location"
	"rentory/internal/domain/documents/purchase_receipt"
	"rentory/internal/domain/documents/rental"
	"rentory/internal/domain/documents/sale"
	"rentory/internal/domain/ledger"
	"rentory/internal/domain/units"
	v1 "rentory/internal/infrastructure/http/v1"
	"rentory/internal/infrastructure/numerator"
	"rentory/internal/infrastructure/storage/postgres"
	"rentory/internal/infrastructure/storage/postgres/auth_repo"
	"rentory/internal/infrastructure/storage/postgres/catalog_repo"
	"rentory/internal/infrastructure/storage/postgres/document_repo"
	"rentory/internal/infrastructure/storage/postgres/ledger_repo"
	"rentory/internal/infrastructure/storage/postgres/units_repo"
	"rentory/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting rentory server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DB.DSN)
	poolCfg.MaxConns = cfg.DB.MaxConns
	poolCfg.MinConns = cfg.DB.MinConns
	poolCfg.MaxConnLifetime = cfg.DB.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.DB.MaxConnIdleTime

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// Numbering runs on the pool, outside business transactions: a rolled
	// back document must not roll back the sequence.
	numeratorService := numerator.New(pool)

	// --- Catalogs ---
	itemRepo := catalog_repo.NewItemRepo(txManager)
	itemService := item.NewService(itemRepo, txManager, numeratorService, log)

	locationRepo := catalog_repo.NewLocationRepo(txManager)
	locationService := location.NewService(locationRepo, txManager, numeratorService, log)

	// --- Stock ledger ---
	levelRepo := ledger_repo.NewLevelRepo(txManager)
	movementRepo := ledger_repo.NewMovementRepo(txManager)
	engine := ledger.NewEngine(levelRepo, movementRepo, itemService, locationService, txManager, log)

	// --- Documents ---
	receiptRepo := document_repo.NewPurchaseReceiptRepo(txManager)
	receiptService := purchase_receipt.NewService(receiptRepo, engine, numeratorService, txManager, log)

	rentalRepo := document_repo.NewRentalOrderRepo(txManager)
	rentalService := rental.NewService(rentalRepo, engine, numeratorService, txManager, log)

	saleRepo := document_repo.NewSaleInvoiceRepo(txManager)
	saleService := sale.NewService(saleRepo, engine, numeratorService, txManager, log)

	// --- Serialized units ---
	unitRepo := units_repo.NewUnitRepo(txManager)
	unitsService := units.NewService(unitRepo, engine, txManager, log)

	// --- Audit trail ---
	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}
	registerAuditHooks(auditService, itemService, locationService, receiptService, rentalService, saleService)

	// --- Auth ---
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWT.Secret))
	userRepo := auth_repo.NewUserRepo(txManager)
	tokenRepo := auth_repo.NewTokenRepo(txManager)
	authService := auth.NewService(userRepo, tokenRepo, txManager, jwtService, auth.DefaultServiceConfig(), log)

	// --- Idempotency ---
	var idempotencyStore *postgres.IdempotencyStore
	if cfg.Idempotency.Enabled {
		idempotencyStore = postgres.NewIdempotencyStore(txManager, cfg.Idempotency.TTL)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:                   pool,
		Logger:                 log,
		JWTValidator:           jwtService,
		AuthService:            authService,
		Engine:                 engine,
		ItemService:            itemService,
		LocationService:        locationService,
		PurchaseReceiptService: receiptService,
		RentalService:          rentalService,
		SaleService:            saleService,
		UnitsService:           unitsService,
		IdempotencyStore:       idempotencyStore,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// registerAuditHooks wires the audit trail into entity lifecycles. Audit
// failures are logged by the hook runner, never surfaced to callers.
func registerAuditHooks(
	audit *postgres.AuditService,
	itemService *item.Service,
	locationService *location.Service,
	receiptService *purchase_receipt.Service,
	rentalService *rental.Service,
	saleService *sale.Service,
) {
	itemService.Hooks().On(domain.AfterCreate, func(ctx context.Context, it *item.Item) error {
		return audit.LogChange(ctx, "item", it.ID, postgres.AuditActionCreate, map[string]any{
			"code": it.Code, "name": it.Name,
		})
	})
	itemService.Hooks().On(domain.AfterUpdate, func(ctx context.Context, it *item.Item) error {
		return audit.LogChange(ctx, "item", it.ID, postgres.AuditActionUpdate, map[string]any{
			"code": it.Code, "name": it.Name, "version": it.Version,
		})
	})
	itemService.Hooks().On(domain.AfterDelete, func(ctx context.Context, it *item.Item) error {
		return audit.LogChange(ctx, "item", it.ID, postgres.AuditActionDelete, nil)
	})

	locationService.Hooks().On(domain.AfterCreate, func(ctx context.Context, loc *location.Location) error {
		return audit.LogChange(ctx, "location", loc.ID, postgres.AuditActionCreate, map[string]any{
			"code": loc.Code, "name": loc.Name, "type": string(loc.Type),
		})
	})
	locationService.Hooks().On(domain.AfterUpdate, func(ctx context.Context, loc *location.Location) error {
		return audit.LogChange(ctx, "location", loc.ID, postgres.AuditActionUpdate, map[string]any{
			"code": loc.Code, "name": loc.Name, "version": loc.Version,
		})
	})
	locationService.Hooks().On(domain.AfterDelete, func(ctx context.Context, loc *location.Location) error {
		return audit.LogChange(ctx, "location", loc.ID, postgres.AuditActionDelete, nil)
	})

	receiptService.Hooks().On(domain.BeforeUpdate, func(ctx context.Context, doc *purchase_receipt.PurchaseReceipt) error {
		_ = audit.LogChange(ctx, "purchase_receipt", doc.ID, postgres.AuditActionUpdate, map[string]any{
			"number": doc.Number, "version": doc.Version,
		})
		return nil
	})
	rentalService.Hooks().On(domain.BeforeUpdate, func(ctx context.Context, doc *rental.RentalOrder) error {
		_ = audit.LogChange(ctx, "rental_order", doc.ID, postgres.AuditActionUpdate, map[string]any{
			"number": doc.Number, "version": doc.Version,
		})
		return nil
	})
	saleService.Hooks().On(domain.BeforeUpdate, func(ctx context.Context, doc *sale.SaleInvoice) error {
		_ = audit.LogChange(ctx, "sale_invoice", doc.ID, postgres.AuditActionUpdate, map[string]any{
			"number": doc.Number, "version": doc.Version,
		})
		return nil
	})
}
