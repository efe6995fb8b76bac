package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Almishev/pos-shop/internal/application"
	"github.com/Almishev/pos-shop/internal/domain"
	eventsinfra "github.com/Almishev/pos-shop/internal/infrastructure/events"
	mongorepo "github.com/Almishev/pos-shop/internal/infrastructure/mongodb"
	apperrors "github.com/Almishev/pos-shop/pkg/errors"
	"github.com/Almishev/pos-shop/pkg/idempotency"
	"github.com/Almishev/pos-shop/pkg/kafka"
	"github.com/Almishev/pos-shop/pkg/logging"
	"github.com/Almishev/pos-shop/pkg/metrics"
	"github.com/Almishev/pos-shop/pkg/middleware"
	"github.com/Almishev/pos-shop/pkg/mongodb"
)

const serviceName = "inventory-service"

func main() {
	logger := logging.New(&logging.Config{
		Level:       logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		ServiceName: serviceName,
		Environment: getEnv("ENVIRONMENT", "development"),
		Version:     getEnv("VERSION", "unknown"),
	})
	logger.SetDefault()

	m := metrics.New(serviceName)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mongoClient, err := mongodb.NewClient(ctx, mongodb.DefaultConfig(
		getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		getEnv("MONGODB_DATABASE", "pos_inventory"),
	))
	if err != nil {
		logger.Error("MongoDB connection failed", "error", err.Error())
		os.Exit(1)
	}

	itemRepo, err := mongorepo.NewItemRepository(ctx, mongoClient)
	if err != nil {
		logger.Error("Item repository init failed", "error", err.Error())
		os.Exit(1)
	}
	ledgerRepo := mongorepo.NewLedgerRepository(mongoClient)
	adjustmentRepo, err := mongorepo.NewAdjustmentRepository(ctx, mongoClient)
	if err != nil {
		logger.Error("Adjustment repository init failed", "error", err.Error())
		os.Exit(1)
	}
	alertRepo, err := mongorepo.NewAlertRepository(ctx, mongoClient)
	if err != nil {
		logger.Error("Alert repository init failed", "error", err.Error())
		os.Exit(1)
	}
	keyStore, err := idempotency.NewMongoStore(ctx, mongoClient.Database(), idempotency.DefaultTTL)
	if err != nil {
		logger.Error("Idempotency store init failed", "error", err.Error())
		os.Exit(1)
	}

	producer := kafka.NewProducer(kafka.DefaultConfig(serviceName), logger, m)
	publisher := eventsinfra.NewPublisher(producer, "/pos/"+serviceName)

	alertService := application.NewAlertService(alertRepo, publisher, logger, m)
	stockService := application.NewStockService(itemRepo, adjustmentRepo, keyStore, alertService, publisher, logger, m)
	summaryService := application.NewSummaryService(itemRepo, ledgerRepo, adjustmentRepo, alertRepo, logger)

	if getEnv("ENVIRONMENT", "development") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	middleware.Setup(router, logger)
	router.Use(middleware.Metrics(m))
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, map[string]middleware.HealthChecker{
		"mongodb": mongoClient.HealthCheck,
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	api := router.Group("/api/v1/inventory")
	registerRoutes(api, logger, stockService, alertService, summaryService)

	srv := &http.Server{
		Addr:         ":" + getEnv("PORT", "8080"),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err.Error())
	}
	if err := producer.Close(); err != nil {
		logger.Error("Kafka producer close failed", "error", err.Error())
	}
	if err := mongoClient.Close(shutdownCtx); err != nil {
		logger.Error("MongoDB close failed", "error", err.Error())
	}
	logger.Info("Shutdown complete")
}

type createItemRequest struct {
	ItemID        string `json:"itemId" binding:"required"`
	Name          string `json:"name" binding:"required"`
	Barcode       string `json:"barcode"`
	MinStockLevel *int   `json:"minStockLevel" binding:"omitempty,gte=0"`
	MaxStockLevel *int   `json:"maxStockLevel" binding:"omitempty,gt=0"`
	ReorderPoint  *int   `json:"reorderPoint" binding:"omitempty,gte=0"`
	UnitOfMeasure string `json:"unitOfMeasure"`
	SupplierName  string `json:"supplierName"`
	SupplierCode  string `json:"supplierCode"`
	CostPrice     *int64 `json:"costPrice" binding:"omitempty,gte=0"`
}

type stockRequest struct {
	ItemID          string `json:"itemId" binding:"required"`
	Quantity        int    `json:"quantity" binding:"required"`
	TransactionType string `json:"transactionType"`
	UnitPrice       *int64 `json:"unitPrice" binding:"omitempty,gte=0"`
	ReferenceNumber string `json:"referenceNumber"`
	ReferenceType   string `json:"referenceType"`
	Notes           string `json:"notes"`
	Actor           string `json:"actor" binding:"required"`
}

type setStockRequest struct {
	ItemID          string `json:"itemId" binding:"required"`
	Quantity        *int   `json:"quantity" binding:"required,gte=0"`
	UnitPrice       *int64 `json:"unitPrice" binding:"omitempty,gte=0"`
	ReferenceNumber string `json:"referenceNumber"`
	Notes           string `json:"notes"`
	Actor           string `json:"actor" binding:"required"`
}

type adjustStockRequest struct {
	ItemID         string `json:"itemId" binding:"required"`
	AdjustmentType string `json:"adjustmentType" binding:"required"`
	Quantity       int    `json:"quantity" binding:"required"`
	Reason         string `json:"reason" binding:"required"`
	Notes          string `json:"notes"`
	Actor          string `json:"actor" binding:"required"`
}

type saleRequest struct {
	ItemID      string `json:"itemId" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	UnitPrice   *int64 `json:"unitPrice" binding:"omitempty,gte=0"`
	OrderNumber string `json:"orderNumber"`
	Actor       string `json:"actor" binding:"required"`
}

type purchaseRequest struct {
	ItemID         string `json:"itemId" binding:"required"`
	Quantity       int    `json:"quantity" binding:"required,gt=0"`
	UnitPrice      *int64 `json:"unitPrice" binding:"omitempty,gte=0"`
	PurchaseNumber string `json:"purchaseNumber"`
	Actor          string `json:"actor" binding:"required"`
}

type raiseAlertRequest struct {
	ItemID            string `json:"itemId" binding:"required"`
	AlertType         string `json:"alertType" binding:"required"`
	Message           string `json:"message" binding:"required"`
	CurrentQuantity   int    `json:"currentQuantity"`
	ThresholdQuantity int    `json:"thresholdQuantity"`
}

type resolveAlertRequest struct {
	ResolvedBy string `json:"resolvedBy" binding:"required"`
}

func registerRoutes(
	api *gin.RouterGroup,
	logger *logging.Logger,
	stocks *application.StockService,
	alerts *application.AlertService,
	summaries *application.SummaryService,
) {
	api.POST("/items", func(c *gin.Context) {
		var req createItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.RespondWithError(c, logger, apperrors.NewValidation("invalid request body").WithCause(err))
			return
		}

		view, err := stocks.CreateItem(c.Request.Context(), application.CreateItemCommand{
			ItemID:        req.ItemID,
			Name:          req.Name,
			Barcode:       req.Barcode,
			MinStockLevel: req.MinStockLevel,
			MaxStockLevel: req.MaxStockLevel,
			ReorderPoint:  req.ReorderPoint,
			UnitOfMeasure: req.UnitOfMeasure,
			SupplierName:  req.SupplierName,
			SupplierCode:  req.SupplierCode,
			CostPrice:     req.CostPrice,
		})
		if err != nil {
			middleware.RespondWithError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, view)
	})

	api.GET("/items", func(c *gin.Context) {
		limit := queryInt(c, "limit", 50)
		offset := queryInt(c, "offset", 0)
		views, err := summaries.AllItems(c.Request.Context(), limit, offset)
		if err != nil {
			middleware.RespondWithError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": views, "count": len(views)})
	})

	api.DELETE("/items/:itemId", func(c *gin.Context) {
		if err := stocks.DeleteItem(c.Request.Context(), c.Param("itemId")); err != nil {
			middleware.RespondWithError(c, logger, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	api.POST("/stock/add", func(c *gin.Context) {
		var req stockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.RespondWithError(c, logger, apperrors.NewValidation("invalid request body").WithCause(err))
			return
		}
		result, err := stocks.AddStock(c.Request.Context(), stockCommand(c, req))
		if err != nil {
			middleware.RespondWithError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})

	api.POST("/stock/remove", func(c *gin.Context) {
		var req stockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.RespondWithError(c, logger, apperrors.NewValidation("invalid request body").WithCause(err))
			return
		}
		result, err := stocks.RemoveStock(c.Request.Context(), stockCommand(c, req))
		if err != nil {
			middleware.RespondWithError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})

	api.POST("/stock/set", func(c *gin.Context) {
		var req setStockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.RespondWithError(c, logger, apperrors.NewValidation("invalid request body").WithCause(err))
			return
		}
		result, err := stocks.SetStock(c.Request.Context(), application.StockCommand{
			ItemID:          req.ItemID,
			Quantity:        *req.Quantity,
			UnitPrice:       req.UnitPrice,
			ReferenceNumber: req.ReferenceNumber,
			Notes:           req.Notes,
			Actor:           req.Actor,
			IdempotencyKey:  c.GetHeader("X-Idempotency-Key"),
		})
		if err != nil {
			middleware.RespondWithError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})

	api.POST("/stock/adjust", func(c *gin.Context) {
		var req adjustStockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.RespondWithError(c, logger, apperrors.NewValidation("invalid request body").WithCause(err))
			return
		}
		result, err := stocks.AdjustStock(c.Request.Context(), application.AdjustStockCommand{
			ItemID:         req.ItemID,
			AdjustmentType: req.AdjustmentType,
			Quantity:       req.Quantity,
			Reason:         req.Reason,
			Notes:          req.Notes,
			Actor:          req.Actor,
			IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
		})
		if err != nil {
			middleware.RespondWithError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})

	// Static stock routes must register before the :itemId wildcard.
	api.GET("/stock/low", func(c *gin.Context) {
		views, err := summaries.LowStockItems(c.Request.Context())
		if err != nil {
			middleware.RespondWithError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": views, "count": len(views)})
	})

	api.GET("/stock/out-of-stock", func(c *gin.Context) {
		views, err := summaries.OutOfStockItems(c.Request.Context())
		if err != nil {
			middleware.RespondWithError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": views, "count": len(views)})
	})

	api.GET("/stock/overstock", func(c *gin.Context) {
		views, err := summaries.OverstockItems(c.Request.Context())
		if err != nil {
			middleware.RespondWithError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": views, "count": len(views)})
	})

	api.GET("/stock/:itemId", func(c *gin.Context) {
		view, err := summaries.ItemStock(c.Request.Context(), c.Param("itemId"))
		if err != nil {
			middleware.RespondWithError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, view)
	})

	api.GET("/summary", func(c *gin.Context) {
		summary, err := summaries.Summary(c.Request.Context())
		if err != nil {
			middleware.RespondWithError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	})

	api.GET("/transactions/recent", func(c *gin.Context) {
		entries, err := summaries.RecentTransactions(c.Request.Context(), queryInt(c, "limit", 10))
		if err != nil {
			middleware.RespondWithError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"transactions": entries, "count": len(entries)})
	})

	api.GET("/transactions/:itemId", func(c *gin.Context) {
		history, err := summaries.ItemHistory(c.Request.Context(), c.Param("itemId"))
		if err != nil {
			middleware.RespondWithError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, history)
	})

	api.GET("/alerts", func(c *gin.Context) {
		active, err := alerts.ActiveAlerts(c.Request.Context())
		if err != nil {
			middleware.RespondWithError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"alerts": active, "count": len(active)})
	})

	api.GET("/alerts/item/:itemId", func(c *gin.Context) {
		active, err := alerts.ActiveAlertsForItem(c.Request.Context(), c.Param("itemId"))
		if err != nil {
			middleware.RespondWithError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"alerts": active, "count": len(active)})
	})

	api.POST("/alerts", func(c *gin.Context) {
		var req raiseAlertRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.RespondWithError(c, logger, apperrors.NewValidation("invalid request body").WithCause(err))
			return
		}
		alerts.RaiseManual(c.Request.Context(), req.ItemID, domain.AlertType(req.AlertType), req.Message, req.CurrentQuantity, req.ThresholdQuantity)
		c.Status(http.StatusAccepted)
	})

	api.POST("/alerts/:alertId/resolve", func(c *gin.Context) {
		var req resolveAlertRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.RespondWithError(c, logger, apperrors.NewValidation("resolvedBy is required").WithCause(err))
			return
		}
		if err := alerts.Resolve(c.Request.Context(), c.Param("alertId"), req.ResolvedBy); err != nil {
			middleware.RespondWithError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"alertId": c.Param("alertId"), "resolved": true})
	})

	api.POST("/auto/sale", func(c *gin.Context) {
		var req saleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.RespondWithError(c, logger, apperrors.NewValidation("invalid request body").WithCause(err))
			return
		}
		result, err := stocks.ProcessSale(c.Request.Context(), application.SaleCommand{
			ItemID:         req.ItemID,
			Quantity:       req.Quantity,
			UnitPrice:      req.UnitPrice,
			OrderNumber:    req.OrderNumber,
			Actor:          req.Actor,
			IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
		})
		if err != nil {
			middleware.RespondWithError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})

	api.POST("/auto/purchase", func(c *gin.Context) {
		var req purchaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.RespondWithError(c, logger, apperrors.NewValidation("invalid request body").WithCause(err))
			return
		}
		result, err := stocks.ProcessPurchase(c.Request.Context(), application.PurchaseCommand{
			ItemID:         req.ItemID,
			Quantity:       req.Quantity,
			UnitPrice:      req.UnitPrice,
			PurchaseNumber: req.PurchaseNumber,
			Actor:          req.Actor,
			IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
		})
		if err != nil {
			middleware.RespondWithError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
}

func stockCommand(c *gin.Context, req stockRequest) application.StockCommand {
	return application.StockCommand{
		ItemID:          req.ItemID,
		Quantity:        req.Quantity,
		TransactionType: req.TransactionType,
		UnitPrice:       req.UnitPrice,
		ReferenceNumber: req.ReferenceNumber,
		ReferenceType:   req.ReferenceType,
		Notes:           req.Notes,
		Actor:           req.Actor,
		IdempotencyKey:  c.GetHeader("X-Idempotency-Key"),
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
