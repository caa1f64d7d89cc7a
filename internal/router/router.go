// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/paydesk/commission-backend/internal/config"
	"github.com/paydesk/commission-backend/internal/handlers"
	"github.com/paydesk/commission-backend/internal/ingest"
	"github.com/paydesk/commission-backend/internal/jobs"
	"github.com/paydesk/commission-backend/internal/middleware"
	"github.com/paydesk/commission-backend/internal/models"
	"github.com/paydesk/commission-backend/internal/services"
	"github.com/paydesk/commission-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config, queue *jobs.Queue) *gin.Engine {
	// Initialize services
	notificationService := services.NewNotificationService(cfg)
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage service")
	}

	authService := services.NewAuthService(db, cfg)
	commissionService := services.NewCommissionService(db)
	settlementService := services.NewSettlementService(db)
	reversalService := services.NewReversalService(db)
	expirationService := services.NewExpirationService(db, cfg.Commission.CutoffDay)
	normalizer := ingest.NewCSVNormalizer(cfg.Commission.DateLocale)
	ingestionService := services.NewIngestionService(db, cfg, queue, normalizer, expirationService, notificationService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	commissionHandler := handlers.NewCommissionHandler(commissionService)
	settlementHandler := handlers.NewSettlementHandler(settlementService, reversalService, commissionService, authService, storageService)
	ingestionHandler := handlers.NewIngestionHandler(ingestionService, authService, storageService)
	expirationHandler := handlers.NewExpirationHandler(expirationService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
			auth.POST("/operators", middleware.AuthRequired(), middleware.AdminRequired(), authHandler.CreateOperator)
		}

		// Commission read surface
		commissions := v1.Group("/commissions")
		commissions.Use(middleware.AuthRequired())
		{
			commissions.GET("", commissionHandler.ListByPOS)
			commissions.GET("/totals", commissionHandler.Totals)
			commissions.GET("/routes", commissionHandler.ListRoutes)
			commissions.GET("/pos/:posId", commissionHandler.ListForPOS)
		}

		// Settlement routes
		settlements := v1.Group("/settlements")
		settlements.Use(middleware.AuthRequired())
		{
			settlements.GET("", settlementHandler.ListBatches)
			settlements.GET("/:id", settlementHandler.GetBatch)
			settlements.POST("", middleware.CapabilityRequired(models.CapabilitySettle), settlementHandler.Settle)
			settlements.POST("/attachments", middleware.CapabilityRequired(models.CapabilitySettle), middleware.UploadRateLimit(), settlementHandler.UploadAttachment)
			settlements.PUT("/:id", middleware.CapabilityRequired(models.CapabilityReverse), settlementHandler.UpdateBatch)
			settlements.DELETE("/:id", middleware.CapabilityRequired(models.CapabilityReverse), settlementHandler.Reverse)
		}

		// Ingestion routes
		ingestions := v1.Group("/ingestions")
		ingestions.Use(middleware.AuthRequired())
		{
			ingestions.POST("", middleware.CapabilityRequired(models.CapabilityIngest), middleware.UploadRateLimit(), ingestionHandler.Upload)
			ingestions.GET("/:id", ingestionHandler.GetBatch)
		}

		// Expiration routes
		expirations := v1.Group("/expirations")
		expirations.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			expirations.POST("/run", expirationHandler.RunInactivity)
		}
	}

	// Static file serving (for development)
	if cfg.Environment == "development" {
		r.Static("/uploads", "./uploads")
	}

	return r
}
