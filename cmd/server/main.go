package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/cuikww/Obis-project/internal/config"
	"github.com/cuikww/Obis-project/internal/database"
	"github.com/cuikww/Obis-project/internal/handlers"
	"github.com/cuikww/Obis-project/internal/middleware"
	"github.com/cuikww/Obis-project/internal/models"
	"github.com/cuikww/Obis-project/internal/services"
	"github.com/cuikww/Obis-project/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Obis ticketing backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize repositories
	userRepo := database.NewUserRepository(db)
	cityRepo := database.NewCityRepository(db)
	terminalRepo := database.NewTerminalRepository(db)
	operatorRepo := database.NewOperatorRepository(db)
	busRepo := database.NewBusRepository(db)
	seatRepo := database.NewSeatRepository(db)
	ticketRepo := database.NewTicketRepository(db)
	orderRepo := database.NewOrderRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	authService := services.NewAuthService(userRepo, jwtService, logger)
	midtransService := services.NewMidtransService(&cfg.Payment, logger)
	batchService := services.NewBatchService(ticketRepo, seatRepo, busRepo, terminalRepo, logger)
	searchService := services.NewSearchService(ticketRepo, logger)
	orderService := services.NewOrderService(orderRepo, ticketRepo, busRepo, midtransService, logger)
	expirationService := services.NewOrderExpirationService(orderRepo, ticketRepo, cfg.Reservation, logger)
	cronService := services.NewCronService(ticketRepo, orderRepo, cfg.Reservation, logger)

	if !midtransService.IsConfigured() {
		logger.Warn("Midtrans server key not configured, online payments will fail")
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, logger)
	cityHandler := handlers.NewCityHandler(cityRepo)
	terminalHandler := handlers.NewTerminalHandler(terminalRepo, cityRepo)
	operatorHandler := handlers.NewOperatorHandler(operatorRepo)
	busHandler := handlers.NewBusHandler(busRepo, operatorRepo)
	seatHandler := handlers.NewSeatHandler(seatRepo, busRepo)
	ticketHandler := handlers.NewTicketHandler(batchService, searchService, logger)
	orderHandler := handlers.NewOrderHandler(orderService, userRepo, logger)
	paymentHandler := handlers.NewPaymentHandler(orderService, logger)

	// Initialize router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	api := router.Group("/api/v1")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Payment gateway webhook (authenticated by signature, not JWT)
		api.POST("/payments/notification", paymentHandler.Notification)

		// Public directory reads and customer search
		api.GET("/cities", cityHandler.GetAll)
		api.GET("/cities/:id", cityHandler.GetByID)
		api.GET("/terminals", terminalHandler.GetAll)
		api.GET("/terminals/:id", terminalHandler.GetByID)
		api.GET("/search/batches", ticketHandler.Search)
		api.GET("/batches/:batchId/seats", ticketHandler.GetBatchDetail)

		// Platform admin directory management
		admin := api.Group("/")
		admin.Use(middleware.AuthMiddleware(jwtService), middleware.RequireRole(models.RoleSuperAdmin))
		{
			admin.POST("/cities", cityHandler.Create)
			admin.PUT("/cities/:id", cityHandler.Update)
			admin.DELETE("/cities/:id", cityHandler.Delete)

			admin.POST("/terminals", terminalHandler.Create)
			admin.PUT("/terminals/:id", terminalHandler.Update)
			admin.DELETE("/terminals/:id", terminalHandler.Delete)

			admin.POST("/operators", operatorHandler.Create)
			admin.GET("/operators", operatorHandler.GetAll)
			admin.GET("/operators/:id", operatorHandler.GetByID)
			admin.PUT("/operators/:id", operatorHandler.Update)
			admin.DELETE("/operators/:id", operatorHandler.Delete)
		}

		// Operator fleet and inventory management
		operator := api.Group("/")
		operator.Use(middleware.AuthMiddleware(jwtService), middleware.RequireRole(models.RoleOperator, models.RoleSuperAdmin))
		{
			operator.POST("/buses", busHandler.Create)
			operator.GET("/buses", busHandler.GetAll)
			operator.GET("/buses/:id", busHandler.GetByID)
			operator.PUT("/buses/:id", busHandler.Update)
			operator.DELETE("/buses/:id", busHandler.Delete)
			operator.GET("/buses/:id/seats", seatHandler.GetByBus)

			operator.POST("/seats", seatHandler.Add)
			operator.POST("/seats/initialize", seatHandler.Initialize)
			operator.DELETE("/seats/:id", seatHandler.Delete)

			operator.POST("/batches", ticketHandler.CreateBatch)
			operator.GET("/batches/:batchId", ticketHandler.GetBatch)
			operator.PUT("/batches/:batchId", ticketHandler.UpdateBatch)
			operator.DELETE("/batches/:batchId", ticketHandler.DeleteBatch)

			operator.GET("/tickets/:id", ticketHandler.GetTicket)
			operator.PUT("/tickets/:id", ticketHandler.UpdateTicket)
			operator.DELETE("/tickets/:id", ticketHandler.DeleteTicket)

			operator.POST("/offline-orders", orderHandler.CreateOffline)
			operator.PUT("/offline-orders/:id", orderHandler.UpdateOffline)
			operator.DELETE("/offline-orders/:id", orderHandler.DeleteOffline)
			operator.GET("/operator/orders", orderHandler.GetOperatorOrders)
		}

		// Customer ordering
		customer := api.Group("/")
		customer.Use(middleware.AuthMiddleware(jwtService))
		{
			customer.POST("/orders", orderHandler.CreateOnline)
			customer.GET("/orders", orderHandler.GetMyOrders)
			customer.GET("/orders/:id", orderHandler.GetByID)
			customer.POST("/orders/:id/cancel", orderHandler.Cancel)
		}
	}

	// Start background services
	expirationService.Start()
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	expirationService.Stop()
	cronService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		entry := logger.WithFields(fields)

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := "healthy"
		if err := db.Ping(); err != nil {
			dbStatus = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": dbStatus,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  dbStatus,
			"version":   version,
			"timestamp": time.Now().UTC(),
		})
	}
}
