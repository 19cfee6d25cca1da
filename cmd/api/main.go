package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"project-report-api/config"
	"project-report-api/controllers"
	"project-report-api/middleware"
	"project-report-api/models"
	"project-report-api/routes"
	"project-report-api/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logFile, _ := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	// Initialize database and mail relay
	config.InitDB()
	config.InitMailer()

	if err := config.DB.AutoMigrate(
		&models.User{},
		&models.Report{},
		&models.EmailOutbox{},
		&models.UserToken{},
	); err != nil {
		log.Fatal("Failed to migrate schema:", err)
	}

	// Wire the report pipeline
	store := services.NewGormReportStore(config.DB)
	renderer := services.NewCertificateRenderer()
	dispatcher := services.NewDispatcher(config.DB, config.Mailer)
	controllers.InitReportService(services.NewReportService(store, renderer, dispatcher))

	// Background outbox drain; stops on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go dispatcher.Run(ctx)

	// Set Gin mode
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Per-request deadline for store and dispatch calls
	router.Use(func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(reqCtx)
		c.Next()
	})

	// Security headers
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	router.Use(middleware.CORSMiddleware())

	routes.SetupRoutes(router)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 Server starting on port %s", port)
	log.Printf("📊 Database connected successfully")
	log.Printf("📬 Outbox dispatcher running")

	if ginMode == "release" {
		log.Printf("🏭 Running in production mode")
	} else {
		log.Printf("🔧 Running in development mode")
	}

	if err := router.Run(":" + port); err != nil {
		log.Fatal("❌ Failed to start server:", err)
	}
}
