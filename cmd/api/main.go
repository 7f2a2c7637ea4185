package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	_ "backend/api/swagger" // swagger docs
	"backend/internal/database"
	"backend/internal/handler"
	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/storage"
	"backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Procurement Approval API
// @version         1.0
// @description     Approval workflow engine for procurement requests: routing, multi-level approvals, item decisions and fulfilment tracking.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Object store for request attachments (optional; portal works without it)
	var objectStore *storage.ObjectStore
	if endpoint := os.Getenv("MINIO_ENDPOINT"); endpoint != "" {
		useSSL, _ := strconv.ParseBool(os.Getenv("MINIO_USE_SSL"))
		bucket := os.Getenv("MINIO_BUCKET")
		if bucket == "" {
			bucket = "request-attachments"
		}
		objectStore, err = storage.NewObjectStore(
			endpoint,
			os.Getenv("MINIO_ACCESS_KEY"),
			os.Getenv("MINIO_SECRET_KEY"),
			bucket,
			useSSL,
		)
		if err != nil {
			log.Fatalf("Object store connection failed: %v", err)
		}
		log.Println("Connected to MinIO successfully.")
	} else {
		log.Println("MINIO_ENDPOINT not set, attachment endpoints disabled")
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Permission middleware shares one cache across all route groups
	perms := middleware.NewPermissions(db)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	routeRepo := repository.NewRouteRepository(db)

	notificationService := service.NewNotificationService(db, wsHub)
	userService := service.NewUserService(userRepo, tokenRepo, txManager)
	requestService := service.NewRequestService(db, notificationService)
	approvalService := service.NewApprovalService(db, notificationService)
	itemService := service.NewItemService(db)
	sweeperService := service.NewSweeperService(db, notificationService)
	departmentService := service.NewDepartmentService(db)
	routeService := service.NewRouteService(routeRepo)
	auditService := service.NewAuditService(db)
	statisticsService := service.NewStatisticsService(db)
	roleService := service.NewRoleService(db)

	// Seed role catalog so the permission middleware has data on first boot
	if err := roleService.SeedDefaultRolesAndPermissions(context.Background()); err != nil {
		log.Printf("WARNING: failed to seed roles and permissions: %v", err)
	}

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService, perms)
	requestHandler := handler.NewRequestHandler(requestService, perms)
	approvalHandler := handler.NewApprovalHandler(approvalService, itemService, perms)
	routeHandler := handler.NewRouteHandler(routeService, sweeperService, perms)
	departmentHandler := handler.NewDepartmentHandler(departmentService, perms)
	notificationHandler := handler.NewNotificationHandler(notificationService, wsHub, perms)
	auditHandler := handler.NewAuditHandler(auditService, perms)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService, perms)
	roleHandler := handler.NewRoleHandler(roleService, perms)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// Register API Routes
	api := router.Group("")
	userHandler.RegisterRoutes(api)
	requestHandler.RegisterRoutes(api)
	approvalHandler.RegisterRoutes(api)
	routeHandler.RegisterRoutes(api)
	departmentHandler.RegisterRoutes(api)
	notificationHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)
	statisticsHandler.RegisterRoutes(api)
	roleHandler.RegisterRoutes(api)

	if objectStore != nil {
		attachmentService := service.NewAttachmentService(db, objectStore)
		attachmentHandler := handler.NewAttachmentHandler(attachmentService, perms)
		attachmentHandler.RegisterRoutes(api)
	}

	// Periodic sweep so stalled approvals recover without operator action
	sweepInterval := 15 * time.Minute
	if v := os.Getenv("SWEEP_INTERVAL_MINUTES"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			sweepInterval = time.Duration(minutes) * time.Minute
		}
	}
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			result, err := sweeperService.Sweep(context.Background())
			if err != nil {
				log.Printf("sweep failed: %v", err)
				continue
			}
			if result.Scanned > 0 {
				log.Printf("sweep: scanned=%d reassigned=%d auto_approved=%d failed=%d",
					result.Scanned, result.Reassigned, result.AutoApproved, len(result.Failed))
			}
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
