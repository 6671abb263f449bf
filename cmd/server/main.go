package main

import (
	"context"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/docuforge/backend/internal/application/services"
	"github.com/docuforge/backend/internal/bootstrap"
	"github.com/docuforge/backend/internal/infrastructure/database"
	"github.com/docuforge/backend/internal/interfaces/middleware"
	"github.com/docuforge/backend/internal/interfaces/rest"
)

func main() {
	// .env is optional; real deployments set variables directly
	if err := godotenv.Load(); err == nil {
		log.Println("📋 Loaded configuration from .env")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "3002"
	}

	// Initialize database connection
	db, err := database.GetInstance()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connection established")

	if err := bootstrap.InitializeSchema(db); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	// Initialize service manager
	cfg := services.ConfigFromEnv()
	svcMgr, err := services.NewServiceManager(db, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	log.Println("🔧 Service manager initialized")

	// Seed the first admin account on an empty database
	if err := bootstrap.InitializeSystemData(svcMgr); err != nil {
		log.Fatalf("Failed to initialize system data: %v", err)
	}

	// Create Gin router
	router := gin.Default()
	router.Use(middleware.Cors())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"server": "golang",
		})
	})

	// Debug/pprof endpoints for goroutine debugging
	// Goroutine stacks: http://localhost:3002/debug/pprof/goroutine?debug=2
	debug := router.Group("/debug/pprof")
	{
		debug.GET("/", gin.WrapH(http.DefaultServeMux))
		debug.GET("/goroutine", gin.WrapH(http.DefaultServeMux))
		debug.GET("/heap", gin.WrapH(http.DefaultServeMux))
		debug.GET("/profile", gin.WrapH(http.DefaultServeMux))
		debug.GET("/trace", gin.WrapH(http.DefaultServeMux))
	}

	// Initialize handlers
	authHandler := rest.NewAuthHandler(svcMgr.Auth)
	changeHandler := rest.NewChangeHandler(svcMgr.Ingestion, svcMgr.Changes)
	procedureHandler := rest.NewProcedureHandler(svcMgr.Procedures, svcMgr.Documents)
	documentHandler := rest.NewDocumentHandler(svcMgr.Documents, svcMgr.TxManager)
	approvalHandler := rest.NewApprovalHandler(svcMgr.Approval)
	notificationHandler := rest.NewNotificationHandler(svcMgr.Notification)

	// Initialize middleware
	requireAuth := middleware.RequireAuth()
	requireAdmin := middleware.RequireAdmin()

	// API routes
	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", requireAuth, authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.Me)
			auth.POST("/reviewers", requireAuth, requireAdmin, authHandler.CreateReviewer)
		}

		changes := api.Group("/changes", requireAuth)
		{
			changes.POST("", changeHandler.Create)
			changes.POST("/import", changeHandler.Import)
			changes.GET("", changeHandler.List)
			changes.GET("/:id", changeHandler.Get)
		}

		procedures := api.Group("/procedures", requireAuth)
		{
			procedures.GET("", procedureHandler.List)
			procedures.GET("/:id", procedureHandler.Get)
			procedures.GET("/:id/documents", procedureHandler.Documents)
			procedures.GET("/:id/history", procedureHandler.History)
		}

		documents := api.Group("/documents", requireAuth)
		{
			documents.GET("/:id", documentHandler.Get)
			documents.GET("/:id/download", documentHandler.Download)
		}

		approvals := api.Group("/approvals", requireAuth)
		{
			approvals.POST("/submit", approvalHandler.Submit)
			approvals.POST("/:workItemId/approve", approvalHandler.Approve)
			approvals.POST("/:workItemId/reject", approvalHandler.Reject)
			approvals.GET("/pending", approvalHandler.GetPending)
			approvals.GET("/history/:documentId", approvalHandler.GetHistory)
		}

		notifications := api.Group("/notifications", requireAuth)
		{
			notifications.GET("", notificationHandler.List)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
		}
	}

	// Start background workers
	if err := svcMgr.StartWorkers(); err != nil {
		log.Fatalf("Failed to start background workers: %v", err)
	}
	log.Println("📤 Outbox event worker started (500ms polling)")

	// Start server
	log.Println("\n═══════════════════════════════════════════════════════════════════════════")
	log.Println("🚀 DocuForge Backend Started Successfully")
	log.Println("═══════════════════════════════════════════════════════════════════════════")
	log.Printf("\n📍 Server:         http://localhost:%s", port)
	log.Printf("🔐 Auth API:       http://localhost:%s/api/auth", port)
	log.Printf("📄 Changes API:    http://localhost:%s/api/changes", port)
	log.Printf("📊 Procedures API: http://localhost:%s/api/procedures", port)
	log.Printf("✅ Approvals API:  http://localhost:%s/api/approvals", port)
	log.Printf("💚 Health check:   http://localhost:%s/health\n", port)

	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Stop background workers before closing the listener
	svcMgr.StopWorkers()
	log.Println("🛑 Background workers stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exiting")
}
