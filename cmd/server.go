package cmd

import (
	"log"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"fermata/config"
	"fermata/handlers"
	"fermata/middleware"
	"fermata/services"
	"fermata/store"
	"fermata/websocket"
)

// StartWebServer starts the web server
func StartWebServer(cfg *config.Config) {
	// Set production mode if not specified
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize the download store; a configured path switches from the
	// in-memory default to the durable BoltDB backing
	var st store.Store
	if cfg.Store.Path != "" {
		boltStore, err := store.NewBoltStore(cfg.Store.Path)
		if err != nil {
			log.Fatalf("Failed to open download store at %s: %v", cfg.Store.Path, err)
		}
		st = boltStore
	} else {
		st = store.NewMemoryStore()
	}
	defer st.Close()

	// Initialize services
	hub := websocket.NewHub()
	go hub.Run()

	catalog := services.NewStaticCatalog()
	downloadService := services.NewDownloadService(st, catalog, hub, services.Options{
		Tick:        cfg.Download.Tick,
		ExpiryAfter: cfg.Download.Expiry,
	})
	defer downloadService.Shutdown()

	// Initialize handlers
	downloadHandler := handlers.NewDownloadHandler(downloadService, hub)
	healthHandler := handlers.NewHealthHandler()

	// Setup router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.Logging())

	setupRoutes(r, downloadHandler, healthHandler)

	// Start server
	portStr := strconv.Itoa(cfg.Server.Port)
	if serverPort := os.Getenv("SERVER_PORT"); serverPort != "" {
		portStr = serverPort
	}

	log.Printf("Fermata web server starting on port %s", portStr)
	if err := r.Run(":" + portStr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRoutes configures all the HTTP routes
func setupRoutes(r *gin.Engine, downloadHandler *handlers.DownloadHandler, healthHandler *handlers.HealthHandler) {
	// Health check endpoint
	r.GET("/health", healthHandler.HealthCheck)

	// API routes group
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/status", healthHandler.APIStatus)

		// Offline download endpoints; every route requires a resolved identity
		offlineGroup := apiGroup.Group("/v1/offline")
		offlineGroup.Use(middleware.Identity())
		{
			downloadsGroup := offlineGroup.Group("/downloads")
			{
				downloadsGroup.GET("", downloadHandler.List)
				downloadsGroup.POST("", downloadHandler.Create)
				downloadsGroup.GET("/:id", downloadHandler.Get)
				downloadsGroup.GET("/:id/status", downloadHandler.Status)
				downloadsGroup.DELETE("/:id", downloadHandler.Delete)
			}

			// WebSocket endpoints for real-time progress
			wsGroup := offlineGroup.Group("/ws")
			{
				wsGroup.GET("/downloads/:id", downloadHandler.WatchDownload)
				wsGroup.GET("/downloads", downloadHandler.WatchAll)
			}
		}
	}
}
