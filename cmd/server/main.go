package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wagate/dashboard/api/handlers"
	"github.com/wagate/dashboard/internal/db"
	"github.com/wagate/dashboard/internal/feed"
	"github.com/wagate/dashboard/internal/gatewayapi"
	"github.com/wagate/dashboard/internal/logger"
	"github.com/wagate/dashboard/internal/realtime"
	"github.com/wagate/dashboard/internal/repository"
	"github.com/wagate/dashboard/internal/session"
	"github.com/wagate/dashboard/internal/ws"
)

func main() {
	// Get configuration from environment
	port := getEnv("PORT", "8080")
	dbPath := getEnv("DB_PATH", "data/dashboard.db")
	logDir := getEnv("LOG_DIR", "data/logs")
	apiURL := getEnv("GATEWAY_API_URL", "http://localhost:3000")
	wsURL := getEnv("GATEWAY_WS_URL", "ws://localhost:3000/ws")
	token := os.Getenv("GATEWAY_TOKEN")
	maxAttempts := getEnvInt("RECONNECT_MAX_ATTEMPTS", 5)
	baseDelay := time.Duration(getEnvInt("RECONNECT_BASE_DELAY_MS", 1000)) * time.Millisecond
	syncInterval := time.Duration(getEnvInt("SYNC_INTERVAL_SECONDS", 30)) * time.Second
	feedSize := getEnvInt("ACTIVITY_FEED_SIZE", 200)

	if err := logger.Init(logDir, getEnv("GIN_MODE", "") != "release"); err != nil {
		panic(err)
	}
	defer zap.L().Sync()

	if token == "" {
		zap.L().Fatal("GATEWAY_TOKEN is required")
	}

	// Ensure data directories exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		zap.L().Fatal("failed to create database directory", zap.Error(err))
	}

	// Initialize database and history store
	database, err := db.Open(dbPath)
	if err != nil {
		zap.L().Fatal("failed to initialize database", zap.Error(err))
	}
	defer database.Close()
	eventRepo := repository.NewEventRepository(database)

	// Initialize the browser-facing event channel. Browsers authenticate with
	// the same token the dashboard holds toward the gateway.
	wsService := ws.NewService(func(t string) bool { return t == token })
	defer wsService.Close()

	// Initialize the shared upstream connection and the session registry
	rtManager := realtime.NewManager(realtime.Config{
		URL:         wsURL,
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
	})
	apiClient := gatewayapi.New(apiURL, token)
	registry := session.NewRegistry(apiClient, rtManager, wsService,
		eventRepo, feed.NewRing(feedSize), token)
	defer registry.Close()

	registry.Start()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := registry.Sync(ctx); err != nil {
		zap.L().Warn("initial session sync failed", zap.Error(err))
	}
	go registry.Run(ctx, syncInterval)

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(registry)
	qrHandler := handlers.NewQRHandler(registry)
	panelHandler := handlers.NewPanelHandler()
	wsHandler := handlers.NewWebSocketHandler(wsService)

	// Initialize Gin router
	r := gin.Default()

	// Enable CORS for development
	r.Use(corsMiddleware())

	// Health check endpoint reports the upstream connection state
	r.GET("/health", func(c *gin.Context) {
		state, lastErr := registry.ConnectionState()
		c.JSON(200, gin.H{
			"status":      "ok",
			"gateway":     string(state),
			"gatewayError": lastErr,
		})
	})

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := r.Group("/api")
	{
		sessionHandler.RegisterRoutes(api)
		qrHandler.RegisterRoutes(api)
		panelHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		zap.L().Info("shutting down server")
		cancel()
		registry.Close()
		wsService.Close()
		database.Close()
		os.Exit(0)
	}()

	// Start server
	zap.L().Info("starting server", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		zap.L().Fatal("failed to start server", zap.Error(err))
	}
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// corsMiddleware returns a CORS middleware for development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
