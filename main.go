package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"popcapture/api/config"
	"popcapture/api/database"
	"popcapture/api/handlers"
	"popcapture/api/middleware"
	"popcapture/api/ratelimit"
	"popcapture/api/store"
)

func main() {
	// Load .env file at the very start
	if err := godotenv.Load(); err != nil {
		log.Infof("No .env file found or error loading .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- PostgreSQL (popups, analytics, subscribers) ---
	dbClient, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
	}
	defer dbClient.Close()

	popupStore := store.NewPopupStore(dbClient.DB)

	// --- ClickHouse (merchant stats, optional) ---
	var statsStore *store.StatsStore
	if cfg.StatsEnabled() {
		chClient, err := database.NewClickHouseDB(
			cfg.ClickHouseHost, cfg.ClickHousePort, cfg.ClickHouseDB,
			cfg.ClickHouseUsername, cfg.ClickHousePassword)
		if err != nil {
			log.Fatalf("Failed to initialize ClickHouse database: %v", err)
		}
		defer chClient.Close()
		statsStore = store.NewStatsStore(chClient)
	} else {
		log.Info("ClickHouse not configured, stats API disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Rate limiter ---
	var limiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		limiter = ratelimit.NewRedis(redisClient, cfg.RateLimitMax, cfg.RateLimitWindow)
		log.Infof("Rate limiting via Redis at %s", cfg.RedisAddr)
	} else {
		memLimiter := ratelimit.NewMemory(cfg.RateLimitMax, cfg.RateLimitWindow)
		memLimiter.StartJanitor(ctx)
		limiter = memLimiter
	}

	// --- Handlers ---
	configHandlers := handlers.NewConfigHandlers(popupStore)
	var sink handlers.EventSink
	if statsStore != nil {
		sink = statsStore
	}
	trackHandlers := handlers.NewTrackHandlers(popupStore, sink, limiter)

	r := gin.Default()
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// Public storefront endpoints
		api.GET("/popup-config", configHandlers.GetPopupConfig)
		api.POST("/track-event", trackHandlers.TrackEvent)

		// Merchant stats (tokens signed by the admin app)
		if statsStore != nil {
			statsHandlers := handlers.NewStatsHandlers(statsStore)
			statsGroup := api.Group("/stats")
			statsGroup.Use(middleware.AuthRequired([]byte(cfg.JWTSecret)))
			{
				statsGroup.GET("/event-counts", statsHandlers.GetEventCounts)
				statsGroup.GET("/unique-sessions", statsHandlers.GetUniqueSessions)
				statsGroup.GET("/top-popups", statsHandlers.GetTopPopups)
			}
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Infof("Popup API server starting on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exiting.")
}
