package main

import (
	"context"
	"net/http"
	"time"

	"places_backend/pkg/auth"
	"places_backend/pkg/circuitbreaker"
	"places_backend/pkg/config"
	"places_backend/pkg/database"
	"places_backend/pkg/favorites"
	"places_backend/pkg/images"
	"places_backend/pkg/metrics"
	"places_backend/pkg/middleware"
	"places_backend/pkg/places"
	"places_backend/pkg/seed"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	log := middleware.NewLogger(cfg.LogLevel, cfg.LogFormat)
	log.Info("Starting places service...")

	db, err := database.Open(cfg.DB, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if cfg.Seed {
		if err := seed.Run(context.Background(), db, log); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	stop := make(chan struct{})
	defer close(stop)

	server := newRouter(cfg, db, log, stop)

	log.Infof("Places service starting on :%s", cfg.Port)
	if err := server.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// newRouter wires every service onto one engine. stop ends the rate limiter
// cleanup loop.
func newRouter(cfg *config.Config, db *gorm.DB, log *logrus.Logger, stop <-chan struct{}) *gin.Engine {
	server := gin.New()
	server.Use(gin.Recovery(), middleware.RequestLogger(log), metrics.Middleware())

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	limiter.StartCleanup(time.Minute, stop)

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTExpires)
	requireUser := auth.RequireUser(tokens)

	placeService := places.NewService(db, cfg.PublicBaseURL)
	places.NewHandler(placeService).Register(server)

	storage := images.NewStorage(cfg.UploadsDir)
	breakers := circuitbreaker.NewGroup("image-import", 5, 30*time.Second, log)
	fetcher := images.NewFetcher(cfg.ImportTimeout, cfg.MaxUploadBytes, breakers)
	imageService := images.NewService(db, storage, fetcher, cfg.PublicBaseURL, log)
	images.NewHandler(imageService, cfg.MaxUploadBytes).
		Register(server, places.RequirePlace(placeService), limiter.Handler())

	authGroup := server.Group("", limiter.Handler())
	auth.NewHandler(auth.NewService(db, tokens, log)).Register(authGroup, requireUser)

	favorites.NewHandler(favorites.NewService(db, cfg.PublicBaseURL, log)).Register(server, requireUser)

	server.Static("/uploads", cfg.UploadsDir)
	server.GET("/metrics", metrics.Handler())
	server.GET("/manage/health", healthCheck(db))

	return server
}

func healthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "DOWN",
				"details": "Database connection failed",
				"error":   err.Error(),
			})
			return
		}
		if err := sqlDB.PingContext(ctx.Request.Context()); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "DOWN",
				"details": "Database ping failed",
				"error":   err.Error(),
			})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "UP",
			"details": "Database is reachable",
		})
	}
}
