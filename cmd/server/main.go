package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Sushanta-Pal/InterViewPIP/internal/api"
	"github.com/Sushanta-Pal/InterViewPIP/internal/config"
	"github.com/Sushanta-Pal/InterViewPIP/internal/queue"
	"github.com/Sushanta-Pal/InterViewPIP/internal/repository"
	"github.com/Sushanta-Pal/InterViewPIP/internal/storage"
)

func main() {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	}

	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode (default to release mode)
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	profiles, err := repository.NewPostgresRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to initialize profile repository: %v", err)
	}

	q, err := queue.NewAMQPQueue(logger, cfg.AMQPURL, cfg.AMQPQueue)
	if err != nil {
		logger.Fatalf("Failed to connect to job queue: %v", err)
	}
	defer q.Close()

	var store storage.ObjectStore
	if cfg.S3Bucket != "" {
		store, err = storage.NewS3Store(ctx, logger, storage.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			logger.Fatalf("Failed to initialize object storage: %v", err)
		}
	} else {
		logger.Warn("S3_BUCKET not set, storing uploads in memory (development only)")
		store = storage.NewMemoryStore()
	}

	r := gin.Default()
	r.Use(corsMiddleware())

	server := api.NewServer(logger, q, profiles, store, []byte(cfg.JWTSecret))
	server.RegisterRoutes(r)

	logger.Infof("Analysis API running on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}

// corsMiddleware adds CORS headers for the web client
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
