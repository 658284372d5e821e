package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Sushanta-Pal/InterViewPIP/internal/ai"
	"github.com/Sushanta-Pal/InterViewPIP/internal/config"
	"github.com/Sushanta-Pal/InterViewPIP/internal/keys"
	"github.com/Sushanta-Pal/InterViewPIP/internal/queue"
	"github.com/Sushanta-Pal/InterViewPIP/internal/repository"
	"github.com/Sushanta-Pal/InterViewPIP/internal/storage"
	"github.com/Sushanta-Pal/InterViewPIP/internal/stt"
	"github.com/Sushanta-Pal/InterViewPIP/internal/worker"
)

func main() {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	}

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	deepgramKeys, err := keys.FromEnv("DEEPGRAM_API_KEYS")
	if err != nil {
		logger.Fatalf("Failed to load transcription keys: %v", err)
	}
	openaiKeys, err := keys.FromEnv("OPENAI_API_KEYS")
	if err != nil {
		logger.Fatalf("Failed to load evaluator keys: %v", err)
	}
	logger.Infof("Key pools loaded: %d transcription, %d evaluator", deepgramKeys.Len(), openaiKeys.Len())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profiles, err := repository.NewPostgresRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to initialize profile repository: %v", err)
	}

	store, err := storage.NewS3Store(ctx, logger, storage.S3Config{
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

	q, err := queue.NewAMQPQueue(logger, cfg.AMQPURL, cfg.AMQPQueue)
	if err != nil {
		logger.Fatalf("Failed to connect to job queue: %v", err)
	}
	defer q.Close()

	transcriber := stt.NewDeepgramProvider(logger, deepgramKeys)
	evaluator := ai.NewOpenAIEvaluator(logger, openaiKeys, cfg.OpenAIModel)
	w := worker.New(logger, transcriber, evaluator, store, profiles)

	logger.Infof("Worker started with concurrency %d", cfg.WorkerConcurrency)
	if err := q.Consume(ctx, cfg.WorkerConcurrency, w.Process); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Consumer stopped: %v", err)
	}
	logger.Info("Worker shut down")
}
