package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port        string
	DatabaseURL string
	AMQPURL     string
	AMQPQueue   string
	JWTSecret   string

	OpenAIModel       string
	WorkerConcurrency int

	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3PublicBaseURL string
}

// Load loads configuration from environment variables. API key pools
// (DEEPGRAM_API_KEYS, OPENAI_API_KEYS) are read separately by keys.FromEnv
// in the worker, which is the only process that needs them.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		AMQPURL:     os.Getenv("AMQP_URL"),
		AMQPQueue:   getEnv("AMQP_QUEUE_NAME", "analysis-jobs"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		OpenAIModel: os.Getenv("OPENAI_MODEL"),

		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3Region:        getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
		S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
	}

	concurrency := getEnv("WORKER_CONCURRENCY", "5")
	n, err := strconv.Atoi(concurrency)
	if err != nil || n < 1 {
		return nil, fmt.Errorf("WORKER_CONCURRENCY must be a positive integer, got %q", concurrency)
	}
	cfg.WorkerConcurrency = n

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required. Please set it as an environment variable")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required. Please set it as an environment variable")
	}
	if cfg.AMQPURL == "" {
		return nil, fmt.Errorf("AMQP_URL is required. Please set it as an environment variable")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
