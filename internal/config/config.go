package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"kbman-artifacts"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-ada-002"`
	EmbeddingDims  int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`

	QdrantURL    string `envconfig:"QDRANT_URL"`
	QdrantAPIKey string `envconfig:"QDRANT_API_KEY"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	EmbedCacheTTL time.Duration `envconfig:"EMBED_CACHE_TTL" default:"24h"`

	RerankURL   string `envconfig:"RERANK_URL"`
	RerankModel string `envconfig:"RERANK_MODEL" default:"BAAI/bge-reranker-base"`

	SentryDSN         string `envconfig:"SENTRY_DSN"`
	SentryEnvironment string `envconfig:"SENTRY_ENVIRONMENT" default:"development"`

	PageSizeDefault int `envconfig:"PAGE_SIZE_DEFAULT" default:"20"`
	PageSizeMax     int `envconfig:"PAGE_SIZE_MAX" default:"200"`

	WorkerPollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"5s"`

	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"migrations"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("KBMAN", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasQdrant() bool {
	return c.QdrantURL != ""
}

func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}

func (c *Config) HasRerank() bool {
	return c.RerankURL != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}
