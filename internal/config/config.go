package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type Config struct {
	Server     ServerConfig
	Worker     WorkerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	MinIO      MinIOConfig
	RabbitMQ   RabbitMQConfig
	TMDB       TMDBConfig
	Catalog    CatalogConfig
	Enrichment EnrichmentConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
}

type WorkerConfig struct {
	MaxRetries      int           `envconfig:"WORKER_MAX_RETRIES" default:"3"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"30s"`
	MirrorPosters   bool          `envconfig:"WORKER_MIRROR_POSTERS" default:"true"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"movierec"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"movierec"`
	DBName   string `envconfig:"POSTGRES_DB" default:"movierec"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type MinIOConfig struct {
	Endpoint       string        `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	PublicEndpoint string        `envconfig:"MINIO_PUBLIC_ENDPOINT" default:""`
	AccessKey      string        `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey      string        `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket         string        `envconfig:"MINIO_BUCKET" default:"posters"`
	UseSSL         bool          `envconfig:"MINIO_USE_SSL" default:"false"`
	CreateBucket   bool          `envconfig:"MINIO_CREATE_BUCKET" default:"true"`
	PresignExpiry  time.Duration `envconfig:"MINIO_PRESIGN_EXPIRY" default:"1h"`
}

type RabbitMQConfig struct {
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"movierec"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"movierec"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

type TMDBConfig struct {
	APIKey            string        `envconfig:"TMDB_API_KEY" default:""`
	BaseURL           string        `envconfig:"TMDB_BASE_URL" default:"https://api.themoviedb.org/3"`
	ImageBaseURL      string        `envconfig:"TMDB_IMAGE_BASE_URL" default:"https://image.tmdb.org/t/p"`
	Language          string        `envconfig:"TMDB_LANGUAGE" default:""`
	Timeout           time.Duration `envconfig:"TMDB_TIMEOUT" default:"10s"`
	RequestsPerSecond float64       `envconfig:"TMDB_REQUESTS_PER_SECOND" default:"20"`
}

// Enabled reports whether an API key is configured.
func (c TMDBConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

type CatalogConfig struct {
	BaseURL string        `envconfig:"CATALOG_BASE_URL" default:"http://localhost:5000"`
	Timeout time.Duration `envconfig:"CATALOG_TIMEOUT" default:"5s"`
}

type EnrichmentConfig struct {
	CacheTTL     time.Duration `envconfig:"ENRICHMENT_CACHE_TTL" default:"30m"`
	CacheBackend string        `envconfig:"CACHE_BACKEND" default:"memory"`
	BatchSize    int           `envconfig:"ENRICHMENT_BATCH_SIZE" default:"5"`
	BatchPause   time.Duration `envconfig:"ENRICHMENT_BATCH_PAUSE" default:"100ms"`
}

func (c EnrichmentConfig) validate() error {
	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("enrichment batch size must be positive, got %d", c.BatchSize)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("enrichment cache ttl must be positive, got %s", c.CacheTTL)
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Enrichment.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
