package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Service selects the per-service defaults
type Service string

const (
	FileService    Service = "file-service"
	MessageService Service = "message-service"
)

const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// Config holds all application configuration. It is read once at startup.
type Config struct {
	// Service configuration
	ServiceName string
	ServicePort string
	LogLevel    string
	LogFormat   string

	// Document store
	StoreBackend  string
	MongoURI      string
	MongoDatabase string
	MongoTimeout  time.Duration

	// Object storage, file service only
	S3Bucket       string
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOUseSSL    bool
	MinIORegion    string
	DownloadURLTTL time.Duration

	// Redis record cache, disabled when RedisURL is empty
	RedisURL string
	CacheTTL time.Duration

	// NATS lifecycle events, disabled when NATSURL is empty
	NATSURL string

	// OTLP/HTTP endpoint, spans are dropped when empty
	OTLPEndpoint string
}

// Load reads configuration from environment variables with per-service defaults
func Load(service Service) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v, service)

	cfg := &Config{
		ServiceName: v.GetString("SERVICE_NAME"),
		ServicePort: v.GetString("PORT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		LogFormat:   v.GetString("LOG_FORMAT"),

		StoreBackend:  strings.ToLower(v.GetString("STORE_BACKEND")),
		MongoURI:      v.GetString("MONGODB_URI"),
		MongoDatabase: v.GetString("DATABASE_NAME"),

		S3Bucket:       v.GetString("S3_BUCKET"),
		MinIOEndpoint:  v.GetString("MINIO_ENDPOINT"),
		MinIOAccessKey: v.GetString("MINIO_ACCESS_KEY"),
		MinIOSecretKey: v.GetString("MINIO_SECRET_KEY"),
		MinIORegion:    v.GetString("MINIO_REGION"),

		RedisURL:     v.GetString("REDIS_URL"),
		NATSURL:      v.GetString("NATS_URL"),
		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	var err error
	if cfg.MongoTimeout, err = getDuration(v, "MONGODB_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.DownloadURLTTL, err = getDuration(v, "DOWNLOAD_URL_TTL"); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getDuration(v, "CACHE_TTL"); err != nil {
		return nil, err
	}
	if cfg.MinIOUseSSL, err = getBool(v, "MINIO_USE_SSL"); err != nil {
		return nil, err
	}
	if _, err := strconv.Atoi(cfg.ServicePort); err != nil {
		return nil, fmt.Errorf("invalid PORT %q: %w", cfg.ServicePort, err)
	}

	switch cfg.StoreBackend {
	case BackendMongo, BackendMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, service Service) {
	v.SetDefault("SERVICE_NAME", string(service))
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORE_BACKEND", BackendMongo)
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_TIMEOUT", "10s")

	v.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	v.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	v.SetDefault("MINIO_USE_SSL", "false")
	v.SetDefault("MINIO_REGION", "us-east-1")
	v.SetDefault("DOWNLOAD_URL_TTL", "15m")

	v.SetDefault("CACHE_TTL", "5m")

	switch service {
	case MessageService:
		v.SetDefault("PORT", "3004")
		v.SetDefault("DATABASE_NAME", "quckchat_messages")
	default:
		v.SetDefault("PORT", "3011")
		v.SetDefault("DATABASE_NAME", "quckchat_files")
		v.SetDefault("S3_BUCKET", "quckchat-files")
	}
}

// GetAddr returns the listen address
func (c *Config) GetAddr() string {
	return ":" + c.ServicePort
}

// Helper functions
func getDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func getBool(v *viper.Viper, key string) (bool, error) {
	raw := v.GetString(key)
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return b, nil
}
