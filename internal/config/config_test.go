package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileServiceDefaults(t *testing.T) {
	cfg, err := Load(FileService)
	require.NoError(t, err)

	assert.Equal(t, "file-service", cfg.ServiceName)
	assert.Equal(t, "3011", cfg.ServicePort)
	assert.Equal(t, ":3011", cfg.GetAddr())
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "quckchat_files", cfg.MongoDatabase)
	assert.Equal(t, "quckchat-files", cfg.S3Bucket)
	assert.Equal(t, BackendMongo, cfg.StoreBackend)
	assert.Equal(t, 10*time.Second, cfg.MongoTimeout)
	assert.Equal(t, 15*time.Minute, cfg.DownloadURLTTL)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.NATSURL)
	assert.Empty(t, cfg.MinIOEndpoint)
}

func TestLoadMessageServiceDefaults(t *testing.T) {
	cfg, err := Load(MessageService)
	require.NoError(t, err)

	assert.Equal(t, "message-service", cfg.ServiceName)
	assert.Equal(t, "3004", cfg.ServicePort)
	assert.Equal(t, "quckchat_messages", cfg.MongoDatabase)
	assert.Empty(t, cfg.S3Bucket)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("DATABASE_NAME", "files_test")
	t.Setenv("S3_BUCKET", "bucket-x")
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")

	cfg, err := Load(FileService)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.ServicePort)
	assert.Equal(t, "mongodb://db:27017", cfg.MongoURI)
	assert.Equal(t, "files_test", cfg.MongoDatabase)
	assert.Equal(t, "bucket-x", cfg.S3Bucket)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.True(t, cfg.MinIOUseSSL)
	assert.Equal(t, "redis://localhost:6379/1", cfg.RedisURL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"CACHE_TTL", "five minutes"},
		{"MONGODB_TIMEOUT", "-"},
		{"MINIO_USE_SSL", "maybe"},
		{"PORT", "http"},
		{"STORE_BACKEND", "postgres"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(MessageService)
			assert.Error(t, err)
		})
	}
}
