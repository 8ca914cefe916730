package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://coach@localhost/coach")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, UploadStoreMemory, cfg.UploadStore)
	assert.Equal(t, int64(500<<20), cfg.UploadMaxMemoryBytes())
	assert.Equal(t, 24*time.Hour, cfg.UploadTTL)
	assert.Equal(t, 5*time.Minute, cfg.UploadSweepInterval)
	assert.Equal(t, "videos", cfg.S3Bucket)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
	assert.Equal(t, "Europe/Moscow", cfg.Location().String())
}

func TestFromViper_Overrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://coach@localhost/coach")
	t.Setenv("UPLOAD_STORE", "redis")
	t.Setenv("UPLOAD_TTL", "2h")
	t.Setenv("UPLOAD_MAX_MEMORY_MB", "64")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_ADMIN_CHAT_ID", "-100500")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://coach.ru, https://www.coach.ru ,")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, UploadStoreRedis, cfg.UploadStore)
	assert.Equal(t, 2*time.Hour, cfg.UploadTTL)
	assert.Equal(t, int64(64<<20), cfg.UploadMaxMemoryBytes())
	assert.Equal(t, int64(-100500), cfg.TelegramAdminChatID)
	assert.Equal(t, []string{"https://coach.ru", "https://www.coach.ru"}, cfg.AllowedOrigins())
}

func TestFromViper_Validation(t *testing.T) {
	tests := map[string]map[string]string{
		"missing dsn":             {},
		"unknown upload store":    {"DB_DSN": "x", "UPLOAD_STORE": "disk"},
		"token without chat":      {"DB_DSN": "x", "TELEGRAM_TOKEN": "123:abc"},
		"production needs secret": {"DB_DSN": "x", "ENV": "production"},
		"bad timezone":            {"DB_DSN": "x", "TIMEZONE": "Mars/Olympus"},
		"zero buffer":             {"DB_DSN": "x", "UPLOAD_MAX_MEMORY_MB": "0"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("DB_DSN", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := FromViper(viper.New())
			assert.Error(t, err)
		})
	}
}
