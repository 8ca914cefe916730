package config

import (
	"fmt"
	"log"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	UploadStoreMemory = "memory"
	UploadStoreRedis  = "redis"
)

type Config struct {
	Environment    string `mapstructure:"ENV"`
	HTTPAddr       string `mapstructure:"HTTP_ADDR"`
	Timezone       string `mapstructure:"TIMEZONE"`
	DBDSN          string `mapstructure:"DB_DSN"`
	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`

	CloudPaymentsAPISecret string `mapstructure:"CLOUDPAYMENTS_API_SECRET"`
	AdminAPIKey            string `mapstructure:"ADMIN_API_KEY"`

	// Буфер загрузок видео
	UploadStore         string        `mapstructure:"UPLOAD_STORE"`
	UploadMaxMemoryMB   int64         `mapstructure:"UPLOAD_MAX_MEMORY_MB"`
	UploadTTL           time.Duration `mapstructure:"UPLOAD_TTL"`
	UploadSweepInterval time.Duration `mapstructure:"UPLOAD_SWEEP_INTERVAL"`
	RedisAddr           string        `mapstructure:"REDIS_ADDR"`
	RedisPassword       string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB             int           `mapstructure:"REDIS_DB"`

	// S3-совместимое хранилище
	S3Endpoint  string `mapstructure:"S3_ENDPOINT"`
	S3AccessKey string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey string `mapstructure:"S3_SECRET_KEY"`
	S3Bucket    string `mapstructure:"S3_BUCKET"`
	S3UseSSL    bool   `mapstructure:"S3_USE_SSL"`
	S3PublicURL string `mapstructure:"S3_PUBLIC_URL"`

	// Брокер событий; пустой URL - события не публикуются
	AMQPURL      string `mapstructure:"AMQP_URL"`
	AMQPExchange string `mapstructure:"AMQP_EXCHANGE"`

	// Уведомления тренеру; пустой токен - уведомления выключены
	TelegramToken       string `mapstructure:"TELEGRAM_TOKEN"`
	TelegramAdminChatID int64  `mapstructure:"TELEGRAM_ADMIN_CHAT_ID"`

	RateLimitPerMinute int    `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("TIMEZONE", "Europe/Moscow")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("MIGRATIONS_PATH", "migrations")

	v.SetDefault("CLOUDPAYMENTS_API_SECRET", "")
	v.SetDefault("ADMIN_API_KEY", "")

	v.SetDefault("UPLOAD_STORE", UploadStoreMemory)
	v.SetDefault("UPLOAD_MAX_MEMORY_MB", 500)
	v.SetDefault("UPLOAD_TTL", 24*time.Hour)
	v.SetDefault("UPLOAD_SWEEP_INTERVAL", 5*time.Minute)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("S3_ENDPOINT", "localhost:9000")
	v.SetDefault("S3_ACCESS_KEY", "minioadmin")
	v.SetDefault("S3_SECRET_KEY", "minioadmin")
	v.SetDefault("S3_BUCKET", "videos")
	v.SetDefault("S3_USE_SSL", false)
	v.SetDefault("S3_PUBLIC_URL", "")

	v.SetDefault("AMQP_URL", "")
	v.SetDefault("AMQP_EXCHANGE", "coach.events")

	v.SetDefault("TELEGRAM_TOKEN", "")
	v.SetDefault("TELEGRAM_ADMIN_CHAT_ID", 0)

	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromViper(viper.New())
}

// FromViper читает конфиг из переменных окружения через переданный экземпляр viper
func FromViper(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет обязательные поля и сочетания настроек
func (c *Config) Validate() error {
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required but not set")
	}
	if c.CloudPaymentsAPISecret == "" && c.IsProduction() {
		return fmt.Errorf("CLOUDPAYMENTS_API_SECRET is required in production")
	}
	if c.UploadStore != UploadStoreMemory && c.UploadStore != UploadStoreRedis {
		return fmt.Errorf("UPLOAD_STORE must be %q or %q, got %q", UploadStoreMemory, UploadStoreRedis, c.UploadStore)
	}
	if c.UploadMaxMemoryMB <= 0 {
		return fmt.Errorf("UPLOAD_MAX_MEMORY_MB must be positive")
	}
	if c.UploadTTL <= 0 || c.UploadSweepInterval <= 0 {
		return fmt.Errorf("UPLOAD_TTL and UPLOAD_SWEEP_INTERVAL must be positive")
	}
	if c.TelegramToken != "" && c.TelegramAdminChatID == 0 {
		return fmt.Errorf("TELEGRAM_ADMIN_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Location часовой пояс расписаний; Validate уже проверил, что он загружается
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) UploadMaxMemoryBytes() int64 {
	return c.UploadMaxMemoryMB << 20
}

// AllowedOrigins список origin для CORS из строки через запятую
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
