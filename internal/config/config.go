package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	TelegramBotToken    string `env:"TELEGRAM_BOT_TOKEN,required" validate:"required"`
	TelegramPollTimeout int    `env:"TELEGRAM_POLL_TIMEOUT,default=60" validate:"min=1"`

	StoreBackend string `env:"STORE_BACKEND,default=redis" validate:"oneof=redis postgres"`

	RedisAddr     string `env:"REDIS_ADDR,default=localhost:6379" validate:"required_if=StoreBackend redis"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0" validate:"min=0"`

	DBHost            string        `env:"DB_HOST" validate:"required_if=StoreBackend postgres"`
	DBPort            int           `env:"DB_PORT,default=5432"`
	DBUser            string        `env:"DB_USER" validate:"required_if=StoreBackend postgres"`
	DBPassword        string        `env:"DB_PASSWORD"`
	DBName            string        `env:"DB_NAME" validate:"required_if=StoreBackend postgres"`
	DBSSLMode         string        `env:"DB_SSLMODE,default=disable"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=10"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=25"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`
	DBPurgeInterval   time.Duration `env:"DB_PURGE_INTERVAL,default=10m"`

	DexScreenerBaseURL string        `env:"DEXSCREENER_BASE_URL,default=https://api.dexscreener.com" validate:"url"`
	DexScreenerTimeout time.Duration `env:"DEXSCREENER_TIMEOUT,default=10s"`
	DexScreenerRPS     float64       `env:"DEXSCREENER_RPS,default=5" validate:"gt=0"`

	AlertMaxTimeout   int           `env:"ALERT_MAX_TIMEOUT_MINUTES,default=60" validate:"min=1,max=60"`
	AlertPollInterval time.Duration `env:"ALERT_POLL_INTERVAL,default=5s" validate:"gt=0"`
	AlertReplyTimeout time.Duration `env:"ALERT_REPLY_TIMEOUT,default=60s" validate:"gt=0"`

	MetricsAddr string `env:"METRICS_ADDR,default=:9090"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
}

// Load reads an optional .env file, then the process environment.
func Load(ctx context.Context) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return Config{}, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
