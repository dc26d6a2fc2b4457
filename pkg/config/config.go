package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	API     APIConfig
	Auth    AuthConfig
	Stock   StockConfig
	Storage StorageConfig
	Redis   RedisConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LIA_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"LIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LIA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// APIConfig points the engine at the storefront backend.
type APIConfig struct {
	BaseURL string        `envconfig:"LIA_API_BASE_URL" default:"http://localhost:3333/api"`
	Timeout time.Duration `envconfig:"LIA_API_TIMEOUT" default:"10s"`
}

// AuthConfig describes where the bearer token is found. The engine never
// mints or verifies tokens; it only checks presence and expiry.
type AuthConfig struct {
	Token string `envconfig:"LIA_AUTH_TOKEN"`
}

type StockConfig struct {
	CacheTTL time.Duration `envconfig:"LIA_STOCK_CACHE_TTL" default:"30s"`
}

type StorageConfig struct {
	Path             string        `envconfig:"LIA_STORAGE_PATH" default:"lia_cart.db"`
	CartKey          string        `envconfig:"LIA_STORAGE_CART_KEY" default:"lia_carrinho"`
	RemovedKey       string        `envconfig:"LIA_STORAGE_REMOVED_KEY" default:"lia_carrinho_removidos"`
	RemovedRetention time.Duration `envconfig:"LIA_STORAGE_REMOVED_RETENTION" default:"15m"`
	RemovedMax       int           `envconfig:"LIA_STORAGE_REMOVED_MAX" default:"50"`
}

// RedisConfig is optional: a non-empty URL switches the stock cache to the
// shared Redis backend (kiosk deployments running several storefronts).
type RedisConfig struct {
	URL          string        `envconfig:"LIA_REDIS_URL"`
	Address      string        `envconfig:"LIA_REDIS_ADDR"`
	Password     string        `envconfig:"LIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"LIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}
