package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServiceConfig is the long-lived configuration the API server process runs
// under, loaded from a YAML file with env var overrides, mirroring the
// config layering used by the rest of the retrieved pack.
type ServiceConfig struct {
	HTTP       HTTPConfig       `mapstructure:"http"`
	Auth       AuthConfig       `mapstructure:"auth"`
	MarketData MarketDataConfig `mapstructure:"market_data"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// HTTPConfig controls the chi-based API server.
type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// AuthConfig holds the JWT bearer-token verification secret for /run.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Disabled  bool   `mapstructure:"disabled"`
}

// MarketDataConfig configures the historical-aggregates ingestion adapter.
type MarketDataConfig struct {
	PolygonAPIKey    string        `mapstructure:"polygon_api_key"`
	RedisAddr        string        `mapstructure:"redis_addr"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	BreakerMaxFails  uint32        `mapstructure:"breaker_max_fails"`
	BreakerOpenDelay time.Duration `mapstructure:"breaker_open_delay"`
}

// LoggingConfig controls log verbosity/format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadService reads the service config from a YAML file at path, with
// BACKTESTKIT_*-prefixed env var overrides (dots become underscores, e.g.
// BACKTESTKIT_AUTH_JWT_SECRET overrides auth.jwt_secret).
func LoadService(path string) (*ServiceConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("BACKTESTKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.max_body_bytes", 8<<20)
	v.SetDefault("market_data.cache_ttl", time.Hour)
	v.SetDefault("market_data.breaker_max_fails", uint32(5))
	v.SetDefault("market_data.breaker_open_delay", 30*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading service config: %w", err)
	}

	var cfg ServiceConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling service config: %w", err)
	}
	return &cfg, nil
}

// Validate checks required fields for a production deployment.
func (c *ServiceConfig) Validate() error {
	if c.HTTP.Port <= 0 {
		return fmt.Errorf("config: http.port must be > 0")
	}
	if !c.Auth.Disabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: auth.jwt_secret is required unless auth.disabled is set")
	}
	return nil
}
