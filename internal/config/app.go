package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type HTTPServer struct {
	Port      string `mapstructure:"port"`
	RateLimit string `mapstructure:"rate_limit"`
}

type DbServer struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Pass     string `mapstructure:"pass"`
	Name     string `mapstructure:"name"`
	MaxConns int32  `mapstructure:"max_conns"`
	// ConnectRetries bounds the startup ping attempts.
	ConnectRetries uint64 `mapstructure:"connect_retries"`
}

func (config *DbServer) GetConnectionStr() string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=disable",
		config.User, config.Pass, config.Host, config.Port, config.Name,
	)
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Store selects the RateStore backend: "postgres" or "redis".
type Store struct {
	Driver string `mapstructure:"driver"`
}

type HTTPClient struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

func (c HTTPClient) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type AlphaVantage struct {
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Function string `mapstructure:"function"`
}

type Scheduler struct {
	StatsIntervalSec int `mapstructure:"stats_interval_sec"`
}

type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AppConfig struct {
	HTTPServer   HTTPServer   `mapstructure:"http_server"`
	DbServer     DbServer     `mapstructure:"db_server"`
	Redis        Redis        `mapstructure:"redis"`
	Store        Store        `mapstructure:"store"`
	HTTPClient   HTTPClient   `mapstructure:"http_client"`
	AlphaVantage AlphaVantage `mapstructure:"alpha_vantage"`
	Scheduler    Scheduler    `mapstructure:"scheduler"`
	Logging      Logging      `mapstructure:"logging"`
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
)

// Validate checks settings that have no usable default.
func (cfg *AppConfig) Validate() error {
	switch cfg.Store.Driver {
	case StoreDriverPostgres, StoreDriverRedis:
	default:
		return fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
	if cfg.AlphaVantage.APIKey == "" {
		return errors.New("alpha vantage api key is required")
	}
	if _, err := url.ParseRequestURI(cfg.AlphaVantage.BaseURL); err != nil {
		return fmt.Errorf("invalid alpha vantage base url: %w", err)
	}
	return nil
}

// Init reads the YAML file at path, applies a .env file when one exists
// and lets environment variables override both.
func Init(path string) (*AppConfig, error) {
	var cfg AppConfig

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	v.SetDefault("http_server.port", "8080")
	v.SetDefault("db_server.max_conns", 10)
	v.SetDefault("db_server.connect_retries", 5)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("store.driver", StoreDriverPostgres)
	v.SetDefault("http_client.timeout_seconds", 10)
	v.SetDefault("alpha_vantage.base_url", "https://www.alphavantage.co/query")
	v.SetDefault("alpha_vantage.function", "CURRENCY_EXCHANGE_RATE")
	v.SetDefault("scheduler.stats_interval_sec", 30)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// http server env vars
	_ = v.BindEnv("http_server.port", "HTTP_PORT")
	_ = v.BindEnv("http_server.rate_limit", "HTTP_RATE_LIMIT")

	// db server env vars
	_ = v.BindEnv("db_server.host", "DB_HOST")
	_ = v.BindEnv("db_server.port", "DB_PORT")
	_ = v.BindEnv("db_server.user", "DB_USER")
	_ = v.BindEnv("db_server.pass", "DB_PASS")
	_ = v.BindEnv("db_server.name", "DB_NAME")
	_ = v.BindEnv("db_server.max_conns", "DB_MAX_CONNS")

	// redis env vars
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("store.driver", "STORE_DRIVER")

	// http client env vars
	_ = v.BindEnv("http_client.timeout_seconds", "HTTP_CLIENT_TIMEOUT_SECONDS")

	// provider env vars
	_ = v.BindEnv("alpha_vantage.base_url", "ALPHA_VANTAGE_BASE_URL")
	_ = v.BindEnv("alpha_vantage.api_key", "ALPHA_VANTAGE_API_KEY")

	_ = v.BindEnv("logging.level", "LOG_LEVEL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &cfg, nil
}
