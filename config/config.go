package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all runtime settings. Loaded once at startup; treated as
// read-only afterwards.
type Config struct {
	Server struct {
		Addr string `mapstructure:"addr" validate:"required"`
		Mode string `mapstructure:"mode" validate:"oneof=debug release test"`
	} `mapstructure:"server"`

	Database struct {
		Driver string `mapstructure:"driver" validate:"oneof=postgres sqlite"`
		DSN    string `mapstructure:"dsn" validate:"required"`
	} `mapstructure:"database"`

	Redis struct {
		Addr     string `mapstructure:"addr" validate:"required"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Push struct {
		Endpoint string  `mapstructure:"endpoint"`
		APIKey   string  `mapstructure:"api_key"`
		RateRPS  float64 `mapstructure:"rate_rps"`
	} `mapstructure:"push"`

	Fanout struct {
		Workers      int `mapstructure:"workers"`
		QueueSize    int `mapstructure:"queue_size"`
		ClaimLimit   int `mapstructure:"claim_limit"`
		PollMillis   int `mapstructure:"poll_millis"`
		CacheTTLSecs int `mapstructure:"cache_ttl_secs"`
	} `mapstructure:"fanout"`

	Sentry struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"sentry"`

	Otel struct {
		Endpoint string `mapstructure:"endpoint"`
		Service  string `mapstructure:"service"`
	} `mapstructure:"otel"`

	Log struct {
		Level      string `mapstructure:"level"`
		Production bool   `mapstructure:"production"`
	} `mapstructure:"log"`
}

// Load reads config.yaml (path overridable via BEACON_CONFIG) and applies
// BEACON_* environment overrides, e.g. BEACON_REDIS_ADDR.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("beacon")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=127.0.0.1 user=beacon dbname=beacon port=5432 sslmode=disable")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("push.rate_rps", 100)
	v.SetDefault("fanout.workers", 4)
	v.SetDefault("fanout.queue_size", 10000)
	v.SetDefault("fanout.claim_limit", 128)
	v.SetDefault("fanout.poll_millis", 50)
	v.SetDefault("fanout.cache_ttl_secs", 300)
	v.SetDefault("otel.service", "beacon-feed")
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		// 配置文件缺省时允许纯环境变量启动
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}
