// Package config loads server configuration from an optional config.yaml and
// the environment, with sanitized defaults for every setting.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds the listen addresses for the two front ends.
type ServerConfig struct {
	TCPAddress  string `mapstructure:"tcp_address"`
	HTTPAddress string `mapstructure:"http_address"`
	Mode        string `mapstructure:"mode"`
}

// ProtocolConfig tunes the line protocol: how long a worker waits on a read
// before re-checking the connection, and the largest single line accepted.
type ProtocolConfig struct {
	ReadTimeoutSeconds  int `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int `mapstructure:"write_timeout_seconds"`
	MaxLineSize         int `mapstructure:"max_line_size"`
}

// RateLimitConfig defines the parameters for per-connection message rate
// limiting.
type RateLimitConfig struct {
	Burst         int `mapstructure:"burst"`
	RefillSeconds int `mapstructure:"refill_seconds"`
}

// WebConfig controls the WebSocket bridge.
type WebConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Config stores all configuration of the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Protocol  ProtocolConfig  `mapstructure:"protocol"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Web       WebConfig       `mapstructure:"web"`
}

// ReadTimeout returns the stalled-peer detection interval as a duration.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Protocol.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the per-send deadline as a duration.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Protocol.WriteTimeoutSeconds) * time.Second
}

// RefillInterval returns the rate-limit refill window as a duration.
func (c *Config) RefillInterval() time.Duration {
	return time.Duration(c.RateLimit.RefillSeconds) * time.Second
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() *Config {
	cfg := &Config{}
	sanitize(cfg)
	return cfg
}

// Load reads configuration from the given file path, or from config.yaml in
// the working directory when path is empty. A missing file is not an error;
// environment variables prefixed with CHAMADA_ override file values either
// way (e.g. CHAMADA_SERVER_TCP_ADDRESS).
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CHAMADA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.tcp_address", ":8888")
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("protocol.read_timeout_seconds", 30)
	v.SetDefault("protocol.write_timeout_seconds", 10)
	v.SetDefault("protocol.max_line_size", 4096)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("rate_limit.refill_seconds", 1)
	v.SetDefault("web.allowed_origins", []string{"http://localhost:8080"})

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && path != "" {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	sanitize(cfg)
	return cfg, nil
}

func sanitize(cfg *Config) {
	if cfg.Server.TCPAddress == "" {
		cfg.Server.TCPAddress = ":8888"
	}
	if cfg.Server.HTTPAddress == "" {
		cfg.Server.HTTPAddress = ":8080"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Protocol.ReadTimeoutSeconds <= 0 {
		cfg.Protocol.ReadTimeoutSeconds = 30
	}
	if cfg.Protocol.WriteTimeoutSeconds <= 0 {
		cfg.Protocol.WriteTimeoutSeconds = 10
	}
	if cfg.Protocol.MaxLineSize <= 0 {
		cfg.Protocol.MaxLineSize = 4096
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 20
	}
	if cfg.RateLimit.RefillSeconds <= 0 {
		cfg.RateLimit.RefillSeconds = 1
	}
}
