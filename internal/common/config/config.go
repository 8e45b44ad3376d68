package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Conversion ConversionConfig `mapstructure:"conversion"`
	Health     HealthConfig     `mapstructure:"health"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ReadTimeout     int `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

// Address returns the listen address for the HTTP server.
func (s ServerConfig) Address() string {
	return fmt.Sprintf(":%d", s.Port)
}

const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

// CacheConfig bounds the conversion cache.
type CacheConfig struct {
	Driver         string `mapstructure:"driver"`
	TTL            int    `mapstructure:"ttl"` // milliseconds
	MaxEntries     int    `mapstructure:"max_entries"`
	DedupeInFlight bool   `mapstructure:"dedupe_inflight"`
	IndexKey       string `mapstructure:"index_key"`
}

// TTLDuration returns the cache TTL as a time.Duration.
func (c CacheConfig) TTLDuration() time.Duration {
	return GetDuration(c.TTL)
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address      string `mapstructure:"address"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  int    `mapstructure:"dial_timeout"` // milliseconds
	IOTimeout    int    `mapstructure:"io_timeout"`   // milliseconds
}

// ConversionConfig holds settings for the range chunker.
type ConversionConfig struct {
	Chunks int `mapstructure:"chunks"`
}

// HealthConfig holds settings for the /health endpoint.
type HealthConfig struct {
	PingURL string `mapstructure:"ping_url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	MetricsPath string `mapstructure:"metrics_path"`
}
