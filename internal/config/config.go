// Package config loads dailytasks settings from defaults, an optional
// YAML file, a .env file and DAILYTASKS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"dailytasks/internal/store"
)

const (
	configName = ".dailytasks"
	envPrefix  = "DAILYTASKS"
)

// Config is the resolved application configuration.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
}

// StorageConfig selects the persistence backend and where it keeps data.
type StorageConfig struct {
	Driver string      `mapstructure:"driver" validate:"oneof=sqlite file redis memory"`
	Path   string      `mapstructure:"path" validate:"required_if=Driver sqlite"`
	Dir    string      `mapstructure:"dir" validate:"required_if=Driver file"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig locates the Redis server for the redis driver.
type RedisConfig struct {
	Addr   string `mapstructure:"addr"`
	Prefix string `mapstructure:"prefix"`
}

// ServerConfig controls the HTTP API started by serve.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout" validate:"gt=0"`
}

// LogConfig sets the minimum log level.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

var validate = validator.New()

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	dataDir := defaultDataDir()

	v.SetDefault("storage.driver", store.DriverSQLite)
	v.SetDefault("storage.path", filepath.Join(dataDir, "tasks.db"))
	v.SetDefault("storage.dir", dataDir)
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.prefix", store.DefaultRedisPrefix)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("log.level", "info")
}

// Load resolves configuration into v and returns it. cfgFile, when set,
// names an explicit config file; otherwise ./.dailytasks.yaml and
// $HOME/.dailytasks.yaml are searched and a missing file is not an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for impossible combinations.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// StoreOptions converts the storage section into store.Options.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Driver:      c.Storage.Driver,
		SQLitePath:  c.Storage.Path,
		Dir:         c.Storage.Dir,
		RedisAddr:   c.Storage.Redis.Addr,
		RedisPrefix: c.Storage.Redis.Prefix,
	}
}

// SlogLevel maps the configured level name onto slog.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "dailytasks")
	}
	return ".dailytasks"
}
