// Package config loads the shard daemon's configuration: logging,
// the network/metrics listeners, the embedded store, and the domain
// knobs the engine itself needs (transient deadline, MTU, the
// location-failover table, and the static block-service registry).
//
// Configuration sources, highest precedence first:
//  1. Environment variables (TERNSHARD_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values
//
// There is no command-line override layer; cmd/shardd's only flag
// selects the configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete shard daemon configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Metrics MetricsConfig `mapstructure:"metrics"`

	// BlockServices is the static block-service registry used to
	// build a blockservices.StaticCache. A daemon that instead learns
	// block services from a gossip feed or a directory service can
	// leave this empty and build its own blockservices.Cache.
	BlockServices []BlockServiceConfig `mapstructure:"block_services" validate:"dive"`

	// LocationFailover is the configurable replacement for the
	// hard-coded "location 1 HDD -> FLASH" fallback spec §9 flags: a
	// request at From that currently has too few block-service
	// candidates is retried at To instead.
	LocationFailover []FailoverEntry `mapstructure:"location_failover" validate:"dive"`
}

// LoggingConfig controls internal/logger's output.
type LoggingConfig struct {
	// Level is the minimum level to emit.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// ServerConfig holds the shard's identity and RPC listener settings.
type ServerConfig struct {
	// ShardID identifies which of the cluster's shards this daemon
	// serves.
	ShardID uint8 `mapstructure:"shard_id"`

	// ListenAddr is a UDP host:port for an RPC listener. It is
	// defaulted and validated here; cmd/shardd runs no RPC server and
	// does not read it.
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`

	// MaxUDPMTU bounds how many bytes of payload a single response
	// datagram may carry; read and prepare handlers that would
	// otherwise exceed it truncate their result.
	MaxUDPMTU uint32 `mapstructure:"max_udp_mtu" validate:"required,gt=0"`

	// TransientDeadline is how long a transient (under-construction)
	// file may go unconfirmed before it becomes eligible for GC.
	TransientDeadline time.Duration `mapstructure:"transient_deadline" validate:"required,gt=0"`

	// ShutdownTimeout is a graceful-shutdown bound. It is defaulted and
	// validated here; cmd/shardd does not read it.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// StoreConfig configures the embedded key-value store.
type StoreConfig struct {
	// DataDir is where the badger database lives on disk.
	DataDir string `mapstructure:"data_dir" validate:"required"`

	// Secret is the shard's hex-encoded 16-byte AES key, used to
	// derive cookie and certificate MACs (shardcrypto.ExpandKey).
	Secret string `mapstructure:"secret" validate:"required,len=32,hexadecimal"`

	// InfoCacheMB bounds the in-memory directory-info cache.
	InfoCacheMB int64 `mapstructure:"info_cache_mb" validate:"gte=0"`
}

// MetricsConfig configures the Prometheus exposition server.
type MetricsConfig struct {
	// Enabled turns on metrics collection. When false, the engine is
	// wired with a no-op metrics.ShardMetrics and the /metrics server
	// answers 503.
	Enabled bool `mapstructure:"enabled"`

	// Port the metrics HTTP server listens on.
	Port int `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// BlockServiceConfig is one statically-configured block-service entry.
type BlockServiceConfig struct {
	ID            uint64 `mapstructure:"id" validate:"required"`
	FailureDomain string `mapstructure:"failure_domain" validate:"required,len=32,hexadecimal"`
	Location      uint8  `mapstructure:"location"`
	StorageClass  string `mapstructure:"storage_class" validate:"required,oneof=FLASH HDD"`
	Flags         uint32 `mapstructure:"flags"`
	Key           string `mapstructure:"key" validate:"required,len=32,hexadecimal"`
}

// FailoverEntry maps one (location, storage class) pair to its
// fallback pair.
type FailoverEntry struct {
	FromLocation     uint8  `mapstructure:"from_location"`
	FromStorageClass string `mapstructure:"from_storage_class" validate:"required,oneof=FLASH HDD"`
	ToLocation       uint8  `mapstructure:"to_location"`
	ToStorageClass   string `mapstructure:"to_storage_class" validate:"required,oneof=FLASH HDD"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	// TERNSHARD_SERVER_SHARD_ID=3, TERNSHARD_STORE_SECRET=..., etc.
	v.SetEnvPrefix("TERNSHARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only reaches keys viper already knows of, so every
	// leaf key is bound explicitly for env-only configurations.
	for _, key := range []string{
		"logging.level",
		"server.shard_id", "server.listen_addr", "server.max_udp_mtu",
		"server.transient_deadline", "server.shutdown_timeout",
		"store.data_dir", "store.secret", "store.info_cache_mb",
		"metrics.enabled", "metrics.port",
	} {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns $XDG_CONFIG_HOME/ternshard, falling back to
// ~/.config/ternshard, or "." if the home directory can't be resolved.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "ternshard")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "ternshard")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists reports whether a config file exists at the default
// location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
