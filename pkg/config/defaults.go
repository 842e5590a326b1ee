package config

import (
	"strings"
	"time"
)

// ApplyDefaults fills in any zero-valued fields left after unmarshalling
// with sensible defaults. Explicit values, including explicit zeros a
// user actually wrote into a bool field, are preserved; only a field
// still at its Go zero value is touched.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyStoreDefaults(&cfg.Store)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":9999"
	}
	if cfg.MaxUDPMTU == 0 {
		cfg.MaxUDPMTU = 1400
	}
	if cfg.TransientDeadline == 0 {
		cfg.TransientDeadline = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.DataDir == "" {
		cfg.DataDir = "/var/lib/ternshard"
	}
	if cfg.InfoCacheMB == 0 {
		cfg.InfoCacheMB = 64
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}
