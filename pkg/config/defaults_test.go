package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
}

func TestApplyDefaults_LoggingUppercasesExplicitValue(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "debug"}}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("expected ApplyDefaults to normalize 'debug' to 'DEBUG', got %q", cfg.Logging.Level)
	}
}

func TestApplyDefaults_Server(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("expected default listen_addr ':9999', got %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.MaxUDPMTU != 1400 {
		t.Errorf("expected default max_udp_mtu 1400, got %d", cfg.Server.MaxUDPMTU)
	}
	if cfg.Server.TransientDeadline != 5*time.Minute {
		t.Errorf("expected default transient_deadline 5m, got %v", cfg.Server.TransientDeadline)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("expected default shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
}

func TestApplyDefaults_Store(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Store.DataDir != "/var/lib/ternshard" {
		t.Errorf("expected default data_dir '/var/lib/ternshard', got %q", cfg.Store.DataDir)
	}
	if cfg.Store.InfoCacheMB != 64 {
		t.Errorf("expected default info_cache_mb 64, got %d", cfg.Store.InfoCacheMB)
	}
}

func TestApplyDefaults_Metrics(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Metrics.Port != 9090 {
		t.Errorf("expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			ListenAddr:        ":1234",
			MaxUDPMTU:         9000,
			TransientDeadline: time.Hour,
			ShutdownTimeout:   time.Minute,
		},
		Store: StoreConfig{
			DataDir:     "/mnt/custom",
			InfoCacheMB: 128,
		},
		Metrics: MetricsConfig{Port: 1111},
	}
	ApplyDefaults(cfg)

	if cfg.Server.ListenAddr != ":1234" {
		t.Errorf("expected explicit listen_addr to be preserved, got %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.MaxUDPMTU != 9000 {
		t.Errorf("expected explicit max_udp_mtu to be preserved, got %d", cfg.Server.MaxUDPMTU)
	}
	if cfg.Server.TransientDeadline != time.Hour {
		t.Errorf("expected explicit transient_deadline to be preserved, got %v", cfg.Server.TransientDeadline)
	}
	if cfg.Server.ShutdownTimeout != time.Minute {
		t.Errorf("expected explicit shutdown_timeout to be preserved, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Store.DataDir != "/mnt/custom" {
		t.Errorf("expected explicit data_dir to be preserved, got %q", cfg.Store.DataDir)
	}
	if cfg.Store.InfoCacheMB != 128 {
		t.Errorf("expected explicit info_cache_mb to be preserved, got %d", cfg.Store.InfoCacheMB)
	}
	if cfg.Metrics.Port != 1111 {
		t.Errorf("expected explicit metrics port to be preserved, got %d", cfg.Metrics.Port)
	}
}

func TestApplyDefaults_MetricsEnabledFlagUntouched(t *testing.T) {
	// Metrics.Enabled is a bool: an explicit false must survive
	// ApplyDefaults exactly like any other explicit zero value, since
	// ApplyDefaults only fills fields still at their Go zero value and
	// false is itself the zero value for bool.
	cfg := &Config{Metrics: MetricsConfig{Enabled: false, Port: 9090}}
	ApplyDefaults(cfg)

	if cfg.Metrics.Enabled {
		t.Error("expected explicit Enabled=false to remain false after ApplyDefaults")
	}
}

func TestApplyDefaults_DoesNotTouchBlockServicesOrFailover(t *testing.T) {
	cfg := validConfig()
	before := len(cfg.BlockServices)
	beforeFailover := len(cfg.LocationFailover)

	ApplyDefaults(cfg)

	if len(cfg.BlockServices) != before {
		t.Errorf("expected ApplyDefaults to leave block_services untouched, got %d entries", len(cfg.BlockServices))
	}
	if len(cfg.LocationFailover) != beforeFailover {
		t.Errorf("expected ApplyDefaults to leave location_failover untouched, got %d entries", len(cfg.LocationFailover))
	}
}
