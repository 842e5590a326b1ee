package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid config to pass validation, got: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "VERBOSE"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_MissingListenAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Server.ListenAddr = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for missing listen_addr")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("expected 'required' validation error, got: %v", err)
	}
}

func TestValidate_ZeroMaxUDPMTU(t *testing.T) {
	cfg := validConfig()
	cfg.Server.MaxUDPMTU = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for zero max_udp_mtu")
	}
}

func TestValidate_ZeroTransientDeadline(t *testing.T) {
	cfg := validConfig()
	cfg.Server.TransientDeadline = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for zero transient_deadline")
	}
}

func TestValidate_ZeroShutdownTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Server.ShutdownTimeout = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for zero shutdown_timeout")
	}
}

func TestValidate_MissingDataDir(t *testing.T) {
	cfg := validConfig()
	cfg.Store.DataDir = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for missing data_dir")
	}
}

func TestValidate_SecretWrongLength(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Secret = "aabb"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for a secret that isn't 32 hex characters")
	}
	if !strings.Contains(err.Error(), "len") {
		t.Errorf("expected 'len' validation error, got: %v", err)
	}
}

func TestValidate_SecretNotHex(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Secret = strings.Repeat("z", 32)

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for a non-hexadecimal secret")
	}
	if !strings.Contains(err.Error(), "hexadecimal") {
		t.Errorf("expected 'hexadecimal' validation error, got: %v", err)
	}
}

func TestValidate_NegativeInfoCacheMB(t *testing.T) {
	cfg := validConfig()
	cfg.Store.InfoCacheMB = -1

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for negative info_cache_mb")
	}
}

func TestValidate_MetricsPortOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Metrics.Port = 70000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for out-of-range metrics port")
	}
	if !strings.Contains(err.Error(), "lte") {
		t.Errorf("expected 'lte' validation error, got: %v", err)
	}
}

func TestValidate_MetricsPortNegative(t *testing.T) {
	cfg := validConfig()
	cfg.Metrics.Port = -1

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for negative metrics port")
	}
}

func TestValidate_BlockServiceMissingID(t *testing.T) {
	cfg := validConfig()
	cfg.BlockServices[0].ID = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for block service id 0")
	}
}

func TestValidate_BlockServiceInvalidStorageClass(t *testing.T) {
	cfg := validConfig()
	cfg.BlockServices[0].StorageClass = "TAPE"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for unknown storage class")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_BlockServiceFailureDomainWrongLength(t *testing.T) {
	cfg := validConfig()
	cfg.BlockServices[0].FailureDomain = "ab"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for a short failure_domain")
	}
}

func TestValidate_BlockServiceKeyNotHex(t *testing.T) {
	cfg := validConfig()
	cfg.BlockServices[0].Key = strings.Repeat("g", 32)

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for a non-hexadecimal key")
	}
}

func TestValidate_DuplicateBlockServiceIDs(t *testing.T) {
	cfg := validConfig()
	cfg.BlockServices[1].ID = cfg.BlockServices[0].ID

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for duplicate block service ids")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected a duplicate-id error, got: %v", err)
	}
}

func TestValidate_LocationFailoverInvalidStorageClass(t *testing.T) {
	cfg := validConfig()
	cfg.LocationFailover[0].FromStorageClass = "TAPE"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for unknown from_storage_class")
	}
}

func TestValidate_LocationFailoverNoopEntry(t *testing.T) {
	cfg := validConfig()
	cfg.LocationFailover[0].FromLocation = 5
	cfg.LocationFailover[0].ToLocation = 5
	cfg.LocationFailover[0].FromStorageClass = "FLASH"
	cfg.LocationFailover[0].ToStorageClass = "FLASH"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for a failover entry that maps to itself")
	}
	if !strings.Contains(err.Error(), "must differ") {
		t.Errorf("expected a 'must differ' error, got: %v", err)
	}
}

func TestValidate_EmptyBlockServicesAndFailoverIsFine(t *testing.T) {
	cfg := validConfig()
	cfg.BlockServices = nil
	cfg.LocationFailover = nil

	if err := Validate(cfg); err != nil {
		t.Errorf("expected a config with no block services or failover entries to validate, got: %v", err)
	}
}

func TestValidate_LogLevelCaseInsensitive(t *testing.T) {
	for _, level := range []string{"debug", "DEBUG", "info", "warn", "error", "ERROR"} {
		cfg := validConfig()
		cfg.Logging.Level = level

		if err := Validate(cfg); err != nil {
			t.Errorf("validation failed for level %q: %v", level, err)
		}
	}
}
