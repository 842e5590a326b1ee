package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaultsOnTopOfFile(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: "WARN"
server:
  listen_addr: ":7777"
store:
  secret: "00112233445566778899aabbccddeeff"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("expected level 'WARN' from file, got %q", cfg.Logging.Level)
	}
	if cfg.Server.ListenAddr != ":7777" {
		t.Errorf("expected listen_addr ':7777' from file, got %q", cfg.Server.ListenAddr)
	}
	// MaxUDPMTU wasn't set in the file, so ApplyDefaults should have filled it in.
	if cfg.Server.MaxUDPMTU != 1400 {
		t.Errorf("expected default max_udp_mtu 1400, got %d", cfg.Server.MaxUDPMTU)
	}
	if cfg.Server.TransientDeadline != 5*time.Minute {
		t.Errorf("expected default transient_deadline 5m, got %v", cfg.Server.TransientDeadline)
	}
}

func TestLoad_MissingConfigFileIsTolerated(t *testing.T) {
	// A missing file isn't itself an error; Load only fails once
	// Validate runs, and Validate rejects the missing store.secret.
	path := filepath.Join(t.TempDir(), "does-not-exist.yaml")

	if _, err := Load(path); err == nil {
		t.Fatal("expected Load to fail validation once defaults leave store.secret empty")
	}
}

func TestLoad_MissingConfigFileWithSecretFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.yaml")
	t.Setenv("TERNSHARD_STORE_SECRET", "00112233445566778899aabbccddeeff")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Store.Secret != "00112233445566778899aabbccddeeff" {
		t.Errorf("expected secret from env var, got %q", cfg.Store.Secret)
	}
}

func TestLoad_ValidationFailureSurfaces(t *testing.T) {
	// No store.secret set at all: should fail validation rather than
	// silently produce an unusable config.
	path := writeConfigFile(t, `
logging:
  level: "INFO"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected Load to fail validation on a config with no store secret")
	}
}

func TestLoad_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[logging]
level = "ERROR"

[store]
secret = "00112233445566778899aabbccddeeff"
`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed for TOML config: %v", err)
	}
	if cfg.Logging.Level != "ERROR" {
		t.Errorf("expected level 'ERROR' from TOML file, got %q", cfg.Logging.Level)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: "INFO"
store:
  secret: "00112233445566778899aabbccddeeff"
`)

	t.Setenv("TERNSHARD_LOGGING_LEVEL", "ERROR")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Logging.Level != "ERROR" {
		t.Errorf("expected env var to override file value, got %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "logging:\n  level: [[[not valid\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected Load to fail on malformed YAML")
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()

	if !filepath.IsAbs(path) && path != filepath.Join(".", "config.yaml") {
		t.Errorf("expected an absolute path (or the '.' fallback), got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

func TestConfigExists_FalseWhenNoFileAtDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if ConfigExists() {
		t.Error("expected ConfigExists to report false for a freshly created config dir")
	}
}

func TestConfigExists_TrueAfterWritingDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path := GetDefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("logging:\n  level: INFO\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if !ConfigExists() {
		t.Error("expected ConfigExists to report true once a file exists at the default path")
	}
}
