package config

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/marmos91/lifecycled/pkg/discovery"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are interpreted as
// escape sequences.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	writeFile(t, configPath, `
logging:
  level: "debug"

lifecycle:
  interrupt_grace: 50ms
  restart_delay: 2s

discovery:
  type: sqlite
  sqlite:
    path: "`+yamlSafePath(tmpDir)+`/discovery.db"

services:
  Queue: orders
  options:
    http.port: 8080
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Lifecycle.InterruptGrace != 50*time.Millisecond {
		t.Errorf("Expected interrupt grace 50ms, got %v", cfg.Lifecycle.InterruptGrace)
	}
	if cfg.Lifecycle.RestartDelay != 2*time.Second {
		t.Errorf("Expected restart delay 2s, got %v", cfg.Lifecycle.RestartDelay)
	}
	if cfg.Discovery.Type != discovery.TypeSQLite {
		t.Errorf("Expected discovery type sqlite, got %q", cfg.Discovery.Type)
	}
	if cfg.Services["Queue"] != "orders" {
		t.Errorf("Expected services to keep key case, got %v", cfg.Services)
	}
	options, _ := cfg.Services["options"].(map[string]any)
	if options["http.port"] != 8080 {
		t.Errorf("Expected dotted option key to be kept, got %v", cfg.Services["options"])
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}
	if cfg.Status.Address != "127.0.0.1:9400" {
		t.Errorf("Expected default status address, got %q", cfg.Status.Address)
	}
	if !cfg.Status.Enabled {
		t.Error("Expected status server to be enabled by default")
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("LIFECYCLED_LOGGING_LEVEL", "WARN")
	t.Setenv("LIFECYCLED_LIFECYCLE_RESTART_DELAY", "3s")
	t.Setenv("LIFECYCLED_STATUS_ENABLED", "false")

	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level from environment 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Lifecycle.RestartDelay != 3*time.Second {
		t.Errorf("Expected restart delay from environment 3s, got %v", cfg.Lifecycle.RestartDelay)
	}
	if cfg.Status.Enabled {
		t.Error("Expected status server to be disabled from environment")
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, configPath, "logging:\n  format: xml\n")

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestMustLoad_MissingFile(t *testing.T) {
	if _, err := MustLoad(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Expected error for explicit missing config file")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Lifecycle.RestartDelay = 5 * time.Second
	cfg.Services = map[string]any{"queue": "orders"}

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat config: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected permissions 0600, got %v", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if loaded.Lifecycle.RestartDelay != 5*time.Second {
		t.Errorf("Expected restart delay 5s, got %v", loaded.Lifecycle.RestartDelay)
	}
	if loaded.Services["queue"] != "orders" {
		t.Errorf("Expected services to round-trip, got %v", loaded.Services)
	}
}

func TestResolveServices(t *testing.T) {
	tmpDir := t.TempDir()
	base := filepath.Join(tmpDir, "base.yaml")
	extra := filepath.Join(tmpDir, "extra.json")

	writeFile(t, base, "tags: [a]\noptions:\n  http:\n    port: 80\n")
	writeFile(t, extra, `{"tags": ["b"], "options": {"http": {"host": "0.0.0.0"}}}`)

	cfg := &Config{Services: map[string]any{"tags": []any{"root"}}}
	services, err := ResolveServices(cfg, []string{base, extra})
	if err != nil {
		t.Fatalf("Failed to resolve services: %v", err)
	}

	if want := []any{"root", "a", "b"}; !reflect.DeepEqual(services["tags"], want) {
		t.Errorf("Expected tags %v, got %v", want, services["tags"])
	}
	http := services["options"].(map[string]any)["http"].(map[string]any)
	if http["port"] != 80 || http["host"] != "0.0.0.0" {
		t.Errorf("Expected merged http options, got %v", http)
	}
	if len(cfg.Services["tags"].([]any)) != 1 {
		t.Error("Expected input config to be left untouched")
	}
}

func TestResolveServices_MissingFile(t *testing.T) {
	if _, err := ResolveServices(&Config{}, []string{filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
		t.Fatal("Expected error for missing service config file")
	}
}

func TestReloader(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, configPath, "services:\n  greeting: v1\n")

	reload := Reloader(configPath, nil)
	services, err := reload(context.Background())
	if err != nil {
		t.Fatalf("Failed to reload: %v", err)
	}
	if services["greeting"] != "v1" {
		t.Errorf("Expected greeting v1, got %v", services["greeting"])
	}

	writeFile(t, configPath, "services:\n  greeting: v2\n")
	services, err = reload(context.Background())
	if err != nil {
		t.Fatalf("Failed to reload: %v", err)
	}
	if services["greeting"] != "v2" {
		t.Errorf("Expected greeting v2, got %v", services["greeting"])
	}

	writeFile(t, configPath, "logging: [broken\n")
	if _, err := reload(context.Background()); err == nil {
		t.Error("Expected reload of invalid YAML to fail")
	}
}

func TestWatchPaths(t *testing.T) {
	cfg := &Config{Watcher: WatcherConfig{Paths: []string{"extra.yaml"}}}
	got := WatchPaths(cfg, "config.yaml", []string{"svc.json"})

	want := []string{"config.yaml", "svc.json", "extra.yaml"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	written, err := InitConfig(path, false)
	if err != nil {
		t.Fatalf("Failed to init config: %v", err)
	}
	if written != path {
		t.Errorf("Expected config at %s, got %s", path, written)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load sample config: %v", err)
	}
	if cfg.Services["schedule"] != "@every 10s" {
		t.Errorf("Expected sample services, got %v", cfg.Services)
	}

	if _, err := InitConfig(path, false); err == nil {
		t.Error("Expected error when config already exists")
	}
	if _, err := InitConfig(path, true); err != nil {
		t.Errorf("Expected --force to overwrite, got: %v", err)
	}
}
