package config

import (
	"strings"
	"testing"

	"github.com/marmos91/lifecycled/pkg/discovery"
)

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_SampleRateOutOfRange(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.SampleRate = 1.5

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for sample rate above 1")
	}
	if !strings.Contains(err.Error(), "sample_rate") {
		t.Errorf("Expected error to name the config key, got: %v", err)
	}
}

func TestValidate_UnknownProfileType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Profiling.ProfileTypes = []string{"cpu", "heap"}

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for unknown profile type")
	}
}

func TestValidate_StatusAddressRequired(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Status.Address = ""

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for enabled status server without address")
	}

	cfg.Status.Enabled = false
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected disabled status server to need no address, got: %v", err)
	}
}

func TestValidate_Discovery(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Discovery = discovery.Config{Type: "etcd"}

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for unsupported discovery type")
	}

	cfg.Discovery = discovery.Config{Type: discovery.TypePostgres}
	cfg.Discovery.ApplyDefaults()
	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "postgres host is required") {
		t.Errorf("Expected postgres host error, got: %v", err)
	}
}
