package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("INTELLIGEMS_API_KEY", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Key != "test-key" {
		t.Errorf("API.Key = %q, want %q", cfg.API.Key, "test-key")
	}
	if cfg.API.BaseURL != "https://api.intelligems.io/v25-10-beta" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Telemetry.Enabled {
		t.Error("Telemetry.Enabled = true, want false by default")
	}
	if cfg.Decision.MinConfidence != 0.80 {
		t.Errorf("Decision.MinConfidence = %v, want 0.80", cfg.Decision.MinConfidence)
	}
	if cfg.Decision.FlatAfterDays != 21 {
		t.Errorf("Decision.FlatAfterDays = %d, want 21", cfg.Decision.FlatAfterDays)
	}
}

func TestLoadMissingAPIKey(t *testing.T) {
	t.Setenv("INTELLIGEMS_API_KEY", "")
	os.Unsetenv("INTELLIGEMS_API_KEY")

	if _, err := Load(); err == nil {
		t.Fatal("Load() with no API key should fail")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("INTELLIGEMS_API_KEY", "test-key")
	t.Setenv("LIFTWATCH_MIN_CONFIDENCE", "0.90")
	t.Setenv("LIFTWATCH_MIN_ORDERS", "50")
	t.Setenv("LIFTWATCH_ASSUMED_CAC", "75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	th := cfg.Thresholds()
	if th.MinConfidence != 0.90 {
		t.Errorf("MinConfidence = %v, want 0.90", th.MinConfidence)
	}
	if th.MinOrders != 50 {
		t.Errorf("MinOrders = %d, want 50", th.MinOrders)
	}
	if th.AssumedCAC != 75 {
		t.Errorf("AssumedCAC = %v, want 75", th.AssumedCAC)
	}
}

func TestLoadRejectsInvalidThresholds(t *testing.T) {
	t.Setenv("INTELLIGEMS_API_KEY", "test-key")
	t.Setenv("LIFTWATCH_MIN_CONFIDENCE", "1.5")

	if _, err := Load(); err == nil {
		t.Fatal("Load() with out-of-range confidence should fail")
	}
}
