package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

const validConfig = `
cabinet:
  id: cabinet-test
catalog:
  use_mock_data: true
shelves:
  "AA:BB:CC:DD:EE:01": [1, 2, 3, 4]
`

func TestLoad_Valid(t *testing.T) {
	path := writeConfigFile(t, validConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Cabinet.ID != "cabinet-test" {
		t.Errorf("cabinet.id = %q, want %q", cfg.Cabinet.ID, "cabinet-test")
	}
	if got := cfg.Shelves["AA:BB:CC:DD:EE:01"]; len(got) != SlotsPerShelf {
		t.Errorf("shelf assignment length = %d, want %d", len(got), SlotsPerShelf)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfigFile(t, validConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Engine.WindowSize != 5 {
		t.Errorf("engine.window_size default = %d, want 5", cfg.Engine.WindowSize)
	}
	if cfg.Engine.ExtraneousLimit != 5000 {
		t.Errorf("engine.extraneous_limit default = %v, want 5000", cfg.Engine.ExtraneousLimit)
	}
	if cfg.Engine.DefaultConversionFactor != 0.44 {
		t.Errorf("engine.default_conversion_factor default = %v, want 0.44", cfg.Engine.DefaultConversionFactor)
	}
	if cfg.Watchdog.IntervalMS != 200 {
		t.Errorf("watchdog.interval_ms default = %d, want 200", cfg.Watchdog.IntervalMS)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("mqtt.broker.port default = %d, want 1883", cfg.MQTT.Broker.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "cabinet: [unclosed")

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfigFile(t, validConfig)

	t.Setenv("CABINET_MQTT_HOST", "broker.internal")
	t.Setenv("CABINET_MQTT_PORT", "8883")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.MQTT.Broker.Host != "broker.internal" {
		t.Errorf("mqtt host = %q, want env override", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("mqtt port = %d, want 8883", cfg.MQTT.Broker.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults with mock catalog",
			mutate: func(c *Config) { c.Catalog.UseMockData = true },
		},
		{
			name:    "missing cabinet id",
			mutate:  func(c *Config) { c.Catalog.UseMockData = true; c.Cabinet.ID = "" },
			wantErr: "cabinet.id",
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.Catalog.UseMockData = true; c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "zero window size",
			mutate:  func(c *Config) { c.Catalog.UseMockData = true; c.Engine.WindowSize = 0 },
			wantErr: "engine.window_size",
		},
		{
			name:    "negative conversion factor",
			mutate:  func(c *Config) { c.Catalog.UseMockData = true; c.Engine.DefaultConversionFactor = -1 },
			wantErr: "default_conversion_factor",
		},
		{
			name:    "zero tare weight",
			mutate:  func(c *Config) { c.Catalog.UseMockData = true; c.Engine.TareWeightGrams = 0 },
			wantErr: "engine.tare_weight_g",
		},
		{
			name:    "catalog endpoint required without mock",
			mutate:  func(c *Config) {},
			wantErr: "catalog.endpoint",
		},
		{
			name: "shelf with wrong slot count",
			mutate: func(c *Config) {
				c.Catalog.UseMockData = true
				c.Shelves = map[string][]int64{"AA:BB": {1, 2}}
			},
			wantErr: "exactly 4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.WatchdogInterval(); got != 200*time.Millisecond {
		t.Errorf("WatchdogInterval() = %v, want 200ms", got)
	}
	if got := cfg.StaleAfter(); got != 5*time.Second {
		t.Errorf("StaleAfter() = %v, want 5s", got)
	}
	if got := cfg.CatalogTimeout(); got != 10*time.Second {
		t.Errorf("CatalogTimeout() = %v, want 10s", got)
	}
}
