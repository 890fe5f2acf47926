package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SlotsPerShelf is the fixed number of load-cell slots on every shelf.
// Inbound readings and slot assignments must always carry exactly this many
// entries.
const SlotsPerShelf = 4

// Config is the root configuration structure for Cabinet Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Cabinet  CabinetConfig  `yaml:"cabinet"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Engine   EngineConfig   `yaml:"engine"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
	API      APIConfig      `yaml:"api"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`

	// Shelves is the static assignment table: shelf hardware identifier
	// (typically a MAC address) to the catalog item ID stocked in each of its
	// four slots. An item ID of 0 leaves the slot unassigned. Shelves whose
	// identifier is absent from this table are rejected at routing time.
	Shelves map[string][]int64 `yaml:"shelves"`
}

// CabinetConfig contains cabinet-specific information.
type CabinetConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// CatalogConfig contains settings for the catalog REST collaborator.
type CatalogConfig struct {
	// Endpoint is the base URL of the catalog API (e.g. "https://api.example.com").
	Endpoint string `yaml:"endpoint"`

	// AuthorizationKey is sent verbatim in the Authorization header.
	AuthorizationKey string `yaml:"authorization_key"`

	// Timeout is the per-request timeout in seconds.
	Timeout int `yaml:"timeout"`

	// UseMockData serves a built-in item set instead of calling the API.
	// Intended for bench testing without backend access.
	UseMockData bool `yaml:"use_mock_data"`
}

// EngineConfig contains weight event-detection tuning.
type EngineConfig struct {
	// WindowSize is the length of the rolling median window per slot.
	WindowSize int `yaml:"window_size"`

	// DebounceCycles is the number of consecutive no-change cycles required
	// before a slot's hysteresis latch resets.
	DebounceCycles int `yaml:"debounce_cycles"`

	// ExtraneousLimit is the per-cycle weight delta in grams beyond which a
	// reading is discarded as a sensor glitch.
	ExtraneousLimit float64 `yaml:"extraneous_limit"`

	// QueueSize bounds the inbound reading queue. Messages arriving while the
	// queue is full are dropped and counted.
	QueueSize int `yaml:"queue_size"`

	// DefaultConversionFactor is the raw-to-gram multiplier applied to slots
	// that have never been calibrated.
	DefaultConversionFactor float64 `yaml:"default_conversion_factor"`

	// TareWeightGrams is the known weight of the reference object used by the
	// tare control's two-point calibration.
	TareWeightGrams float64 `yaml:"tare_weight_g"`
}

// WatchdogConfig contains liveness-monitoring settings.
type WatchdogConfig struct {
	// IntervalMS is the watchdog cadence in milliseconds.
	IntervalMS int `yaml:"interval_ms"`

	// StaleAfterCadences is the number of missed cadences after which a shelf
	// is flagged stale.
	StaleAfterCadences int `yaml:"stale_after_cadences"`
}

// APIConfig contains HTTP admin API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CABINET_SECTION_KEY
// For example: CABINET_DATABASE_PATH, CABINET_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Cabinet: CabinetConfig{
			ID:       "cabinet-001",
			Name:     "Cabinet Core",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/cabinet.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "cabinet-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Catalog: CatalogConfig{
			Timeout: 10,
		},
		Engine: EngineConfig{
			WindowSize:              5,
			DebounceCycles:          0,
			ExtraneousLimit:         5000,
			QueueSize:               256,
			DefaultConversionFactor: 0.44,
			TareWeightGrams:         226,
		},
		Watchdog: WatchdogConfig{
			IntervalMS:         200,
			StaleAfterCadences: 25,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Shelves: map[string][]int64{},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CABINET_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("CABINET_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("CABINET_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("CABINET_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("CABINET_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("CABINET_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Catalog
	if v := os.Getenv("CABINET_CATALOG_ENDPOINT"); v != "" {
		cfg.Catalog.Endpoint = v
	}
	if v := os.Getenv("CABINET_CATALOG_KEY"); v != "" {
		cfg.Catalog.AuthorizationKey = v
	}
	if v := os.Getenv("CABINET_CATALOG_USE_MOCK_DATA"); v != "" {
		cfg.Catalog.UseMockData = strings.EqualFold(v, "true")
	}

	// InfluxDB
	if v := os.Getenv("CABINET_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Cabinet.ID == "" {
		errs = append(errs, "cabinet.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.Engine.WindowSize < 1 {
		errs = append(errs, "engine.window_size must be at least 1")
	}
	if c.Engine.DebounceCycles < 0 {
		errs = append(errs, "engine.debounce_cycles must not be negative")
	}
	if c.Engine.ExtraneousLimit <= 0 {
		errs = append(errs, "engine.extraneous_limit must be positive")
	}
	if c.Engine.QueueSize < 1 {
		errs = append(errs, "engine.queue_size must be at least 1")
	}
	if c.Engine.DefaultConversionFactor <= 0 {
		errs = append(errs, "engine.default_conversion_factor must be positive")
	}
	if c.Engine.TareWeightGrams <= 0 {
		errs = append(errs, "engine.tare_weight_g must be positive")
	}

	if c.Watchdog.IntervalMS < 1 {
		errs = append(errs, "watchdog.interval_ms must be at least 1")
	}
	if c.Watchdog.StaleAfterCadences < 1 {
		errs = append(errs, "watchdog.stale_after_cadences must be at least 1")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if !c.Catalog.UseMockData && c.Catalog.Endpoint == "" {
		errs = append(errs, "catalog.endpoint is required unless catalog.use_mock_data is true")
	}

	for id, slots := range c.Shelves {
		if len(slots) != SlotsPerShelf {
			errs = append(errs, fmt.Sprintf("shelves.%s must list exactly %d slot item IDs", id, SlotsPerShelf))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// WatchdogInterval returns the watchdog cadence as a Duration.
func (c *Config) WatchdogInterval() time.Duration {
	return time.Duration(c.Watchdog.IntervalMS) * time.Millisecond
}

// StaleAfter returns how old a shelf's last report may be before the watchdog
// flags it stale.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Watchdog.StaleAfterCadences) * c.WatchdogInterval()
}

// CatalogTimeout returns the catalog request timeout as a Duration.
func (c *Config) CatalogTimeout() time.Duration {
	return c.Catalog.TimeoutDuration()
}

// TimeoutDuration returns the per-request timeout as a Duration.
func (c CatalogConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
