// Package config loads the relay daemon's configuration from an optional
// YAML file with environment-variable overrides.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables recognized by Load. Each overrides the corresponding
// file setting.
const (
	EnvConfigFile     = "WATCH_RELAY_CONFIG"
	EnvBackendURL     = "WATCH_RELAY_BACKEND_URL"
	EnvDeviceSecret   = "WATCH_RELAY_DEVICE_SECRET"
	EnvDeviceName     = "WATCH_RELAY_DEVICE_NAME"
	EnvWatchName      = "WATCH_RELAY_WATCH_NAME"
	EnvBLEAdapter     = "WATCH_RELAY_BLE_ADAPTER"
	EnvMetricsAddr    = "WATCH_RELAY_METRICS_ADDR"
	EnvRetryLimit     = "WATCH_RELAY_RETRY_LIMIT"
	EnvRetryDelayMs   = "WATCH_RELAY_RETRY_DELAY_MS"
	EnvThrottleMs     = "WATCH_RELAY_THROTTLE_MS"
	EnvScanTimeoutSec = "WATCH_RELAY_SCAN_TIMEOUT_S"
)

// Config is the daemon configuration. Zero values are filled with defaults by
// Load; a file setting of 0 is preserved where 0 is meaningful (retry_limit).
type Config struct {
	// BackendURL is the base URL of the telemetry backend. Required.
	BackendURL string `yaml:"backend_url"`

	// DeviceSecret signs the backend bearer token. Empty disables auth.
	DeviceSecret string `yaml:"device_secret"`

	// DeviceName is the local system identifier. Defaults to the hostname.
	DeviceName string `yaml:"device_name"`

	// WatchName is the advertised name of the wearable to connect to. Empty
	// matches any peer advertising a watch alias.
	WatchName string `yaml:"watch_name"`

	// BLEAdapter selects the local adapter (e.g. "hci0"). Empty uses the
	// platform default.
	BLEAdapter string `yaml:"ble_adapter"`

	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `yaml:"metrics_addr"`

	// RetryLimit bounds consecutive reconnection and delivery attempts.
	// -1 retries forever; 0 aborts on the first failure.
	RetryLimit int `yaml:"retry_limit"`

	// RetryDelayMs is the wait between attempts, in milliseconds.
	RetryDelayMs int `yaml:"retry_delay_ms"`

	// ThrottleMs is the minimum spacing between delivered samples.
	ThrottleMs int `yaml:"throttle_ms"`

	// ScanTimeoutSec bounds each BLE discovery scan.
	ScanTimeoutSec int `yaml:"scan_timeout_s"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose"`
}

// Load reads the configuration file at path (or $WATCH_RELAY_CONFIG when path
// is empty), applies environment overrides, and validates the result. A
// missing backend URL is a startup error.
func Load(path string) (Config, error) {
	hostname, _ := os.Hostname()
	cfg := Config{
		DeviceName:     hostname,
		RetryLimit:     8,
		RetryDelayMs:   500,
		ThrottleMs:     1000,
		ScanTimeoutSec: 30,
	}

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	applyEnv(&cfg)

	if cfg.BackendURL == "" {
		return cfg, errors.New("config: backend_url is required")
	}
	if cfg.RetryLimit < -1 {
		return cfg, errors.New("config: retry_limit must be -1, 0, or positive")
	}
	return cfg, nil
}

// RetryDelay returns the inter-attempt delay as a duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// ThrottleInterval returns the sample admission interval as a duration.
func (c Config) ThrottleInterval() time.Duration {
	return time.Duration(c.ThrottleMs) * time.Millisecond
}

// ScanTimeout returns the BLE discovery budget as a duration.
func (c Config) ScanTimeout() time.Duration {
	return time.Duration(c.ScanTimeoutSec) * time.Second
}

func applyEnv(cfg *Config) {
	setString(&cfg.BackendURL, EnvBackendURL)
	setString(&cfg.DeviceSecret, EnvDeviceSecret)
	setString(&cfg.DeviceName, EnvDeviceName)
	setString(&cfg.WatchName, EnvWatchName)
	setString(&cfg.BLEAdapter, EnvBLEAdapter)
	setString(&cfg.MetricsAddr, EnvMetricsAddr)
	setInt(&cfg.RetryLimit, EnvRetryLimit)
	setInt(&cfg.RetryDelayMs, EnvRetryDelayMs)
	setInt(&cfg.ThrottleMs, EnvThrottleMs)
	setInt(&cfg.ScanTimeoutSec, EnvScanTimeoutSec)
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) {
	value := os.Getenv(key)
	if value == "" {
		return
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return
	}
	*dst = parsed
}
