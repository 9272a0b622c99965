package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ghalamif/BeaconFlow/internal/adapters/observability"
	"github.com/ghalamif/BeaconFlow/internal/domain"
	"github.com/ghalamif/BeaconFlow/internal/ports"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Policy   ports.Policy            `yaml:"policy"`
	Watchers []WatcherConfig         `yaml:"watchers"`
	Store    StoreConfig             `yaml:"store"`
	Radio    RadioConfig             `yaml:"radio"`
	Metrics  MetricsConfig           `yaml:"metrics"`
	Logging  observability.LogConfig `yaml:"logging"`
}

// WatcherConfig is one named task: a company filter plus optional RSSI gate.
type WatcherConfig struct {
	Name              string            `yaml:"name"`
	CompanyID         uint16            `yaml:"company_id"`
	RSSI              *domain.RSSIRange `yaml:"rssi"`
	SamplingInterval  time.Duration     `yaml:"sampling_interval"`
	OutOfRangeTimeout time.Duration     `yaml:"out_of_range_timeout"`
}

func (w WatcherConfig) Filter() domain.FilterConfig {
	return domain.FilterConfig{
		CompanyID:         w.CompanyID,
		RSSI:              w.RSSI,
		SamplingInterval:  w.SamplingInterval,
		OutOfRangeTimeout: w.OutOfRangeTimeout,
	}
}

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type StoreConfig struct {
	Driver     string      `yaml:"driver"`
	Dir        string      `yaml:"dir"`
	Sync       bool        `yaml:"sync"`
	ConnString string      `yaml:"conn_string"`
	Table      string      `yaml:"table"`
	Redis      RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Radio drivers.
const (
	RadioBLE = "ble"
	RadioSim = "sim"
)

type RadioConfig struct {
	Driver   string `yaml:"driver"`
	DeviceID int    `yaml:"device_id"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultMaxWindowEvents bounds a window when the config does not say otherwise.
const DefaultMaxWindowEvents = 1_000

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Keys missing from the file keep these values; an explicit
	// max_window_events: 0 selects an unbounded window.
	cfg := Config{Policy: ports.Policy{MaxWindowEvents: DefaultMaxWindowEvents}}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Policy.OnWindowFull == "" {
		c.Policy.OnWindowFull = ports.DropOldest
	}
	if c.Policy.FlushInterval == 0 {
		c.Policy.FlushInterval = 15 * time.Minute
	}
	if c.Policy.PublishTimeout == 0 {
		c.Policy.PublishTimeout = 5 * time.Second
	}
	if c.Store.Driver == "" {
		c.Store.Driver = StoreMemory
	}
	if c.Store.Dir == "" {
		c.Store.Dir = "./data/results"
	}
	if c.Store.Table == "" {
		c.Store.Table = "beacon_results"
	}
	if c.Store.Redis.Prefix == "" {
		c.Store.Redis.Prefix = "beaconflow:results"
	}
	if c.Radio.Driver == "" {
		c.Radio.Driver = RadioBLE
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.File != "" && c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 50
	}
}

func (c *Config) validate() error {
	switch c.Policy.OnWindowFull {
	case ports.DropOldest, ports.DropNewest:
	default:
		return fmt.Errorf("policy.on_window_full must be %q or %q, got %q", ports.DropOldest, ports.DropNewest, c.Policy.OnWindowFull)
	}
	if c.Policy.MaxWindowEvents < 0 {
		return fmt.Errorf("policy.max_window_events must not be negative")
	}
	if c.Policy.FlushInterval < 0 {
		return fmt.Errorf("policy.flush_interval must not be negative")
	}

	if len(c.Watchers) == 0 {
		return fmt.Errorf("at least one watcher is required")
	}
	seen := make(map[string]struct{}, len(c.Watchers))
	for i, w := range c.Watchers {
		if w.Name == "" {
			return fmt.Errorf("watchers[%d].name is required", i)
		}
		if _, dup := seen[w.Name]; dup {
			return fmt.Errorf("watchers[%d]: duplicate name %q", i, w.Name)
		}
		seen[w.Name] = struct{}{}
		if err := w.Filter().Validate(); err != nil {
			return fmt.Errorf("watcher %s: %w", w.Name, err)
		}
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StoreFile:
		if c.Store.Dir == "" {
			return fmt.Errorf("store.dir is required for the file driver")
		}
	case StorePostgres:
		if c.Store.ConnString == "" {
			return fmt.Errorf("store.conn_string is required for the postgres driver")
		}
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	switch c.Radio.Driver {
	case RadioBLE, RadioSim:
	default:
		return fmt.Errorf("unknown radio.driver %q", c.Radio.Driver)
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	return nil
}
