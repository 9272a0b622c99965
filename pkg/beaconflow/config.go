package beaconflow

import (
	"github.com/ghalamif/BeaconFlow/internal/adapters/observability"
	"github.com/ghalamif/BeaconFlow/internal/app/config"
	"github.com/ghalamif/BeaconFlow/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls window size, overflow and flush cadence.
	Policy = ports.Policy
	// WatcherConfig describes one named watcher.
	WatcherConfig = config.WatcherConfig
	// StoreConfig selects the result channel backend.
	StoreConfig = config.StoreConfig
	// RedisConfig configures the Redis result channel.
	RedisConfig = config.RedisConfig
	// RadioConfig selects the radio backend.
	RadioConfig = config.RadioConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// LogConfig configures logrus and optional file rotation.
	LogConfig = observability.LogConfig
)

// Store and radio driver names accepted by Config.
const (
	StoreMemory   = config.StoreMemory
	StoreFile     = config.StoreFile
	StorePostgres = config.StorePostgres
	StoreRedis    = config.StoreRedis
	RadioBLE      = config.RadioBLE
	RadioSim      = config.RadioSim
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
