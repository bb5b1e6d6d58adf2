package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// SourceConfig defines how the producer feed is reached
type SourceConfig struct {
	Kind                      string `toml:"Kind"`
	Address                   string `toml:"Address"`
	PollIntervalMillis        uint32 `toml:"PollIntervalMillis"`
	IdleTimeoutSeconds        uint32 `toml:"IdleTimeoutSeconds"`
	ReconnectRetries          uint32 `toml:"ReconnectRetries"`
	ReconnectBackoffMillis    uint32 `toml:"ReconnectBackoffMillis"`
	ReconnectBackoffCapMillis uint32 `toml:"ReconnectBackoffCapMillis"`
}

// AggregationConfig tunes the metric aggregator
type AggregationConfig struct {
	MaxHistory       int    `toml:"MaxHistory"`
	RateWindowMicros uint64 `toml:"RateWindowMicros"`
}

// ApiConfig defines the read-side HTTP API settings
type ApiConfig struct {
	ListenAddress string `toml:"ListenAddress"`
}

// Config maps to the config.toml file for the monitor service
type Config struct {
	Name        string            `toml:"Name"`
	Source      SourceConfig      `toml:"Source"`
	Aggregation AggregationConfig `toml:"Aggregation"`
	Api         ApiConfig         `toml:"Api"`
}

// LoadConfig parses a TOML file into the Config struct
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filepath, err)
	}

	var cfg Config
	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &cfg, nil
}
