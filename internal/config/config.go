package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"connwatch/internal/platform"
)

// Config represents configuration data for the connectivity watcher.
type Config struct {
	DataDirectory       string `yaml:"data_directory"`
	NodeID              string `yaml:"node_id"`
	NodeName            string `yaml:"node_name"`
	HistoryLimit        int    `yaml:"history_limit"`
	DebounceMs          int    `yaml:"debounce_ms"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	Peers               []Peer `yaml:"peers"`
	PeerRefreshSec      int    `yaml:"peer_refresh_seconds"`
}

// Peer defines a remote connwatch instance to aggregate.
type Peer struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Enabled bool   `yaml:"enabled"`
}

// DefaultConfig returns sensible defaults in case no configuration file is
// provided.
func DefaultConfig() Config {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "connwatch-local"
	}

	return Config{
		DataDirectory:       filepath.Join(".dist", "data"),
		NodeID:              hostname,
		NodeName:            hostname,
		HistoryLimit:        2048,
		DebounceMs:          750,
		PollIntervalSeconds: 5,
		PeerRefreshSec:      60,
	}
}

// Load reads configuration from a yaml file. Missing files fall back to
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.DataDirectory == "" {
		cfg.DataDirectory = DefaultConfig().DataDirectory
	}
	if cfg.NodeID == "" {
		cfg.NodeID = DefaultConfig().NodeID
	}
	if cfg.NodeName == "" {
		cfg.NodeName = cfg.NodeID
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}
	if cfg.DebounceMs <= 0 {
		cfg.DebounceMs = DefaultConfig().DebounceMs
	}
	if cfg.PollIntervalSeconds <= 0 {
		cfg.PollIntervalSeconds = DefaultConfig().PollIntervalSeconds
	}
	if cfg.PeerRefreshSec <= 0 {
		cfg.PeerRefreshSec = DefaultConfig().PeerRefreshSec
	}
	for i, peer := range cfg.Peers {
		if !peer.Enabled {
			continue
		}
		if peer.ID == "" {
			return Config{}, fmt.Errorf("peer %d is missing id", i)
		}
		if peer.BaseURL == "" {
			return Config{}, fmt.Errorf("peer %s base_url is required", peer.ID)
		}
	}
	return cfg, nil
}

// PlatformOptions translates the config into platform tuning knobs.
func (c Config) PlatformOptions() platform.Options {
	return platform.Options{
		Debounce:     time.Duration(c.DebounceMs) * time.Millisecond,
		PollInterval: time.Duration(c.PollIntervalSeconds) * time.Second,
	}
}
