// Package config loads runtime configuration for the confessions CLI.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file given with --config.
//  3. Command-line flags, applied by the cli package.
//
// JSON durations use timex.Duration, so "250ms" and integer nanoseconds
// are both accepted:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "database_path": "/home/me/.confessions/client.db",
//	  "retry_attempts": 4,
//	  "retry_base_delay": "250ms",
//	  "request_timeout": "10s"
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/confessions/internal/timex"
)

type Config struct {
	ServerEndpointAddr string
	DatabasePath       string
	// RetryAttempts bounds retries of calls that failed as unavailable.
	RetryAttempts  uint64
	RetryBaseDelay time.Duration
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.DatabasePath = defaultDatabasePath()
	c.RetryAttempts = 4
	c.RetryBaseDelay = 250 * time.Millisecond
	c.RequestTimeout = 10 * time.Second
}

func defaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "confessions.db"
	}
	return filepath.Join(dir, "confessions", "client.db")
}

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	ServerEndpointAddr string          `json:"server_endpoint_addr"`
	DatabasePath       string          `json:"database_path"`
	RetryAttempts      *uint64         `json:"retry_attempts"`
	RetryBaseDelay     *timex.Duration `json:"retry_base_delay"`
	RequestTimeout     *timex.Duration `json:"request_timeout"`
}

// Load applies defaults and then the JSON file at path, if path is set.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	jc.apply(cfg)
	return cfg, nil
}

func (jc *JsonConfig) apply(cfg *Config) {
	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.RetryAttempts != nil {
		cfg.RetryAttempts = *jc.RetryAttempts
	}
	if jc.RetryBaseDelay != nil {
		cfg.RetryBaseDelay = jc.RetryBaseDelay.Duration
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
}
