package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/confessions/internal/flagx"
	"github.com/dmitrijs2005/confessions/internal/server/geo"
	"github.com/dmitrijs2005/confessions/internal/timex"
)

// JsonConfig is the file form of Config. Durations use timex.Duration so
// they may be written as "24h" or as integer nanoseconds. Pointer fields
// distinguish "absent" from zero values.
type JsonConfig struct {
	EndpointAddrGRPC              string          `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP              string          `json:"endpoint_addr_http"`
	StorageBackend                string          `json:"storage_backend"`
	DatabaseDSN                   string          `json:"database_dsn"`
	SecretKey                     string          `json:"secret_key"`
	IdentityKey                   string          `json:"identity_key"`
	IdentityTokenValidityDuration *timex.Duration `json:"identity_token_validity_duration"`
	SubmissionWindow              *timex.Duration `json:"submission_window"`
	WindowJitter                  *timex.Duration `json:"window_jitter"`
	StorageTimeout                *timex.Duration `json:"storage_timeout"`
	FeedDefaultLimit              int             `json:"feed_default_limit"`
	FeedMaxLimit                  int             `json:"feed_max_limit"`
	TrendingGravity               *float64        `json:"trending_gravity"`
	TrendingThreshold             *float64        `json:"trending_threshold"`
	TrendingHorizon               *timex.Duration `json:"trending_horizon"`
	TrendingCandidates            int             `json:"trending_candidates"`
	LogLevel                      string          `json:"log_level"`
	Regions                       []geo.Region    `json:"regions"`
}

// parseJson overlays config with the JSON file named by -c/-config, if any.
// Unreadable or invalid files panic: a server must not start on a config it
// could not read.
func parseJson(config *Config, args []string) {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.IdentityKey, c.IdentityKey)
	setString(&config.LogLevel, c.LogLevel)

	if c.IdentityTokenValidityDuration != nil {
		config.IdentityTokenValidityDuration = c.IdentityTokenValidityDuration.Duration
	}
	if c.SubmissionWindow != nil {
		config.SubmissionWindow = c.SubmissionWindow.Duration
	}
	if c.WindowJitter != nil {
		config.WindowJitter = c.WindowJitter.Duration
	}
	if c.StorageTimeout != nil {
		config.StorageTimeout = c.StorageTimeout.Duration
	}
	if c.TrendingHorizon != nil {
		config.TrendingHorizon = c.TrendingHorizon.Duration
	}
	if c.TrendingGravity != nil {
		config.TrendingGravity = *c.TrendingGravity
	}
	if c.TrendingThreshold != nil {
		config.TrendingThreshold = *c.TrendingThreshold
	}
	if c.FeedDefaultLimit > 0 {
		config.FeedDefaultLimit = c.FeedDefaultLimit
	}
	if c.FeedMaxLimit > 0 {
		config.FeedMaxLimit = c.FeedMaxLimit
	}
	if c.TrendingCandidates > 0 {
		config.TrendingCandidates = c.TrendingCandidates
	}
	if len(c.Regions) > 0 {
		config.Regions = c.Regions
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
