// Package config loads the daemon's YAML configuration file, following
// the struct-tag-driven style the rest of this codebase uses for its
// zone-definition format.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level daemon configuration.
type Config struct {
	Listen   ListenSection   `yaml:"listen"`
	Zones    []string        `yaml:"zones,omitempty"`
	ACL      ACLSection      `yaml:"acl,omitempty"`
	RateLimit RateLimitSection `yaml:"rate_limit,omitempty"`
	Cookie   CookieSection   `yaml:"cookie,omitempty"`
	Metrics  MetricsSection  `yaml:"metrics,omitempty"`
	Resolver string          `yaml:"resolver"`
	Proxy    ProxySection    `yaml:"proxy,omitempty"`
}

// ListenSection configures the transports the server binds.
type ListenSection struct {
	UDP         string        `yaml:"udp,omitempty"`
	TCP         string        `yaml:"tcp,omitempty"`
	TCPIdle     time.Duration `yaml:"tcp_idle,omitempty"`
	MaxUDPSize  int           `yaml:"max_udp_size,omitempty"`
}

// ACLSection configures the access control list.
type ACLSection struct {
	DefaultAllow bool     `yaml:"default_allow"`
	Allow        []string `yaml:"allow,omitempty"`
	Deny         []string `yaml:"deny,omitempty"`
}

// RateLimitSection configures both per-client and response rate limiting.
type RateLimitSection struct {
	QueriesPerSecond float64  `yaml:"queries_per_second,omitempty"`
	BurstSize        int      `yaml:"burst_size,omitempty"`
	Exempt           []string `yaml:"exempt,omitempty"`

	RRLEnabled     bool `yaml:"rrl_enabled,omitempty"`
	RRLPerSecond   int  `yaml:"rrl_per_second,omitempty"`
	RRLWindow      int  `yaml:"rrl_window,omitempty"`
	RRLSlip        int  `yaml:"rrl_slip,omitempty"`
}

// CookieSection configures RFC 7873/9018 DNS Cookies.
type CookieSection struct {
	Enabled       bool   `yaml:"enabled"`
	RequireValid  bool   `yaml:"require_valid,omitempty"`
	ClusterSecret string `yaml:"cluster_secret,omitempty"`
}

// MetricsSection configures the Prometheus exporter.
type MetricsSection struct {
	Listen string `yaml:"listen,omitempty"`
	Path   string `yaml:"path,omitempty"`
}

// ProxySection configures the proxy resolver's upstream.
type ProxySection struct {
	Upstream string        `yaml:"upstream,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

// Default returns a Config with the daemon's built-in defaults.
func Default() Config {
	return Config{
		Listen: ListenSection{
			UDP:        ":53",
			TCP:        ":53",
			TCPIdle:    120 * time.Second,
			MaxUDPSize: 4096,
		},
		ACL: ACLSection{DefaultAllow: true},
		RateLimit: RateLimitSection{
			QueriesPerSecond: 100,
			BurstSize:        200,
			RRLEnabled:       true,
			RRLPerSecond:     5,
			RRLWindow:        15,
			RRLSlip:          2,
		},
		Metrics:  MetricsSection{Listen: ":9153", Path: "/metrics"},
		Resolver: "fixed",
	}
}

// Load reads and parses a YAML config file, applying defaults for any
// field the file leaves zero-valued.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
