// Package config loads the daemon's settings from, in increasing precedence,
// an optional YAML file, environment variables, and command-line flags.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is every setting wolfstackd needs to start its long-running
// components and HTTP server.
type Config struct {
	NodeID      string        `yaml:"node_id"`
	Hostname    string        `yaml:"hostname"`
	ClusterName string        `yaml:"cluster_name"`
	DataDir     string        `yaml:"data_dir"`
	BindAddr    string        `yaml:"bind_addr"`
	BindPort    int           `yaml:"bind_port"`
	PollPeriod  time.Duration `yaml:"poll_period"`
	TickPeriod  time.Duration `yaml:"reconcile_period"`
	Overlay     string        `yaml:"overlay_interface"`
	SecretPath  string        `yaml:"secret_path"`
	LogLevel    string        `yaml:"log_level"`
	LogJSON     bool          `yaml:"log_json"`
}

// Default returns the baseline configuration before any file, env, or flag
// overrides are applied.
func Default() Config {
	hostname, _ := os.Hostname()
	return Config{
		NodeID:      hostname,
		Hostname:    hostname,
		ClusterName: "WolfStack",
		DataDir:     "/var/lib/wolfstack",
		BindAddr:    "0.0.0.0",
		BindPort:    9090,
		PollPeriod:  10 * time.Second,
		TickPeriod:  10 * time.Second,
		Overlay:     "wolfnet0",
		SecretPath:  "/etc/wolfstack/cluster.key",
		LogLevel:    "info",
	}
}

// LoadFile merges path's YAML contents into cfg if the file exists; a
// missing file is not an error, since the file is optional.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// LoadEnv overlays WOLFSTACK_-prefixed environment variables onto cfg.
func LoadEnv(cfg *Config) {
	if v := os.Getenv("WOLFSTACK_NODE_ID"); v != "" {
		cfg.NodeID = v
	}
	if v := os.Getenv("WOLFSTACK_CLUSTER_NAME"); v != "" {
		cfg.ClusterName = v
	}
	if v := os.Getenv("WOLFSTACK_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("WOLFSTACK_BIND_ADDR"); v != "" {
		cfg.BindAddr = v
	}
	if v := os.Getenv("WOLFSTACK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
