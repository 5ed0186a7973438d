package config

import (
	"flag"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// AgentConfig holds configuration for a node agent.
type AgentConfig struct {
	ConfigFile     string        `yaml:"-"`
	ControllerAddr string        `yaml:"controller_addr"`
	NodeID         int           `yaml:"node_id"`
	Token          string        `yaml:"token"`
	LogLevel       string        `yaml:"log_level"`
	CACert         string        `yaml:"ca_cert"`
	MinBackoff     time.Duration `yaml:"min_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	Unregister     bool          `yaml:"unregister_on_exit"`
}

// SetDefaults initializes c with built-in defaults.
func (c *AgentConfig) SetDefaults() {
	if c.ControllerAddr == "" {
		c.ControllerAddr = "localhost:9090"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.MinBackoff == 0 {
		c.MinBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 30 * time.Second
	}
}

// LoadFile populates the config from a YAML file.
func (c *AgentConfig) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, c)
}

// ApplyEnv overlays environment variables onto the current config values.
func (c *AgentConfig) ApplyEnv() {
	if v := getEnv("CONFIG_FILE"); v != "" {
		c.ConfigFile = v
	}
	if v := getEnv("CONTROLLER_ADDR"); v != "" {
		c.ControllerAddr = v
	}
	if v := getEnv("NODE_ID"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.NodeID = n
		}
	}
	if v := getEnv("TOKEN"); v != "" {
		c.Token = v
	}
	if v := getEnv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("CA_CERT"); v != "" {
		c.CACert = v
	}
	if v := getEnv("UNREGISTER_ON_EXIT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Unregister = b
		}
	}
}

// BindFlags binds command line flags on fs using the current values as
// defaults.
func (c *AgentConfig) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "agent config file path")
	fs.StringVar(&c.ControllerAddr, "controller", c.ControllerAddr, "controller gRPC address")
	fs.IntVar(&c.NodeID, "node-id", c.NodeID, "node id this agent registers as")
	fs.StringVar(&c.Token, "token", c.Token, "bearer token presented to the controller")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log verbosity (debug, info, warn, error)")
	fs.StringVar(&c.CACert, "ca-cert", c.CACert, "CA certificate for a TLS controller; empty dials without TLS")
	fs.DurationVar(&c.MinBackoff, "min-backoff", c.MinBackoff, "initial reconnect delay")
	fs.DurationVar(&c.MaxBackoff, "max-backoff", c.MaxBackoff, "maximum reconnect delay")
	fs.BoolVar(&c.Unregister, "unregister-on-exit", c.Unregister, "unregister the node when the agent stops")
}
