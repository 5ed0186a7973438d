// Package config holds controller and agent settings. Values are layered:
// built-in defaults, then a YAML file, then TASKBALANCER_* environment
// variables, then command line flags.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/VerteraIO/taskbalancer/internal/controlplane/stores"
)

const envPrefix = "TASKBALANCER_"

// ControllerConfig holds configuration for the scheduler controller.
type ControllerConfig struct {
	ConfigFile     string        `yaml:"-"`
	HTTPAddr       string        `yaml:"http_addr"`
	GRPCAddr       string        `yaml:"grpc_addr"`
	LogLevel       string        `yaml:"log_level"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	JWTSecret      string        `yaml:"jwt_secret"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	DrainTimeout   time.Duration `yaml:"drain_timeout"`
	TLSCert        string        `yaml:"tls_cert"`
	TLSKey         string        `yaml:"tls_key"`
	TLSDir         string        `yaml:"tls_dir"`
	TLSHosts       []string      `yaml:"tls_hosts"`
	Store          stores.Config `yaml:"store"`
	Reconcile      Reconcile     `yaml:"reconcile"`
}

// Reconcile configures the background scheduler that places pending tasks.
// A zero threshold or interval disables it.
type Reconcile struct {
	Threshold int           `yaml:"threshold"`
	Interval  time.Duration `yaml:"interval"`
}

// SetDefaults initializes c with built-in defaults.
func (c *ControllerConfig) SetDefaults() {
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.GRPCAddr == "" {
		c.GRPCAddr = ":9090"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = 10 * time.Second
	}
	if len(c.TLSHosts) == 0 {
		c.TLSHosts = []string{"localhost", "127.0.0.1"}
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.Store.Key == "" {
		c.Store.Key = stores.DefaultKey
	}
	if c.Store.Timeout == 0 {
		c.Store.Timeout = 5 * time.Second
	}
}

// LoadFile populates the config from a YAML file.
func (c *ControllerConfig) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, c)
}

// ApplyEnv overlays environment variables onto the current config values.
func (c *ControllerConfig) ApplyEnv() {
	if v := getEnv("CONFIG_FILE"); v != "" {
		c.ConfigFile = v
	}
	if v := getEnv("HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := getEnv("GRPC_ADDR"); v != "" {
		c.GRPCAddr = v
	}
	if v := getEnv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitComma(v)
	}
	if v := getEnv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RequestTimeout = d
		}
	}
	if v := getEnv("DRAIN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.DrainTimeout = d
		}
	}
	if v := getEnv("TLS_CERT"); v != "" {
		c.TLSCert = v
	}
	if v := getEnv("TLS_KEY"); v != "" {
		c.TLSKey = v
	}
	if v := getEnv("TLS_DIR"); v != "" {
		c.TLSDir = v
	}
	if v := getEnv("TLS_HOSTS"); v != "" {
		c.TLSHosts = splitComma(v)
	}
	if v := getEnv("STORE"); v != "" {
		c.Store.Backend = v
	}
	if v := getEnv("REDIS_ADDR"); v != "" {
		c.Store.RedisAddr = v
	}
	if v := getEnv("ETCD_ENDPOINTS"); v != "" {
		c.Store.EtcdEndpoints = splitComma(v)
	}
	if v := getEnv("STORE_KEY"); v != "" {
		c.Store.Key = v
	}
	if v := getEnv("RECONCILE_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Reconcile.Threshold = n
		}
	}
	if v := getEnv("RECONCILE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Reconcile.Interval = d
		}
	}
}

// BindFlags binds command line flags on fs using the current values as
// defaults.
func (c *ControllerConfig) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "controller config file path")
	fs.StringVar(&c.HTTPAddr, "http-addr", c.HTTPAddr, "HTTP listen address for the REST API")
	fs.StringVar(&c.GRPCAddr, "grpc-addr", c.GRPCAddr, "gRPC listen address; empty disables the gRPC server")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log verbosity (debug, info, warn, error)")
	fs.StringVar(&c.JWTSecret, "jwt-secret", c.JWTSecret, "HMAC secret for bearer tokens on mutating calls; empty disables auth")
	fs.DurationVar(&c.RequestTimeout, "request-timeout", c.RequestTimeout, "maximum duration to process an HTTP request")
	fs.DurationVar(&c.DrainTimeout, "drain-timeout", c.DrainTimeout, "time to wait for in-flight requests on shutdown")
	fs.StringVar(&c.TLSCert, "tls-cert", c.TLSCert, "gRPC server certificate file")
	fs.StringVar(&c.TLSKey, "tls-key", c.TLSKey, "gRPC server key file")
	fs.StringVar(&c.TLSDir, "tls-dir", c.TLSDir, "directory for a generated dev CA and server certificate, used when tls-cert is empty")
	fs.StringVar(&c.Store.Backend, "store", c.Store.Backend, "state store backend (memory, redis, etcd)")
	fs.StringVar(&c.Store.RedisAddr, "redis-addr", c.Store.RedisAddr, "redis connection URL for the redis store")
	fs.StringVar(&c.Store.Key, "store-key", c.Store.Key, "key the state document is saved under")
	fs.IntVar(&c.Reconcile.Threshold, "reconcile-threshold", c.Reconcile.Threshold, "threshold used to place pending tasks in the background; 0 disables")
	fs.DurationVar(&c.Reconcile.Interval, "reconcile-interval", c.Reconcile.Interval, "how often pending tasks are placed in the background; 0 disables")
	fs.Func("allowed-origins", "comma separated list of allowed CORS origins", func(v string) error {
		c.AllowedOrigins = splitComma(v)
		return nil
	})
	fs.Func("tls-hosts", "comma separated host names and IPs for the generated server certificate", func(v string) error {
		c.TLSHosts = splitComma(v)
		return nil
	})
	fs.Func("etcd-endpoints", "comma separated etcd endpoints for the etcd store", func(v string) error {
		c.Store.EtcdEndpoints = splitComma(v)
		return nil
	})
}

func getEnv(key string) string {
	return os.Getenv(envPrefix + key)
}

func splitComma(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ConfigPath finds a --config/-config value in args before flags are
// parsed, so the file can be loaded ahead of flag defaults.
func ConfigPath(args []string, fallback string) string {
	for i, a := range args {
		switch {
		case a == "--config" || a == "-config":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(a, "--config="):
			return strings.TrimPrefix(a, "--config=")
		case strings.HasPrefix(a, "-config="):
			return strings.TrimPrefix(a, "-config=")
		}
	}
	return fallback
}
