// Package config loads graphrt settings from flags, GRAPHRT_* environment
// variables and an optional YAML file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, as in GRAPHRT_SERVER_ADDR.
const EnvPrefix = "GRAPHRT"

type Config struct {
	Server        ServerConfig   `mapstructure:"server"`
	Schema        SchemaConfig   `mapstructure:"schema"`
	Remote        RemoteConfig   `mapstructure:"remote"`
	Log           LogConfig      `mapstructure:"log"`
	Otel          OtelConfig     `mapstructure:"otel"`
	Cache         CacheConfig    `mapstructure:"cache"`
	Metrics       MetricsConfig  `mapstructure:"metrics"`
	Executor      ExecutorConfig `mapstructure:"executor"`
	Introspection bool           `mapstructure:"introspection"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Path            string        `mapstructure:"path"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Pretty          bool          `mapstructure:"pretty"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	MetadataHeaders []string      `mapstructure:"metadata_headers"`
	GraphiQL        bool          `mapstructure:"graphiql"`
}

type SchemaConfig struct {
	// Paths are SDL files or directories searched recursively.
	Paths []string `mapstructure:"paths"`
}

type RemoteConfig struct {
	// Manifest is the YAML file declaring remote resolvers. Empty disables
	// remote resolvers.
	Manifest            string        `mapstructure:"manifest"`
	MaxConnsPerEndpoint int           `mapstructure:"max_conns_per_endpoint"`
	RPCTimeout          time.Duration `mapstructure:"rpc_timeout"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type OtelConfig struct {
	// Endpoint is the OTLP gRPC collector address. Empty disables tracing.
	Endpoint string `mapstructure:"endpoint"`
	Service  string `mapstructure:"service"`
}

type CacheConfig struct {
	// Documents bounds the parsed document cache. Zero disables it.
	Documents int `mapstructure:"documents"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type ExecutorConfig struct {
	// Concurrency bounds concurrent calls per wave. Zero is unbounded.
	Concurrency int `mapstructure:"concurrency"`
}

var defaults = map[string]any{
	"server.addr":                   ":8080",
	"server.path":                   "/graphql",
	"server.timeout":                10 * time.Second,
	"server.pretty":                 false,
	"server.max_body_bytes":         int64(1 << 20),
	"server.cors_origins":           []string{},
	"server.metadata_headers":       []string{},
	"server.graphiql":               true,
	"schema.paths":                  []string{"schema"},
	"remote.manifest":               "",
	"remote.max_conns_per_endpoint": 4,
	"remote.rpc_timeout":            5 * time.Second,
	"log.level":                     "info",
	"log.development":               false,
	"otel.endpoint":                 "",
	"otel.service":                  "graphrt",
	"cache.documents":               1000,
	"metrics.enabled":               true,
	"metrics.path":                  "/metrics",
	"executor.concurrency":          0,
	"introspection":                 true,
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"addr":      "server.addr",
	"schema":    "schema.paths",
	"manifest":  "remote.manifest",
	"log-level": "log.level",
	"dev":       "log.development",
}

// BindFlags defines the common flags on fs and binds them to v.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	fs.String("config", "", "Configuration file (YAML). Overridden by environment variables and flags.")
	fs.String("addr", defaults["server.addr"].(string), "HTTP listen address")
	fs.StringSlice("schema", defaults["schema.paths"].([]string), "SDL files or directories")
	fs.String("manifest", "", "Remote resolver manifest (YAML)")
	fs.String("log-level", defaults["log.level"].(string), "Log level: debug, info, warn or error")
	fs.Bool("dev", false, "Development logging")
	if err := v.BindPFlag("config", fs.Lookup("config")); err != nil {
		return err
	}
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// Load reads the configuration file named by the "config" key, if any, and
// returns the validated configuration.
func Load(v *viper.Viper) (*Config, error) {
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must be set"))
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		errs = append(errs, fmt.Errorf("server.path %q must start with /", c.Server.Path))
	}
	if c.Server.Timeout < 0 {
		errs = append(errs, errors.New("server.timeout must not be negative"))
	}
	if len(c.Schema.Paths) == 0 {
		errs = append(errs, errors.New("schema.paths must name at least one file or directory"))
	}
	if c.Remote.MaxConnsPerEndpoint < 1 {
		errs = append(errs, errors.New("remote.max_conns_per_endpoint must be at least 1"))
	}
	if c.Cache.Documents < 0 {
		errs = append(errs, errors.New("cache.documents must not be negative"))
	}
	if c.Executor.Concurrency < 0 {
		errs = append(errs, errors.New("executor.concurrency must not be negative"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	return errors.Join(errs...)
}
