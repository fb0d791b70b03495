package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/sajjad-MoBe/NumAPI/internal/shared"
)

// EnvPrefix is prepended to every environment variable the service reads,
// e.g. NUMAPI_ADDRESS or NUMAPI_MAX_FACTORIAL_N.
const EnvPrefix = "NUMAPI"

// Keys used in config files, env vars and flag bindings.
const (
	KeyAddress         = "address"
	KeyGRPCAddress     = "grpc_address"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyMaxFactorialN   = "max_factorial_n"
	KeyMaxFibonacciN   = "max_fibonacci_n"
	KeyChunkSize       = "chunk_size"
	KeyTracingEndpoint = "tracing_endpoint"
	KeyServiceName     = "service_name"
	KeyShutdownTimeout = "shutdown_timeout"
)

// Config holds everything the serve command needs
type Config struct {
	Address         string        `mapstructure:"address"`
	GRPCAddress     string        `mapstructure:"grpc_address"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	MaxFactorialN   int64         `mapstructure:"max_factorial_n"`
	MaxFibonacciN   int64         `mapstructure:"max_fibonacci_n"`
	ChunkSize       int           `mapstructure:"chunk_size"`
	TracingEndpoint string        `mapstructure:"tracing_endpoint"`
	ServiceName     string        `mapstructure:"service_name"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DefaultConfig returns the configuration used when nothing is overridden
func DefaultConfig() *Config {
	return &Config{
		Address:         ":8080",
		GRPCAddress:     "",
		LogLevel:        "info",
		LogFormat:       string(shared.FormatJSON),
		MaxFactorialN:   10000,
		MaxFibonacciN:   100000,
		ChunkSize:       64 * 1024,
		TracingEndpoint: "",
		ServiceName:     "numapi",
		ShutdownTimeout: 10 * time.Second,
	}
}

// NewViper returns a viper instance with defaults registered and
// environment lookup enabled.
func NewViper() *viper.Viper {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault(KeyAddress, d.Address)
	v.SetDefault(KeyGRPCAddress, d.GRPCAddress)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyLogFormat, d.LogFormat)
	v.SetDefault(KeyMaxFactorialN, d.MaxFactorialN)
	v.SetDefault(KeyMaxFibonacciN, d.MaxFibonacciN)
	v.SetDefault(KeyChunkSize, d.ChunkSize)
	v.SetDefault(KeyTracingEndpoint, d.TracingEndpoint)
	v.SetDefault(KeyServiceName, d.ServiceName)
	v.SetDefault(KeyShutdownTimeout, d.ShutdownTimeout)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the optional config file and unmarshals the merged result.
// An empty path means defaults, env vars and bound flags only.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Address == "" {
		return &ConfigError{Field: KeyAddress, Message: "must not be empty"}
	}
	if c.MaxFactorialN < 0 {
		return &ConfigError{Field: KeyMaxFactorialN, Message: "must be >= 0"}
	}
	if c.MaxFibonacciN < 0 {
		return &ConfigError{Field: KeyMaxFibonacciN, Message: "must be >= 0"}
	}
	if c.ChunkSize <= 0 {
		return &ConfigError{Field: KeyChunkSize, Message: "must be > 0"}
	}
	if _, err := shared.ParseLevel(c.LogLevel); err != nil {
		return &ConfigError{Field: KeyLogLevel, Message: err.Error()}
	}
	switch shared.LogFormat(c.LogFormat) {
	case shared.FormatJSON, shared.FormatText:
	default:
		return &ConfigError{Field: KeyLogFormat, Message: fmt.Sprintf("unknown format %q", c.LogFormat)}
	}
	return nil
}

// WatchLogLevel re-applies log_level whenever the config file changes.
// Other keys need a restart.
func WatchLogLevel(v *viper.Viper, logger *shared.Logger) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		level, err := shared.ParseLevel(v.GetString(KeyLogLevel))
		if err != nil {
			logger.Warn("ignoring invalid log level from config", "file", e.Name, "error", err)
			return
		}
		logger.SetLevel(level)
		logger.Info("log level reloaded", "file", e.Name, "level", level.String())
	})
	v.WatchConfig()
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
