// Package config loads the command line tool settings from a YAML file,
// HTTPSTACK_* environment variables and flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/wumo-util/http-stack/client"
	"github.com/wumo-util/http-stack/client/cookie"
)

// Config holds all configuration settings.
type Config struct {
	// Cookies is the persistent cookie document.
	Cookies string `mapstructure:"cookies" yaml:"cookies"`
	// UserAgent is sent on every request; empty sends none.
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
	// Timeout bounds each request, e.g. "30s". Zero disables it.
	Timeout string `mapstructure:"timeout" yaml:"timeout"`
	// RPS and Burst enable request throttling when both are positive.
	RPS   int `mapstructure:"rps" yaml:"rps"`
	Burst int `mapstructure:"burst" yaml:"burst"`
	// ChunkSize is the streaming read size, e.g. "8KiB" or "1MB".
	ChunkSize string `mapstructure:"chunk_size" yaml:"chunk_size"`
	// Proxy routes every request through the given HTTP proxy URL.
	Proxy string `mapstructure:"proxy" yaml:"proxy,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	ParsedTimeout   time.Duration `mapstructure:"-" yaml:"-"`
	ParsedChunkSize int           `mapstructure:"-" yaml:"-"`
	ParsedProxy     *url.URL      `mapstructure:"-" yaml:"-"`
	ParsedLogLevel  slog.Level    `mapstructure:"-" yaml:"-"`
}

const (
	// EnvPrefix prefixes every environment variable, e.g. HTTPSTACK_TIMEOUT.
	EnvPrefix = "HTTPSTACK"

	// DefaultConfigName is looked up in the working directory when no file is given.
	DefaultConfigName = ".httpstack"

	DefaultTimeout   = "0s"
	DefaultChunkSize = "8KiB"
	DefaultLogLevel  = "info"
)

var (
	ErrInvalidTimeout   = errors.New("timeout must not be negative")
	ErrInvalidThrottle  = errors.New("rps and burst must both be positive, or both zero")
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
	ErrInvalidProxy     = errors.New("proxy must be an absolute URL")
	ErrUnknownLogLevel  = errors.New("unknown log level")
)

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"cookies":    "cookies",
	"user-agent": "user_agent",
	"timeout":    "timeout",
	"rps":        "rps",
	"burst":      "burst",
	"chunk-size": "chunk_size",
	"proxy":      "proxy",
	"log-level":  "log_level",
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("cookies", "", fmt.Sprintf("cookie document (default %q)", cookie.DefaultPath))
	fs.String("user-agent", "", "User-Agent header sent on every request")
	fs.String("timeout", "", "per request timeout, e.g. 30s")
	fs.Int("rps", 0, "requests per second, 0 disables throttling")
	fs.Int("burst", 0, "throttle burst size")
	fs.String("chunk-size", "", fmt.Sprintf("download read size (default %s)", DefaultChunkSize))
	fs.String("proxy", "", "HTTP proxy URL")
	fs.String("log-level", "", fmt.Sprintf("debug, info, warn or error (default %s)", DefaultLogLevel))
}

// Load reads the settings. configFilename must exist when given; otherwise
// DefaultConfigName is optional. Flags in fs override file and environment
// values only when they were set on the command line.
func Load(configFilename string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("cookies", cookie.DefaultPath)
	v.SetDefault("user_agent", client.DefaultUserAgent)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("rps", 0)
	v.SetDefault("burst", 0)
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("proxy", "")
	v.SetDefault("log_level", DefaultLogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFilename != "" {
		v.SetConfigFile(configFilename)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config from file: %w", err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := errors.AsType[viper.ConfigFileNotFoundError](err); !ok {
				return nil, fmt.Errorf("failed to read config from file: %w", err)
			}
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			flag := fs.Lookup(name)
			if flag == nil || !flag.Changed {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg and sets its parsed fields.
func Validate(cfg *Config) error {
	timeout := strings.TrimSpace(cfg.Timeout)
	if timeout == "" {
		timeout = DefaultTimeout
	}

	var err error
	cfg.ParsedTimeout, err = time.ParseDuration(timeout)
	if err != nil {
		return fmt.Errorf("failed to parse timeout: %w", err)
	}
	if cfg.ParsedTimeout < 0 {
		return ErrInvalidTimeout
	}

	if (cfg.RPS == 0) != (cfg.Burst == 0) || cfg.RPS < 0 || cfg.Burst < 0 {
		return fmt.Errorf("%w: rps=%d burst=%d", ErrInvalidThrottle, cfg.RPS, cfg.Burst)
	}

	chunkSize := strings.TrimSpace(cfg.ChunkSize)
	if chunkSize == "" {
		chunkSize = DefaultChunkSize
	}
	parsed, err := humanize.ParseBytes(chunkSize)
	if err != nil {
		return fmt.Errorf("failed to parse chunk size: %w", err)
	}
	if parsed == 0 || parsed > math.MaxInt32 {
		return fmt.Errorf("%w: %q", ErrInvalidChunkSize, cfg.ChunkSize)
	}
	cfg.ParsedChunkSize = int(parsed)

	cfg.ParsedProxy = nil
	if proxy := strings.TrimSpace(cfg.Proxy); proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return fmt.Errorf("failed to parse proxy: %w", err)
		}
		if !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidProxy, proxy)
		}
		cfg.ParsedProxy = u
	}

	level := cfg.LogLevel
	if level == "" {
		level = DefaultLogLevel
	}
	if err := cfg.ParsedLogLevel.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("%w: '%s'", ErrUnknownLogLevel, cfg.LogLevel)
	}

	return nil
}

// ClientOptions turns cfg into client options. cookies is installed as the
// client's jar when not nil.
func (cfg *Config) ClientOptions(logger *slog.Logger, cookies *cookie.Store) []client.Option {
	opts := []client.Option{
		client.WithLogger(logger),
		client.WithUserAgent(cfg.UserAgent),
	}
	if cfg.ParsedTimeout > 0 {
		opts = append(opts, client.WithTimeout(cfg.ParsedTimeout))
	}
	if cfg.RPS > 0 {
		opts = append(opts, client.WithThrottle(cfg.RPS, cfg.Burst))
	}
	if cfg.ParsedProxy != nil {
		opts = append(opts, client.WithProxy(cfg.ParsedProxy))
	}
	if cookies != nil {
		opts = append(opts, client.WithCookieStore(cookies))
	}

	return opts
}

// Write dumps the effective settings as YAML.
func (cfg *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return enc.Close()
}
