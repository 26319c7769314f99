// Package config loads afyadmin settings from defaults, an optional YAML
// file, a .env file, AFYADMIN_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/afyamkononi/afyadmin/internal/errors"
	"github.com/afyamkononi/afyadmin/internal/log"
	"github.com/afyamkononi/afyadmin/internal/telemetry"
	"github.com/afyamkononi/afyadmin/internal/version"
)

// EnvPrefix prefixes every environment variable, e.g. AFYADMIN_API_BASE_URL.
const EnvPrefix = "AFYADMIN"

// Default endpoints of the hosted backend.
const (
	DefaultBaseURL    = "https://budgetwithai.com/admin"
	DefaultContactURL = "https://api.afyamkononi.co.ke/api/v1.0/contact"
)

// Token store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreBolt   = "bolt"
)

// Config holds every setting.
type Config struct {
	API       APIConfig       `mapstructure:"api" yaml:"api" json:"api"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session" json:"session"`
	Log       LogConfig       `mapstructure:"log" yaml:"log" json:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry" json:"telemetry"`
	Sandbox   SandboxConfig   `mapstructure:"sandbox" yaml:"sandbox" json:"sandbox"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-" yaml:"-" json:"file,omitempty"`
}

// APIConfig configures the backend client.
type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	ContactURL string        `mapstructure:"contact_url" yaml:"contact_url" json:"contact_url"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	RateLimit  float64       `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
	RateBurst  int           `mapstructure:"rate_burst" yaml:"rate_burst" json:"rate_burst"`
}

// SessionConfig selects where the bearer token is kept between runs.
type SessionConfig struct {
	Store string `mapstructure:"store" yaml:"store" json:"store"`
	Path  string `mapstructure:"path" yaml:"path" json:"path"`
}

// LogConfig configures diagnostics on stderr.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// TelemetryConfig configures tracing.
type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate" json:"sample_rate"`
}

// SandboxConfig configures `afyadmin sandbox serve`.
type SandboxConfig struct {
	Addr          string `mapstructure:"addr" yaml:"addr" json:"addr"`
	AdminEmail    string `mapstructure:"admin_email" yaml:"admin_email" json:"admin_email"`
	AdminPassword string `mapstructure:"admin_password" yaml:"admin_password" json:"-"`
}

// Options control where Load looks.
type Options struct {
	// File is an explicit config file. When empty, config.yaml is looked up
	// in Dir.
	File string
	// Dir is the per-user directory (default $HOME/.afyadmin).
	Dir string
	// EnvFile is loaded into the environment first when it exists
	// (default .env in the working directory).
	EnvFile string
	// Flags are bound by key, e.g. "api.base_url" to --base-url.
	Flags map[string]*pflag.Flag
}

// DefaultDir returns $HOME/.afyadmin, or .afyadmin when there is no home.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".afyadmin"
	}
	return filepath.Join(home, ".afyadmin")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("api.contact_url", DefaultContactURL)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.rate_limit", 0)
	v.SetDefault("api.rate_burst", 1)

	v.SetDefault("session.store", StoreFile)
	v.SetDefault("session.path", "")

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.sample_rate", 1.0)

	v.SetDefault("sandbox.addr", "127.0.0.1:8089")
	v.SetDefault("sandbox.admin_email", "admin@afya.test")
	v.SetDefault("sandbox.admin_password", "changeme")
}

// Load reads the configuration. A missing config file or .env file is not an
// error; a malformed one is.
func Load(opts Options) (*Config, error) {
	dir := opts.Dir
	if dir == "" {
		dir = DefaultDir()
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "failed to read "+envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range opts.Flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "failed to bind flag --"+flag.Name, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case stderrors.As(err, &notFound):
		case opts.File != "" && stderrors.Is(err, fs.ErrNotExist):
			return nil, errors.Wrap(errors.ErrCodeConfigNotFound, "config file not found", err).
				WithSuggestion("Check the --config path")
		default:
			return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "failed to read config file", err)
		}
	}

	cfg := &Config{File: v.ConfigFileUsed()}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "failed to decode config", err)
	}

	if cfg.Session.Path == "" {
		switch cfg.Session.Store {
		case StoreBolt:
			cfg.Session.Path = filepath.Join(dir, "session.db")
		default:
			cfg.Session.Path = filepath.Join(dir, "session.yaml")
		}
	}
	cfg.Session.Path = expandHome(cfg.Session.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any source.
func Default() *Config {
	v := viper.New()
	dir := DefaultDir()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	cfg.Session.Path = filepath.Join(dir, "session.yaml")
	return cfg
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	var problems []string

	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("api.base_url %q is not an absolute URL", c.API.BaseURL))
	}
	if c.API.ContactURL != "" {
		if u, err := url.Parse(c.API.ContactURL); err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, fmt.Sprintf("api.contact_url %q is not an absolute URL", c.API.ContactURL))
		}
	}
	if c.API.Timeout < 0 {
		problems = append(problems, "api.timeout must not be negative")
	}
	if c.API.RateLimit < 0 {
		problems = append(problems, "api.rate_limit must not be negative")
	}
	switch c.Session.Store {
	case StoreMemory, StoreFile, StoreBolt:
	default:
		problems = append(problems, fmt.Sprintf("session.store %q is not one of memory, file, bolt", c.Session.Store))
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := log.ParseFormat(c.Log.Format); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		problems = append(problems, "telemetry.sample_rate must be between 0 and 1")
	}

	if len(problems) > 0 {
		return errors.NewConfigInvalidError(strings.Join(problems, "; "))
	}
	return nil
}

// LoggerConfig builds the logger configuration. Output goes to stderr.
func (c *Config) LoggerConfig() log.Config {
	cfg := log.DefaultConfig()
	if level, err := log.ParseLevel(c.Log.Level); err == nil {
		cfg.Level = level
	}
	if format, err := log.ParseFormat(c.Log.Format); err == nil {
		cfg.Format = format
	}
	cfg.ServiceVersion = version.GetInfo().Short()
	return cfg
}

// TracerConfig builds the tracer configuration.
func (c *Config) TracerConfig() telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.Enabled = c.Telemetry.Enabled
	cfg.Endpoint = c.Telemetry.Endpoint
	cfg.SampleRate = c.Telemetry.SampleRate
	cfg.ServiceVersion = version.GetInfo().Short()
	return cfg
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
