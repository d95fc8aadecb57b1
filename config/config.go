// ABOUTME: Application configuration loaded with viper from YAML, MODELSELECTOR_* env vars and .env files.
// ABOUTME: Decoded into typed structs and checked with go-playground/validator before use.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/2389-research/modelselector/visualizer"
	"github.com/2389-research/modelselector/workflow"
)

// EnvPrefix prefixes every environment override, e.g. MODELSELECTOR_BACKEND_BASE_URL.
const EnvPrefix = "MODELSELECTOR"

// Config is the full application configuration.
type Config struct {
	Backend  BackendConfig  `mapstructure:"backend"`
	Reveal   RevealConfig   `mapstructure:"reveal"`
	Examples ExamplesConfig `mapstructure:"examples"`
	Log      LogConfig      `mapstructure:"log"`
	Web      WebConfig      `mapstructure:"web"`
	Stub     StubConfig     `mapstructure:"stub"`
}

// BackendConfig points the workflow client at the backend.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// RevealConfig paces the Think and Output reveals.
type RevealConfig struct {
	ThinkDelay  time.Duration `mapstructure:"think_delay" validate:"gt=0"`
	OutputDelay time.Duration `mapstructure:"output_delay" validate:"gtfield=ThinkDelay"`
}

// ExamplesConfig optionally replaces the built-in example catalog.
type ExamplesConfig struct {
	File string `mapstructure:"file"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File        string `mapstructure:"file"`
	Development bool   `mapstructure:"development"`
}

// WebConfig configures the browser host.
type WebConfig struct {
	Addr        string        `mapstructure:"addr" validate:"required,hostname_port"`
	SessionTTL  time.Duration `mapstructure:"session_ttl" validate:"gt=0"`
	MaxSessions int           `mapstructure:"max_sessions" validate:"gt=0"`
}

// StubConfig configures the local stub backend.
type StubConfig struct {
	Addr       string        `mapstructure:"addr" validate:"required,hostname_port"`
	FailStatus int           `mapstructure:"fail_status" validate:"omitempty,min=400,max=599"`
	Latency    time.Duration `mapstructure:"latency" validate:"gte=0"`
}

var validate = validator.New()

// SetDefaults registers every key with its default so env overrides and
// Unmarshal see the full key set.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend.base_url", workflow.DefaultBaseURL)
	v.SetDefault("backend.timeout", workflow.DefaultTimeout)
	v.SetDefault("reveal.think_delay", visualizer.DefaultThinkDelay)
	v.SetDefault("reveal.output_delay", visualizer.DefaultOutputDelay)
	v.SetDefault("examples.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.development", false)
	v.SetDefault("web.addr", "127.0.0.1:2389")
	v.SetDefault("web.session_ttl", 30*time.Minute)
	v.SetDefault("web.max_sessions", 200)
	v.SetDefault("stub.addr", "127.0.0.1:2390")
	v.SetDefault("stub.fail_status", 0)
	v.SetDefault("stub.latency", time.Duration(0))
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration into v. When file is empty, modelselector.yaml is
// looked up in the working directory and the XDG config directory; a
// missing file is not an error. It returns the config file used, if any.
func Load(v *viper.Viper, file string) (*Config, string, error) {
	// A missing .env is fine; variables already set win.
	_ = godotenv.Load()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := DefaultConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, v.ConfigFileUsed(), nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Catalog returns the configured example catalog.
func (c *Config) Catalog() (visualizer.Catalog, error) {
	if c.Examples.File == "" {
		return visualizer.DefaultCatalog, nil
	}
	return visualizer.LoadCatalog(c.Examples.File)
}
