// Package config provides configuration management for dom_tail.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Version is the current version of dom_tail.
// This is set at build time via ldflags.
var Version = "dev"

// MinBufferSize is the smallest accepted per-tab write buffer.
const MinBufferSize = 1024

// Config holds all configuration options for dom_tail.
type Config struct {
	// Connection
	ChromePort string `mapstructure:"chrome_port"`
	AutoLaunch bool   `mapstructure:"auto_launch"`
	Demo       bool   `mapstructure:"demo"`

	// Output
	OutputDir     string        `mapstructure:"output_dir"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	BufferSize    int           `mapstructure:"buffer_size"`

	// Privacy
	Redact bool `mapstructure:"redact"`

	// Mirror
	DocumentDepth      int           `mapstructure:"document_depth"`
	Pierce             bool          `mapstructure:"pierce"`
	MutationCoalescing bool          `mapstructure:"mutation_coalescing"`
	StyleReloadDelay   time.Duration `mapstructure:"style_reload_delay"`

	// Event Filtering
	EnableAttributes    bool `mapstructure:"enable_attributes"`
	EnableCharacterData bool `mapstructure:"enable_character_data"`
	EnableStructure     bool `mapstructure:"enable_structure"`
	EnableMarkers       bool `mapstructure:"enable_markers"`

	// Operations
	MetricsAddr string `mapstructure:"metrics_addr"`
	Development bool   `mapstructure:"development"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		// Connection
		ChromePort: "9222",
		AutoLaunch: false,
		Demo:       false,

		// Output
		OutputDir:     "./logs",
		FlushInterval: 100 * time.Millisecond,
		BufferSize:    8 * 1024, // 8 KB

		// Privacy
		Redact: true,

		// Mirror
		DocumentDepth:      -1,
		Pierce:             true,
		MutationCoalescing: true,
		StyleReloadDelay:   20 * time.Millisecond,

		// Event Filtering
		EnableAttributes:    true,
		EnableCharacterData: true,
		EnableStructure:     true,
		EnableMarkers:       true,

		// Operations
		MetricsAddr: "",
		Development: false,
	}
}

// LoadFromFile reads a YAML config file on top of the defaults. Values can
// also be overridden by DOM_TAIL_* environment variables.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOM_TAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("chrome_port", d.ChromePort)
	v.SetDefault("auto_launch", d.AutoLaunch)
	v.SetDefault("demo", d.Demo)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("flush_interval", d.FlushInterval)
	v.SetDefault("buffer_size", d.BufferSize)
	v.SetDefault("redact", d.Redact)
	v.SetDefault("document_depth", d.DocumentDepth)
	v.SetDefault("pierce", d.Pierce)
	v.SetDefault("mutation_coalescing", d.MutationCoalescing)
	v.SetDefault("style_reload_delay", d.StyleReloadDelay)
	v.SetDefault("enable_attributes", d.EnableAttributes)
	v.SetDefault("enable_character_data", d.EnableCharacterData)
	v.SetDefault("enable_structure", d.EnableStructure)
	v.SetDefault("enable_markers", d.EnableMarkers)
	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("development", d.Development)
}

// Validate enforces required values and reasonable limits.
func (c *Config) Validate() error {
	if c.ChromePort == "" {
		return errors.New("chrome_port must be set")
	}
	if c.OutputDir == "" {
		return errors.New("output_dir must be set")
	}
	if c.FlushInterval <= 0 {
		return errors.New("flush_interval must be > 0")
	}
	if c.BufferSize < MinBufferSize {
		return fmt.Errorf("buffer_size must be >= %d", MinBufferSize)
	}
	// The protocol accepts -1 for the whole tree or a positive depth.
	if c.DocumentDepth == 0 || c.DocumentDepth < -1 {
		return errors.New("document_depth must be -1 or > 0")
	}
	if c.StyleReloadDelay < 0 {
		return errors.New("style_reload_delay must be >= 0")
	}
	return nil
}
