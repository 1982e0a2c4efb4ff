// Package config provides the CLI settings of strata using Viper, so values
// can come from a .strata.yml file, STRATA_ environment variables or
// command-line flags.
//
// These settings say where the site lives and how to run a build. The
// site's own configuration (title, listings, module switches) is written in
// the site config language and parsed by the conftree package.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/strata/internal/build"
	"github.com/conneroisu/strata/internal/logging"
)

// EnvPrefix is the prefix of environment variables read by viper.
const EnvPrefix = "STRATA"

// FileName is the base name of the optional settings file.
const FileName = ".strata"

// EnvKeyReplacer maps nested keys such as log.level to STRATA_LOG_LEVEL.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

type Config struct {
	Source      string      `mapstructure:"source" json:"source" yaml:"source"`
	Output      string      `mapstructure:"output" json:"output" yaml:"output"`
	SiteConfig  string      `mapstructure:"site_config" json:"site_config" yaml:"site_config"`
	ContentDir  string      `mapstructure:"content_dir" json:"content_dir" yaml:"content_dir"`
	StaticDir   string      `mapstructure:"static_dir" json:"static_dir" yaml:"static_dir"`
	DataDir     string      `mapstructure:"data_dir" json:"data_dir" yaml:"data_dir"`
	IndentWidth int         `mapstructure:"indent_width" json:"indent_width" yaml:"indent_width"`
	Exclude     []string    `mapstructure:"exclude" json:"exclude" yaml:"exclude"`
	BaseURL     string      `mapstructure:"base_url" json:"base_url" yaml:"base_url"`
	Clean       bool        `mapstructure:"clean" json:"clean" yaml:"clean"`
	Watch       WatchConfig `mapstructure:"watch" json:"watch" yaml:"watch"`
	Log         LogConfig   `mapstructure:"log" json:"log" yaml:"log"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" json:"debounce" yaml:"debounce"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level"`
	Format string `mapstructure:"format" json:"format" yaml:"format"`
}

// Defaults maps every setting key to its default value.
var Defaults = map[string]interface{}{
	"source":         ".",
	"output":         "public",
	"site_config":    "site.conf",
	"content_dir":    "content",
	"static_dir":     "static",
	"data_dir":       "data",
	"indent_width":   0,
	"exclude":        []string{"*.bak", ".*"},
	"base_url":       "",
	"clean":          false,
	"watch.debounce": 300 * time.Millisecond,
	"log.level":      "info",
	"log.format":     "text",
}

// SetDefaults registers Defaults on v.
func SetDefaults(v *viper.Viper) {
	for key, value := range Defaults {
		v.SetDefault(key, value)
	}
}

// Load reads the settings from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the settings held by v. Keys v has no value
// for fall back to Defaults.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// BuildOptions converts the settings into pipeline options.
func (c *Config) BuildOptions() build.Options {
	return build.Options{
		Root:        c.Source,
		Output:      c.Output,
		SiteConfig:  c.SiteConfig,
		ContentDir:  c.ContentDir,
		StaticDir:   c.StaticDir,
		DataDir:     c.DataDir,
		IndentWidth: c.IndentWidth,
		Exclude:     append([]string(nil), c.Exclude...),
		BaseURL:     c.BaseURL,
		Clean:       c.Clean,
	}
}

// LoggerConfig converts the log settings. Load has already validated them.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	level, _ := logging.ParseLevel(c.Log.Level)

	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = c.Log.Format

	return cfg
}
