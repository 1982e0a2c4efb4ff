package config

import (
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"

	siteerrors "github.com/conneroisu/strata/internal/errors"
	"github.com/conneroisu/strata/internal/logging"
)

// MaxIndentWidth is the largest accepted indent_width.
const MaxIndentWidth = 8

var logFormats = []string{"text", "json"}

// validateConfig checks the settings and returns the first problem as a
// ConfigError naming the offending key.
func validateConfig(config *Config) error {
	if config.Source == "" {
		return siteerrors.NewConfigError("source", "source directory must not be empty")
	}

	if strings.TrimSpace(config.Output) == "" {
		return siteerrors.NewConfigError("output", "output directory must not be empty")
	}

	if sameDir(config.Source, config.Output) {
		return siteerrors.NewConfigError("output",
			fmt.Sprintf("output directory %q is the source directory", config.Output))
	}

	dirs := []struct {
		key, value string
	}{
		{"site_config", config.SiteConfig},
		{"content_dir", config.ContentDir},
		{"static_dir", config.StaticDir},
		{"data_dir", config.DataDir},
	}
	for _, d := range dirs {
		if err := validateRelative(d.key, d.value); err != nil {
			return err
		}
	}

	if config.IndentWidth < 0 || config.IndentWidth > MaxIndentWidth {
		return siteerrors.NewConfigError("indent_width",
			fmt.Sprintf("indent width %d is not in range 0-%d", config.IndentWidth, MaxIndentWidth))
	}

	for _, pattern := range config.Exclude {
		if _, err := path.Match(pattern, ""); err != nil {
			return siteerrors.NewConfigError("exclude",
				fmt.Sprintf("invalid exclude pattern %q", pattern)).WithCause(err)
		}
	}

	if config.BaseURL != "" && !strings.HasPrefix(config.BaseURL, "http://") && !strings.HasPrefix(config.BaseURL, "https://") {
		return siteerrors.NewConfigError("base_url",
			fmt.Sprintf("base URL %q must start with http:// or https://", config.BaseURL))
	}

	if config.Watch.Debounce < 0 {
		return siteerrors.NewConfigError("watch.debounce", "debounce must not be negative")
	}

	if _, err := logging.ParseLevel(config.Log.Level); err != nil {
		return siteerrors.NewConfigError("log.level", err.Error())
	}

	if !slices.Contains(logFormats, config.Log.Format) {
		return siteerrors.NewConfigError("log.format",
			fmt.Sprintf("log format %q must be one of %s", config.Log.Format, strings.Join(logFormats, ", ")))
	}

	return nil
}

// validateRelative accepts empty values and paths that stay inside the
// source directory.
func validateRelative(key, value string) error {
	if value == "" {
		return nil
	}

	if filepath.IsAbs(value) {
		return siteerrors.NewConfigError(key, fmt.Sprintf("%q must be relative to the source directory", value))
	}

	clean := filepath.ToSlash(filepath.Clean(value))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return siteerrors.NewConfigError(key, fmt.Sprintf("%q contains path traversal", value))
	}

	return nil
}

func sameDir(source, output string) bool {
	if !filepath.IsAbs(output) {
		return filepath.Clean(output) == "."
	}

	abs, err := filepath.Abs(source)
	if err != nil {
		return false
	}

	return abs == filepath.Clean(output)
}

// Warnings lists settings that are valid but probably unintended.
func (c *Config) Warnings() []string {
	var warnings []string

	out := filepath.ToSlash(filepath.Clean(c.Output))
	for _, dir := range []string{c.ContentDir, c.StaticDir, c.DataDir} {
		if dir == "" {
			continue
		}
		in := filepath.ToSlash(filepath.Clean(dir))
		if out == in || strings.HasPrefix(out, in+"/") {
			warnings = append(warnings, fmt.Sprintf("output %q is inside source directory %q", c.Output, dir))
		}
	}

	if c.StaticDir != "" && c.StaticDir == c.ContentDir {
		warnings = append(warnings, fmt.Sprintf("static_dir and content_dir are both %q", c.StaticDir))
	}

	return warnings
}
