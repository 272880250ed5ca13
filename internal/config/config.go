// Package config holds persistent settings shared by the imgmark commands.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Labels are the defaults given to new shapes.
type Labels struct {
	Polygon string `yaml:"polygon"`
	Arrow   string `yaml:"arrow"`
}

// Render sets the canvas size used when no base image is available.
type Render struct {
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	FileType string `yaml:"file_type"` // "png" or "svg"
}

// Config holds persistent settings
type Config struct {
	DefaultMode string `yaml:"default_mode"` // "polygon" or "arrow"
	ExportDir   string `yaml:"export_dir"`
	LastDir     string `yaml:"last_dir"`
	Labels      Labels `yaml:"labels"`
	LogFile     string `yaml:"log_file"`
	LogLevel    string `yaml:"log_level"`
	Render      Render `yaml:"render"`
}

// Default returns default configuration
func Default() Config {
	cwd, _ := os.Getwd()
	return Config{
		DefaultMode: "polygon",
		ExportDir:   cwd,
		LastDir:     cwd,
		Labels:      Labels{Polygon: "Zone", Arrow: "Direction"},
		LogLevel:    "info",
		Render:      Render{Width: 1024, Height: 768, FileType: "png"},
	}
}

// Path returns the path to the config file
func Path() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".imgmark.yaml"
	}
	return filepath.Join(dir, "imgmark", "config.yaml")
}

// Load reads the config file. A missing file yields the defaults.
func Load() (Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads configuration from path. Fields absent from the file keep
// their defaults and invalid values are corrected.
func LoadFrom(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Validate()
	return cfg, nil
}

// Validate replaces invalid values with defaults.
func (c *Config) Validate() {
	def := Default()
	switch c.DefaultMode {
	case "polygon", "arrow":
	default:
		c.DefaultMode = def.DefaultMode
	}
	if strings.TrimSpace(c.Labels.Polygon) == "" {
		c.Labels.Polygon = def.Labels.Polygon
	}
	if strings.TrimSpace(c.Labels.Arrow) == "" {
		c.Labels.Arrow = def.Labels.Arrow
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		c.LogLevel = def.LogLevel
	}
	if c.Render.Width <= 0 {
		c.Render.Width = def.Render.Width
	}
	if c.Render.Height <= 0 {
		c.Render.Height = def.Render.Height
	}
	if c.Render.FileType != "png" && c.Render.FileType != "svg" {
		c.Render.FileType = def.Render.FileType
	}
	if c.ExportDir == "" {
		c.ExportDir = def.ExportDir
	}
	if c.LastDir == "" {
		c.LastDir = def.LastDir
	}
}

// Save writes the config file, creating its directory.
func Save(cfg Config) error {
	return SaveTo(Path(), cfg)
}

// SaveTo writes cfg to path as YAML.
func SaveTo(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	content := append([]byte("# imgmark configuration\n"), data...)
	return os.WriteFile(path, content, 0644)
}

// ParseLevel maps a log_level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
