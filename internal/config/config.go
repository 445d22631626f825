// Package config loads the TOML configuration, merging the XDG config file
// with a config.toml in the working directory (last wins).
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	LibrarySources []string `koanf:"library_sources"` // paths to scan for music library

	// Lyrics fetching (on by default; base_url overrides the public service)
	Lyrics LyricsConfig `koanf:"lyrics"`

	// Logging (file path and level)
	Log LogConfig `koanf:"log"`
}

// LyricsConfig holds lyric-fetching configuration.
type LyricsConfig struct {
	Enabled *bool  `koanf:"enabled"`  // nil means enabled
	BaseURL string `koanf:"base_url"` // override for the lrclib endpoint
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `koanf:"level"` // "debug", "info", "warn", "error" (default: "info")
	File  string `koanf:"file"`  // override for the log file path
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	configPaths := getConfigPaths()

	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	// Expand ~ in library_sources
	for i, src := range cfg.LibrarySources {
		cfg.LibrarySources[i] = expandPath(src)
	}

	// Normalize lyrics base URL (remove trailing slash)
	cfg.Lyrics.BaseURL = strings.TrimSuffix(cfg.Lyrics.BaseURL, "/")

	if cfg.Log.File != "" {
		cfg.Log.File = expandPath(cfg.Log.File)
	}

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{
		// 1. $XDG_CONFIG_HOME/musix/config.toml
		filepath.Join(xdg.ConfigHome, "musix", "config.toml"),
		// 2. ./config.toml (pwd, highest priority)
		"config.toml",
	}
	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// LyricsEnabled returns whether lyric fetching is on. Unset means on.
func (c *Config) LyricsEnabled() bool {
	return c.Lyrics.Enabled == nil || *c.Lyrics.Enabled
}

// LogLevel returns the configured log level with the default applied.
func (c *Config) LogLevel() string {
	if c.Log.Level == "" {
		return "info"
	}
	return c.Log.Level
}
