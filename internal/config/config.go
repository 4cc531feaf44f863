// Package config handles gridmsg configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents gridmsg configuration.
type Config struct {
	Fetch  FetchConfig  `toml:"fetch"`
	Cache  CacheConfig  `toml:"cache"`
	Parse  ParseConfig  `toml:"parse"`
	Render RenderConfig `toml:"render"`
	Batch  BatchConfig  `toml:"batch"`
	Output OutputConfig `toml:"output"`
	Keys   KeysConfig   `toml:"keys"`
}

// FetchConfig contains settings for retrieving documents.
type FetchConfig struct {
	// Request timeout as a Go duration string (e.g. "30s")
	Timeout string `toml:"timeout"`

	// User-Agent header sent with HTTP requests
	UserAgent string `toml:"user_agent"`

	// Largest response body read, in bytes
	MaxBodyBytes int64 `toml:"max_body_bytes"`
}

// CacheConfig contains settings for the document cache.
type CacheConfig struct {
	// Whether fetched documents are cached on disk
	Enabled bool `toml:"enabled"`

	// Cache directory (empty = user cache dir + /gridmsg)
	Dir string `toml:"dir"`

	// Documents kept in memory per process
	MemoryEntries int `toml:"memory_entries"`
}

// ParseConfig contains settings for reading triples out of documents.
type ParseConfig struct {
	// Fail on rows with non-integer coordinates instead of skipping them
	Strict bool `toml:"strict"`
}

// RenderConfig contains settings for grid rendering.
type RenderConfig struct {
	// Largest grid accepted, in cells (width * height)
	MaxCells int `toml:"max_cells"`
}

// BatchConfig contains settings for decoding several documents at once.
type BatchConfig struct {
	// Documents decoded in parallel
	Concurrency int `toml:"concurrency"`

	// Keep decoding the remaining documents after one fails
	KeepGoing bool `toml:"keep_going"`
}

// OutputConfig contains settings for printing decoded grids.
type OutputConfig struct {
	// Output format: "text" or "json"
	Format string `toml:"format"`

	// Print a "== ref ==" line before each grid when decoding several refs
	Header bool `toml:"header"`
}

// KeysConfig contains keybinding settings for the browser.
type KeysConfig struct {
	Up      string `toml:"up"`
	Down    string `toml:"down"`
	Home    string `toml:"home"`
	End     string `toml:"end"`
	View    string `toml:"view"`
	Open    string `toml:"open"`
	Refresh string `toml:"refresh"`
	Delete  string `toml:"delete"`
	Filter  string `toml:"filter"`
	Help    string `toml:"help"`
	Quit    string `toml:"quit"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Fetch: FetchConfig{
			Timeout:      "30s",
			UserAgent:    "gridmsg/1.0",
			MaxBodyBytes: 10 << 20,
		},
		Cache: CacheConfig{
			Enabled:       true,
			Dir:           "",
			MemoryEntries: 64,
		},
		Parse: ParseConfig{
			Strict: false,
		},
		Render: RenderConfig{
			MaxCells: 4_000_000,
		},
		Batch: BatchConfig{
			Concurrency: 4,
			KeepGoing:   false,
		},
		Output: OutputConfig{
			Format: "text",
			Header: true,
		},
		Keys: KeysConfig{
			Up:      "up,k",
			Down:    "down,j",
			Home:    "home,g",
			End:     "end,G",
			View:    "enter",
			Open:    "o",
			Refresh: "r",
			Delete:  "d",
			Filter:  "/",
			Help:    "?",
			Quit:    "q,ctrl+c",
		},
	}
}

// FetchTimeout returns the parsed fetch timeout, falling back to 30s.
func (c *Config) FetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Fetch.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// CacheDir returns the directory used for the document cache.
func (c *Config) CacheDir() string {
	if c.Cache.Dir != "" {
		return expandHome(c.Cache.Dir)
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return filepath.Join(cacheDir, "gridmsg")
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// ConfigPath returns the path to the config file.
// Uses ~/.config/gridmsg/config.toml (XDG style) on all Unix systems.
func ConfigPath() string {
	// Respect XDG_CONFIG_HOME if set
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "gridmsg", "config.toml")
	}
	// Default to ~/.config on Unix (including macOS)
	home := os.Getenv("HOME")
	if home != "" {
		return filepath.Join(home, ".config", "gridmsg", "config.toml")
	}
	// Fallback to os.UserConfigDir() for Windows
	configDir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "gridmsg", "config.toml")
	}
	return filepath.Join(configDir, "gridmsg", "config.toml")
}

// Load loads configuration from the config file.
func Load() (*Config, error) {
	return LoadFromPath(ConfigPath())
}

// LoadFromPath loads configuration from a specific path.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file, use defaults
			return cfg, nil
		}
		return nil, err
	}

	// go-toml/v2 only overwrites fields present in the file,
	// so unspecified fields (including booleans) keep their defaults.
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return cfg, nil
}

// Save saves configuration to the given path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// CreateDefaultConfigFile writes a commented default config file to path.
// An existing file is left alone unless force is set.
func CreateDefaultConfigFile(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(generateDefaultConfigContent()), 0644)
}

// generateDefaultConfigContent generates a commented config file.
func generateDefaultConfigContent() string {
	var b strings.Builder
	cfg := DefaultConfig()

	b.WriteString("# gridmsg configuration\n\n")

	b.WriteString("[fetch]\n")
	b.WriteString("# Request timeout (Go duration, e.g. \"30s\", \"2m\")\n")
	fmt.Fprintf(&b, "timeout = %q\n", cfg.Fetch.Timeout)
	b.WriteString("# User-Agent header sent with HTTP requests\n")
	fmt.Fprintf(&b, "user_agent = %q\n", cfg.Fetch.UserAgent)
	b.WriteString("# Largest response body read, in bytes\n")
	fmt.Fprintf(&b, "max_body_bytes = %d\n\n", cfg.Fetch.MaxBodyBytes)

	b.WriteString("[cache]\n")
	b.WriteString("# Cache fetched documents on disk (the browser lists them)\n")
	fmt.Fprintf(&b, "enabled = %v\n", cfg.Cache.Enabled)
	b.WriteString("# Cache directory (defaults to the user cache dir)\n")
	b.WriteString("# dir = \"~/.cache/gridmsg\"\n")
	b.WriteString("# Documents kept in memory per process\n")
	fmt.Fprintf(&b, "memory_entries = %d\n\n", cfg.Cache.MemoryEntries)

	b.WriteString("[parse]\n")
	b.WriteString("# Fail on rows whose coordinates are not integers instead of skipping them\n")
	fmt.Fprintf(&b, "strict = %v\n\n", cfg.Parse.Strict)

	b.WriteString("[render]\n")
	b.WriteString("# Largest grid accepted, in cells (width * height)\n")
	fmt.Fprintf(&b, "max_cells = %d\n\n", cfg.Render.MaxCells)

	b.WriteString("[batch]\n")
	b.WriteString("# Documents decoded in parallel\n")
	fmt.Fprintf(&b, "concurrency = %d\n", cfg.Batch.Concurrency)
	b.WriteString("# Keep decoding the remaining documents after one fails\n")
	fmt.Fprintf(&b, "keep_going = %v\n\n", cfg.Batch.KeepGoing)

	b.WriteString("[output]\n")
	b.WriteString("# Output format: \"text\" or \"json\"\n")
	fmt.Fprintf(&b, "format = %q\n", cfg.Output.Format)
	b.WriteString("# Print \"== ref ==\" before each grid when decoding several documents\n")
	fmt.Fprintf(&b, "header = %v\n\n", cfg.Output.Header)

	b.WriteString("[keys]\n")
	b.WriteString("# Browser keybindings (comma-separated for multiple keys)\n")
	fmt.Fprintf(&b, "# up = %q\n", cfg.Keys.Up)
	fmt.Fprintf(&b, "# down = %q\n", cfg.Keys.Down)
	fmt.Fprintf(&b, "# view = %q\n", cfg.Keys.View)
	fmt.Fprintf(&b, "# open = %q\n", cfg.Keys.Open)
	fmt.Fprintf(&b, "# refresh = %q\n", cfg.Keys.Refresh)
	fmt.Fprintf(&b, "# delete = %q\n", cfg.Keys.Delete)
	fmt.Fprintf(&b, "# filter = %q\n", cfg.Keys.Filter)
	fmt.Fprintf(&b, "# help = %q\n", cfg.Keys.Help)
	fmt.Fprintf(&b, "# quit = %q\n", cfg.Keys.Quit)

	return b.String()
}

// Validate validates the configuration and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Fetch.Timeout != "" {
		if d, err := time.ParseDuration(c.Fetch.Timeout); err != nil || d <= 0 {
			warnings = append(warnings, fmt.Sprintf("Invalid value for fetch.timeout: %s (expected a positive duration like \"30s\")", c.Fetch.Timeout))
		}
	}

	if c.Fetch.MaxBodyBytes < 0 {
		warnings = append(warnings, fmt.Sprintf("Invalid value for fetch.max_body_bytes: %d (must not be negative)", c.Fetch.MaxBodyBytes))
	}

	if c.Cache.MemoryEntries < 0 {
		warnings = append(warnings, fmt.Sprintf("Invalid value for cache.memory_entries: %d (must not be negative)", c.Cache.MemoryEntries))
	}

	if c.Render.MaxCells < 0 {
		warnings = append(warnings, fmt.Sprintf("Invalid value for render.max_cells: %d (must not be negative)", c.Render.MaxCells))
	}

	if c.Batch.Concurrency < 0 {
		warnings = append(warnings, fmt.Sprintf("Invalid value for batch.concurrency: %d (must not be negative)", c.Batch.Concurrency))
	}

	if c.Output.Format != "" &&
		c.Output.Format != "text" &&
		c.Output.Format != "json" {
		warnings = append(warnings, fmt.Sprintf("Invalid value for output.format: %s (expected text or json)", c.Output.Format))
	}

	// Two actions bound to the same key make one of them unreachable
	bound := make(map[string]string)
	for _, kb := range []struct{ name, keys string }{
		{"up", c.Keys.Up}, {"down", c.Keys.Down}, {"home", c.Keys.Home}, {"end", c.Keys.End},
		{"view", c.Keys.View}, {"open", c.Keys.Open}, {"refresh", c.Keys.Refresh},
		{"delete", c.Keys.Delete}, {"filter", c.Keys.Filter}, {"help", c.Keys.Help}, {"quit", c.Keys.Quit},
	} {
		for _, k := range strings.Split(kb.keys, ",") {
			k = strings.TrimSpace(k)
			if k == "" {
				continue
			}
			if other, ok := bound[k]; ok {
				warnings = append(warnings, fmt.Sprintf("Key %q is bound to both keys.%s and keys.%s", k, other, kb.name))
				continue
			}
			bound[k] = kb.name
		}
	}

	return warnings
}
