// Package config handles loading and saving pscope configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/pscope/config.yaml
//
// Per-workspace fixtures and state live in a .pscope/ directory found by
// walking up from the working directory (see Discover).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/pricescope/pkg/model"
)

// Environment overrides applied on top of the config file.
const (
	EnvBackendURL = "PSCOPE_BACKEND_URL"
	EnvTenant     = "PSCOPE_TENANT"
)

// Project is a registered pricing workspace (a directory holding .pscope/).
type Project struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// BackendConfig points at the pricing-rules listing API.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url,omitempty"`
	Tenant  string        `yaml:"tenant,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// SearchConfig holds tree search defaults.
type SearchConfig struct {
	DefaultMode string        `yaml:"default_mode,omitempty"` // filter or expand
	Debounce    time.Duration `yaml:"debounce,omitempty"`     // remote list search quiet period
}

// CacheConfig controls the local payload cache.
type CacheConfig struct {
	Disabled bool          `yaml:"disabled,omitempty"`
	MaxAge   time.Duration `yaml:"max_age,omitempty"` // entries older than this are pruned on start
}

// DiscoveryConfig controls auto-discovery of workspaces.
type DiscoveryConfig struct {
	ScanPaths []string `yaml:"scan_paths,omitempty"` // Directories to scan for .pscope/
	MaxDepth  int      `yaml:"max_depth,omitempty"`  // How deep to scan (default 3)
}

// Config is the top-level configuration for pscope.
type Config struct {
	Backend   BackendConfig   `yaml:"backend,omitempty"`
	Search    SearchConfig    `yaml:"search,omitempty"`
	Cache     CacheConfig     `yaml:"cache,omitempty"`
	Projects  []Project       `yaml:"projects,omitempty"`
	Discovery DiscoveryConfig `yaml:"discovery,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			Timeout: 15 * time.Second,
		},
		Search: SearchConfig{
			DefaultMode: string(model.SearchFilter),
			Debounce:    500 * time.Millisecond,
		},
		Cache: CacheConfig{
			MaxAge: 7 * 24 * time.Hour,
		},
		Discovery: DiscoveryConfig{
			MaxDepth: 3,
		},
	}
}

// SearchMode returns the configured default search mode.
func (c Config) SearchMode() model.SearchMode {
	return model.ParseSearchMode(c.Search.DefaultMode)
}

// HasBackend reports whether a backend URL is configured.
func (c Config) HasBackend() bool {
	return strings.TrimSpace(c.Backend.BaseURL) != ""
}

// ConfigDir returns the XDG config directory for pscope.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "pscope")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "pscope")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory and applies
// environment overrides. Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		cfg := DefaultConfig()
		cfg.ApplyEnv()
		return cfg, nil
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	mode := strings.ToLower(strings.TrimSpace(cfg.Search.DefaultMode))
	if mode == "" {
		mode = string(model.SearchFilter)
	}
	if !model.SearchMode(mode).IsValid() {
		return cfg, fmt.Errorf("parsing config: invalid search.default_mode %q", cfg.Search.DefaultMode)
	}
	cfg.Search.DefaultMode = mode

	// Expand ~ in project paths
	for i := range cfg.Projects {
		cfg.Projects[i].Path = expandHome(cfg.Projects[i].Path)
	}
	for i := range cfg.Discovery.ScanPaths {
		cfg.Discovery.ScanPaths[i] = expandHome(cfg.Discovery.ScanPaths[i])
	}

	return cfg, nil
}

// ApplyEnv overrides backend settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvBackendURL); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv(EnvTenant); v != "" {
		c.Backend.Tenant = v
	}
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// FindProject returns the project with the given name, or nil.
func (c Config) FindProject(name string) *Project {
	for i := range c.Projects {
		if strings.EqualFold(c.Projects[i].Name, name) {
			return &c.Projects[i]
		}
	}
	return nil
}

// ResolvedPath returns the project path with ~ expanded.
func (p Project) ResolvedPath() string {
	return expandHome(p.Path)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
