package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GatewayConfig points at the calendar fetch gateway.
type GatewayConfig struct {
	// Endpoint is the gateway URL; the grade is appended as a query
	// parameter on each request.
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// APIKey is sent as the "apikey" request header.
	APIKey string `yaml:"api_key" json:"api_key"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Gateway is the upstream calendar source.
	Gateway GatewayConfig `yaml:"gateway" json:"gateway"`

	// Grades lists the grades served by this instance.
	Grades []int `yaml:"grades" json:"grades"`

	// RefreshCron is a cron-style schedule (e.g. "*/5 * * * *") for the
	// background cache prewarm. Empty disables prewarming.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheTTLMinutes is the per-grade cache freshness window.
	CacheTTLMinutes int `yaml:"cache_ttl_minutes" json:"cache_ttl_minutes"`

	// HorizonWeeks bounds forward recurrence expansion.
	HorizonWeeks int `yaml:"horizon_weeks" json:"horizon_weeks"`

	// MaxOccurrences caps occurrences per recurring event.
	MaxOccurrences int `yaml:"max_occurrences" json:"max_occurrences"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          "127.0.0.1:8080",
		Gateway:         GatewayConfig{},
		Grades:          []int{6, 7, 8, 9},
		RefreshCron:     "*/5 * * * *",
		CacheTTLMinutes: 5,
		HorizonWeeks:    26,
		MaxOccurrences:  200,
		BasicAuth:       nil,
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if len(c.Grades) == 0 {
		c.Grades = []int{6, 7, 8, 9}
	}
	if c.CacheTTLMinutes <= 0 {
		c.CacheTTLMinutes = 5
	}
	if c.HorizonWeeks <= 0 {
		c.HorizonWeeks = 26
	}
	if c.MaxOccurrences <= 0 {
		c.MaxOccurrences = 200
	}
}

// ServesGrade reports whether grade is one of the configured grades.
func (c *Config) ServesGrade(grade int) bool {
	for _, g := range c.Grades {
		if g == grade {
			return true
		}
	}
	return false
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (0600)
// and returned; otherwise the file is unmarshaled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Return cfg with the error so the caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration to path atomically (temp file + rename)
// with 0600 permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".mattebocal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
