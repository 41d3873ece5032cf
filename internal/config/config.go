package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Reminder modes. See Config.ReminderMode.
const (
	ReminderDeepLink = "deeplink"
	ReminderDownload = "download"
)

// Similar-projects selection policies.
const (
	SimilarOrdered = "ordered"
	SimilarRandom  = "random"
)

// SimilarConfig controls the "similar projects" block of one page type.
type SimilarConfig struct {
	// Policy is "ordered" (first N in feed order) or "random" (shuffled).
	Policy string `yaml:"policy" json:"policy"`
	// Limit is how many events are shown. Zero means the default of 2.
	Limit int `yaml:"limit" json:"limit"`
	// Seed fixes the shuffle for reproducible builds. Zero means time-seeded.
	Seed int64 `yaml:"seed" json:"seed"`
}

// LogConfig holds logging options.
type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file,omitempty" json:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the preview server.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Feed is the events document, either an http(s) URL or a local path.
	Feed string `yaml:"feed" json:"feed"`

	// CacheDir stores conditional-GET metadata for remote feeds.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// OutDir is where `build` writes the static site.
	OutDir string `yaml:"out_dir" json:"out_dir"`

	// Listen is the HTTP listen address for the preview server.
	Listen string `yaml:"listen" json:"listen"`

	// Host is the public host name used in webcal:// links (e.g. "example.com").
	// Empty disables the webcal alternate.
	Host string `yaml:"host" json:"host"`

	// Timezone is the IANA zone whose calendar days drive date display and
	// the "upcoming" cut-off.
	Timezone string `yaml:"timezone" json:"timezone"`

	// ReminderMode selects how icsFile is exposed next to the reminder link:
	//   - "deeplink" (default): webcal:// alternate for Apple platforms
	//   - "download": separate direct download link
	ReminderMode string `yaml:"reminder_mode" json:"reminder_mode"`

	// Platform is the platform string used for static builds, where no
	// request is available. Empty means the universal deep link.
	Platform string `yaml:"platform" json:"platform"`

	// RebuildCron, when set, rebuilds the static site on that schedule
	// while serving.
	RebuildCron string `yaml:"rebuild,omitempty" json:"rebuild,omitempty"`

	IndexSimilar   SimilarConfig `yaml:"index_similar" json:"index_similar"`
	ProjectSimilar SimilarConfig `yaml:"project_similar" json:"project_similar"`

	Log LogConfig `yaml:"log" json:"log"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// preview endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Feed:         "data/events.json",
		CacheDir:     "./cache/feed",
		OutDir:       "./public",
		Listen:       "127.0.0.1:8080",
		Timezone:     "Europe/Berlin",
		ReminderMode: ReminderDeepLink,
		IndexSimilar: SimilarConfig{
			Policy: SimilarRandom,
			Limit:  2,
		},
		ProjectSimilar: SimilarConfig{
			Policy: SimilarOrdered,
			Limit:  2,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Feed == "" {
		c.Feed = def.Feed
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.OutDir == "" {
		c.OutDir = def.OutDir
	}
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	switch c.ReminderMode {
	case ReminderDeepLink, ReminderDownload:
	default:
		c.ReminderMode = ReminderDeepLink
	}
	c.IndexSimilar.normalize(def.IndexSimilar.Policy)
	c.ProjectSimilar.normalize(def.ProjectSimilar.Policy)
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = def.Log.MaxSizeMB
	}
	if c.Log.MaxBackups < 0 {
		c.Log.MaxBackups = 0
	}
}

func (s *SimilarConfig) normalize(defPolicy string) {
	switch s.Policy {
	case SimilarOrdered, SimilarRandom:
	default:
		s.Policy = defPolicy
	}
	if s.Limit <= 0 {
		s.Limit = 2
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is unmarshaled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file + rename) with 0600 permissions.
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

	tmp, err := os.CreateTemp(dir, ".gigsite-config-*.tmp")
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

// Location resolves Timezone, falling back to time.Local on error.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
