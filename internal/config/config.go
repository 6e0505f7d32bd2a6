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

const (
	defaultListen           = "127.0.0.1:5000"
	defaultLogLevel         = "info"
	defaultTimezone         = "Europe/Warsaw"
	defaultLocale           = "pl"
	defaultCSV              = "runtime/data/sample_data.csv"
	defaultXML              = "runtime/data/users.xml"
	defaultDelimiter        = ","
	defaultCacheTTL         = "10m"
	defaultRefreshCron      = "0 3 * * *"
	defaultDirectoryTimeout = "30s"
	defaultSnapshotWidth    = 1280
	defaultSnapshotHeight   = 900
	defaultSnapshotTimeout  = "30s"
)

// DataConfig points at the presence export and the user directory file.
type DataConfig struct {
	// CSV is the presence export: user_id,date,start,end per row.
	CSV string `yaml:"csv"`
	// Delimiter is the single-character column separator of CSV.
	Delimiter string `yaml:"delimiter"`
	// XML is the local copy of the intranet user directory.
	XML string `yaml:"xml"`
}

// DirectoryConfig describes where the user directory is downloaded from.
type DirectoryConfig struct {
	// URL is the XML export endpoint. Empty disables update-xml and the
	// scheduled refresh.
	URL string `yaml:"url"`
	// Refresh is a cron-style schedule string (e.g. "0 3 * * *").
	Refresh string `yaml:"refresh"`
	// Timeout bounds a single download, as a Go duration string.
	Timeout string `yaml:"timeout"`
}

// SnapshotConfig holds viewport and timeout for the snapshot command.
type SnapshotConfig struct {
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Timeout string `yaml:"timeout"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the dashboard and API.
	Listen string `yaml:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Timezone is the IANA timezone used for the calendar feed.
	Timezone string `yaml:"timezone"`

	// Locale selects the collation used to sort user names (e.g. "pl").
	Locale string `yaml:"locale"`

	Data DataConfig `yaml:"data"`

	// CacheTTL is how long a parsed presence file is reused, as a Go
	// duration string. "0" keeps the first parse until restart.
	CacheTTL string `yaml:"cache_ttl"`

	Directory DirectoryConfig `yaml:"directory"`

	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   defaultListen,
		LogLevel: defaultLogLevel,
		Timezone: defaultTimezone,
		Locale:   defaultLocale,
		Data: DataConfig{
			CSV:       defaultCSV,
			Delimiter: defaultDelimiter,
			XML:       defaultXML,
		},
		CacheTTL: defaultCacheTTL,
		Directory: DirectoryConfig{
			Refresh: defaultRefreshCron,
			Timeout: defaultDirectoryTimeout,
		},
		Snapshot: SnapshotConfig{
			Width:   defaultSnapshotWidth,
			Height:  defaultSnapshotHeight,
			Timeout: defaultSnapshotTimeout,
		},
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.Locale == "" {
		c.Locale = defaultLocale
	}
	if c.Data.CSV == "" {
		c.Data.CSV = defaultCSV
	}
	if len([]rune(c.Data.Delimiter)) != 1 {
		c.Data.Delimiter = defaultDelimiter
	}
	if c.Data.XML == "" {
		c.Data.XML = defaultXML
	}
	if c.CacheTTL == "" {
		c.CacheTTL = defaultCacheTTL
	}
	if c.Directory.Refresh == "" {
		c.Directory.Refresh = defaultRefreshCron
	}
	if c.Directory.Timeout == "" {
		c.Directory.Timeout = defaultDirectoryTimeout
	}
	if c.Snapshot.Width <= 0 {
		c.Snapshot.Width = defaultSnapshotWidth
	}
	if c.Snapshot.Height <= 0 {
		c.Snapshot.Height = defaultSnapshotHeight
	}
	if c.Snapshot.Timeout == "" {
		c.Snapshot.Timeout = defaultSnapshotTimeout
	}
}

// Delimiter returns the CSV column separator as a rune.
func (c *Config) Delimiter() rune {
	r := []rune(c.Data.Delimiter)
	if len(r) != 1 {
		return ','
	}
	return r[0]
}

// CacheTTLDuration parses CacheTTL. Zero means entries never expire.
func (c *Config) CacheTTLDuration() (time.Duration, error) {
	return parseDuration("cache_ttl", c.CacheTTL)
}

// DirectoryTimeout parses Directory.Timeout.
func (c *Config) DirectoryTimeout() (time.Duration, error) {
	return parseDuration("directory.timeout", c.Directory.Timeout)
}

// SnapshotTimeout parses Snapshot.Timeout.
func (c *Config) SnapshotTimeout() (time.Duration, error) {
	return parseDuration("snapshot.timeout", c.Snapshot.Timeout)
}

func parseDuration(field, v string) (time.Duration, error) {
	if v == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", field, v, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: %s must not be negative, got %q", field, v)
	}
	return d, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is unmarshalled and normalized.
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
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically via a temp file + rename, with 0600
// permissions on the result.
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

	tmp, err := os.CreateTemp(dir, ".presence-config-*.tmp")
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
