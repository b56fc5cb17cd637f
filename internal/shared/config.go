package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// DefaultFetchTimeout bounds a single fetch run when the configured value is missing or invalid.
const DefaultFetchTimeout = 3 * time.Hour

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Library  LibraryConfig  `toml:"library"`
	Fetcher  FetcherConfig  `toml:"fetcher"`
	Sync     SyncConfig     `toml:"sync"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LibraryConfig describes where media, thumbnails and job logs live on disk.
type LibraryConfig struct {
	Root           string `toml:"root"`
	LogsDir        string `toml:"logs_dir"`
	Extension      string `toml:"extension"`
	ThumbnailsName string `toml:"thumbnails_dir_name"`
}

// FetcherConfig contains the external fetch tool invocation policy.
type FetcherConfig struct {
	Binary         string   `toml:"binary"`
	AudioFormat    string   `toml:"audio_format"`
	AudioQuality   string   `toml:"audio_quality"`
	OutputTemplate string   `toml:"output_template"`
	Timeout        string   `toml:"timeout"`
	ExtraArgs      []string `toml:"extra_args"`
}

// SyncConfig controls the dispatcher worker pool and the daily schedule.
type SyncConfig struct {
	Workers   int     `toml:"workers"`
	QueueSize int     `toml:"queue_size"`
	RateLimit float64 `toml:"rate_limit"`
	Schedule  string  `toml:"schedule"`
	Timezone  string  `toml:"timezone"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig contains process logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// FetchTimeout parses the configured fetch timeout, falling back to [DefaultFetchTimeout].
func (c FetcherConfig) FetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return DefaultFetchTimeout
	}
	return d
}

// Addr returns the host:port pair the server listens on.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv loads the given dotenv files (missing files are ignored) and then applies
// SOUNDSYNC_* environment overrides on top of c.
func ApplyEnv(c *Config, files ...string) error {
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) > 0 {
		if err := godotenv.Load(present...); err != nil {
			return fmt.Errorf("%w: failed to load env file: %v", ErrInvalidConfig, err)
		}
	}

	strs := map[string]*string{
		"SOUNDSYNC_DB_PATH":        &c.Database.Path,
		"SOUNDSYNC_LIBRARY_ROOT":   &c.Library.Root,
		"SOUNDSYNC_LOGS_DIR":       &c.Library.LogsDir,
		"SOUNDSYNC_FETCHER_BINARY": &c.Fetcher.Binary,
		"SOUNDSYNC_FETCH_TIMEOUT":  &c.Fetcher.Timeout,
		"SOUNDSYNC_SCHEDULE":       &c.Sync.Schedule,
		"SOUNDSYNC_LOG_LEVEL":      &c.Log.Level,
	}
	for key, target := range strs {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*target = v
		}
	}

	if v, ok := os.LookupEnv("SOUNDSYNC_SYNC_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: SOUNDSYNC_SYNC_WORKERS=%q", ErrInvalidConfig, v)
		}
		c.Sync.Workers = n
	}

	return nil
}
