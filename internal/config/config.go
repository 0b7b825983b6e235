package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Logging LoggingConfig `mapstructure:"logging"`
	API     APIConfig     `mapstructure:"api"`
}

// StorageConfig holds persistence settings
type StorageConfig struct {
	// DataDir is where the bulk channel collection file lives
	DataDir string `mapstructure:"data_dir"`

	// CollectionFile is the channel collection file name inside DataDir
	CollectionFile string `mapstructure:"collection_file"`

	// LegacyDataDir is checked once on first read when the collection
	// file is missing from DataDir
	LegacyDataDir string `mapstructure:"legacy_data_dir"`

	// Driver selects the state store backend: sqlite or postgres
	Driver string `mapstructure:"driver"`

	// SQLitePath is the database file for the sqlite driver
	SQLitePath string `mapstructure:"sqlite_path"`

	// Postgres connection settings, used when driver is postgres
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`

	// DebounceMillis is the quiescence delay before a coalesced
	// collection write executes
	DebounceMillis int `mapstructure:"debounce_millis"`

	// MinFreeSpaceMB aborts collection writes when the disk is fuller
	// than this leaves room for
	MinFreeSpaceMB int64 `mapstructure:"min_free_space_mb"`
}

// FetchConfig holds outbound HTTP settings
type FetchConfig struct {
	TimeoutSeconds  int `mapstructure:"timeout_seconds"`
	RetryAttempts   int `mapstructure:"retry_attempts"`
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
	CacheMaxEntries int `mapstructure:"cache_max_entries"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`

	App   LogLevelConfig `mapstructure:"app"`
	Store LogLevelConfig `mapstructure:"store"`
}

// LogLevelConfig represents log level configuration for a specific component
type LogLevelConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

// APIConfig holds API server settings
type APIConfig struct {
	Port int `mapstructure:"port"`
}

var cfg *Config

// bindEnvWithAlternatives binds a viper key to environment variables with
// alternative names, so both TVHARBOR_STORAGE_HOST and DB_HOST work.
func bindEnvWithAlternatives(key string, alternatives ...string) {
	viper.BindEnv(key)
	for _, alt := range alternatives {
		if value := os.Getenv(alt); value != "" {
			viper.Set(key, value)
			break
		}
	}
}

// Load reads configuration from file and environment variables
func Load() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/tvharbor")

	setDefaults()

	viper.SetEnvPrefix("TVHARBOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Docker-style alternatives for the common knobs
	bindEnvWithAlternatives("storage.data_dir", "DATA_DIR")
	bindEnvWithAlternatives("storage.driver", "DB_DRIVER")
	bindEnvWithAlternatives("storage.sqlite_path", "SQLITE_PATH")
	bindEnvWithAlternatives("storage.host", "DB_HOST")
	bindEnvWithAlternatives("storage.port", "DB_PORT")
	bindEnvWithAlternatives("storage.user", "DB_USER")
	bindEnvWithAlternatives("storage.password", "DB_PASSWORD")
	bindEnvWithAlternatives("storage.dbname", "DB_NAME")
	bindEnvWithAlternatives("storage.sslmode", "DB_SSLMODE")
	viper.BindEnv("storage.collection_file")
	viper.BindEnv("storage.legacy_data_dir")
	viper.BindEnv("storage.debounce_millis")
	viper.BindEnv("storage.min_free_space_mb")

	viper.BindEnv("fetch.timeout_seconds")
	viper.BindEnv("fetch.retry_attempts")
	viper.BindEnv("fetch.cache_ttl_seconds")
	viper.BindEnv("fetch.cache_max_entries")

	bindEnvWithAlternatives("logging.level", "LOG_LEVEL")
	viper.BindEnv("logging.format")
	viper.BindEnv("logging.app.level")
	viper.BindEnv("logging.store.level")

	bindEnvWithAlternatives("api.port", "API_PORT")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		return &Config{}
	}
	return cfg
}

// Set replaces the current configuration (primarily for testing)
func Set(c *Config) {
	cfg = c
}

func setDefaults() {
	viper.SetDefault("storage.data_dir", "./data")
	viper.SetDefault("storage.collection_file", "channels.json")
	viper.SetDefault("storage.driver", "sqlite")
	viper.SetDefault("storage.sqlite_path", "./data/tvharbor.db")
	viper.SetDefault("storage.host", "localhost")
	viper.SetDefault("storage.port", 5432)
	viper.SetDefault("storage.sslmode", "disable")
	viper.SetDefault("storage.debounce_millis", 500)
	viper.SetDefault("storage.min_free_space_mb", 50)

	viper.SetDefault("fetch.timeout_seconds", 30)
	viper.SetDefault("fetch.retry_attempts", 3)
	viper.SetDefault("fetch.cache_ttl_seconds", 300)
	viper.SetDefault("fetch.cache_max_entries", 64)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("api.port", 8080)
}

func validate() error {
	switch cfg.Storage.Driver {
	case "sqlite":
		if cfg.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required with the sqlite driver")
		}
	case "postgres":
		if cfg.Storage.User == "" {
			return fmt.Errorf("storage.user is required with the postgres driver")
		}
		if cfg.Storage.DBName == "" {
			return fmt.Errorf("storage.dbname is required with the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver must be one of: sqlite, postgres")
	}

	if cfg.Storage.DebounceMillis < 0 {
		return fmt.Errorf("storage.debounce_millis must not be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats := map[string]bool{"json": true, "text": true}

	if cfg.Logging.Format != "" && !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}
	for name, level := range map[string]string{
		"logging.level":       cfg.Logging.Level,
		"logging.app.level":   cfg.Logging.App.Level,
		"logging.store.level": cfg.Logging.Store.Level,
	} {
		if level != "" && !validLevels[level] {
			return fmt.Errorf("%s must be one of: debug, info, warn, error", name)
		}
	}

	return nil
}

// GetAppLogLevel returns the log level for application logging.
// Priority: logging.app.level, then logging.level, then "info".
func (c *Config) GetAppLogLevel() string {
	if c.Logging.App.Level != "" {
		return c.Logging.App.Level
	}
	if c.Logging.Level != "" {
		return c.Logging.Level
	}
	return "info"
}

// GetStoreLogLevel returns the log level for state store logging.
// Priority: logging.store.level, then logging.level, then "info".
func (c *Config) GetStoreLogLevel() string {
	if c.Logging.Store.Level != "" {
		return c.Logging.Store.Level
	}
	if c.Logging.Level != "" {
		return c.Logging.Level
	}
	return "info"
}
