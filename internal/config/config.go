// Package config loads application configuration from file and environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Defaults applied when no config file or environment override is present.
const (
	DefaultDatabasePath     = "formids.db"
	DefaultStringsLanguage  = "English"
	DefaultScanBatchSize    = 1000
	DefaultImportBatchSize  = 10000
	DefaultProgressInterval = 5000
	DefaultRecentErrors     = 50
)

// DefaultIgnorablePatterns are the substrings marking known-benign decode
// quirks. Matching errors are swallowed without a user-visible trace.
var DefaultIgnorablePatterns = []string{
	"unexpected record type",
	"malformed sub-block size",
	"expected short-id field",
	"non-zero counter in list",
	"header parse failure",
	"null reference during optional field access",
}

// Config holds all application configuration.
type Config struct {
	DatabasePath    string       `mapstructure:"database_path"`
	StringsLanguage string       `mapstructure:"strings_language"`
	Scan            ScanConfig   `mapstructure:"scan"`
	Import          ImportConfig `mapstructure:"import"`
	Log             LogConfig    `mapstructure:"log"`
}

// ScanConfig controls the binary plugin scanning path.
type ScanConfig struct {
	BatchSize         int      `mapstructure:"batch_size"`
	IgnorablePatterns []string `mapstructure:"ignorable_patterns"`
	RecentErrors      int      `mapstructure:"recent_errors"`
}

// ImportConfig controls the flat FormID-list ingestion path.
type ImportConfig struct {
	BatchSize        int `mapstructure:"batch_size"`
	ProgressInterval int `mapstructure:"progress_interval"`
}

// LogConfig controls the global logger built in main.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.DatabasePath == "" {
		warnings = append(warnings, "database_path is empty, using default")
		c.DatabasePath = DefaultDatabasePath
	}
	if c.Scan.BatchSize <= 0 {
		warnings = append(warnings, fmt.Sprintf("scan batch_size %d is not positive, using default %d", c.Scan.BatchSize, DefaultScanBatchSize))
		c.Scan.BatchSize = DefaultScanBatchSize
	}
	if c.Import.BatchSize <= 0 {
		warnings = append(warnings, fmt.Sprintf("import batch_size %d is not positive, using default %d", c.Import.BatchSize, DefaultImportBatchSize))
		c.Import.BatchSize = DefaultImportBatchSize
	}
	if c.Import.ProgressInterval <= 0 {
		warnings = append(warnings, fmt.Sprintf("import progress_interval %d is not positive, using default %d", c.Import.ProgressInterval, DefaultProgressInterval))
		c.Import.ProgressInterval = DefaultProgressInterval
	}
	if c.Scan.RecentErrors <= 0 {
		c.Scan.RecentErrors = DefaultRecentErrors
	}

	return warnings
}

// Load reads configuration from an optional file and the environment.
// Environment variables use the FORMID_DB prefix, e.g. FORMID_DB_LOG_LEVEL.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FORMID_DB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("strings_language", DefaultStringsLanguage)
	v.SetDefault("scan.batch_size", DefaultScanBatchSize)
	v.SetDefault("scan.ignorable_patterns", DefaultIgnorablePatterns)
	v.SetDefault("scan.recent_errors", DefaultRecentErrors)
	v.SetDefault("import.batch_size", DefaultImportBatchSize)
	v.SetDefault("import.progress_interval", DefaultProgressInterval)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}
