// Package config loads the deployment settings from an optional YAML file
// and DBUP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/example/dbup/internal/database"
	"github.com/example/dbup/internal/dialect"
	"github.com/example/dbup/internal/logging"
	"github.com/example/dbup/internal/script"
)

// EnvPrefix is prepended to every environment override, so journal.table
// is read from DBUP_JOURNAL_TABLE.
const EnvPrefix = "DBUP"

var (
	// ErrMissingKeys indicates required settings were not provided.
	ErrMissingKeys = errors.New("required configuration is missing")

	// ErrInvalidKeys indicates settings with values that cannot be used.
	ErrInvalidKeys = errors.New("configuration values are invalid")
)

// Config is the complete deployment configuration.
type Config struct {
	Driver         string            `mapstructure:"driver"`
	DSN            string            `mapstructure:"dsn"`
	Transaction    string            `mapstructure:"transaction"`
	Hash           string            `mapstructure:"hash"`
	NameComparison string            `mapstructure:"name_comparison"`
	Variables      map[string]string `mapstructure:"variables"`

	Journal JournalConfig  `mapstructure:"journal"`
	Log     LogConfig      `mapstructure:"log"`
	Pool    PoolConfig     `mapstructure:"pool"`
	SQLite  SQLiteConfig   `mapstructure:"sqlite"`
	Scripts []ScriptSource `mapstructure:"scripts"`
}

// JournalConfig selects where applied scripts are recorded.
type JournalConfig struct {
	Table    string `mapstructure:"table"`
	Schema   string `mapstructure:"schema"`
	Disabled bool   `mapstructure:"disabled"` // Record nothing; every script runs every time
}

type LogConfig struct {
	Format string `mapstructure:"format"`
	Level  string `mapstructure:"level"`
}

type PoolConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type SQLiteConfig struct {
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
	ForeignKeys bool          `mapstructure:"foreign_keys"`
}

// ScriptSource is one directory of scripts and the options stamped onto them.
type ScriptSource struct {
	Path                           string `mapstructure:"path"`
	Pattern                        string `mapstructure:"pattern"`
	IncludeSubdirectories          bool   `mapstructure:"include_subdirectories"`
	IncludeSubdirectoryInName      bool   `mapstructure:"include_subdirectory_in_name"`
	RedeployOnChange               bool   `mapstructure:"redeploy_on_change"`
	FirstDeploymentAsStartingPoint bool   `mapstructure:"first_deployment_as_starting_point"`
	DependencyOrderFile            string `mapstructure:"dependency_order_file"`
}

// ScriptOptions returns the options stamped onto the source's scripts.
func (s ScriptSource) ScriptOptions() *script.Options {
	return &script.Options{
		RedeployOnChange:               s.RedeployOnChange,
		FirstDeploymentAsStartingPoint: s.FirstDeploymentAsStartingPoint,
		DependencyOrderFilePath:        s.DependencyOrderFile,
		IncludeSubDirectoryInName:      s.IncludeSubdirectoryInName,
	}
}

// DatabaseOptions returns the connection settings for database.Open.
func (c Config) DatabaseOptions() database.Options {
	return database.Options{
		DSN:             c.DSN,
		MaxOpenConns:    c.Pool.MaxOpenConns,
		MaxIdleConns:    c.Pool.MaxIdleConns,
		ConnMaxLifetime: c.Pool.ConnMaxLifetime,
		BusyTimeout:     c.SQLite.BusyTimeout,
		ForeignKeys:     c.SQLite.ForeignKeys,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("driver", "sqlite")
	v.SetDefault("dsn", "")
	v.SetDefault("transaction", "none")
	v.SetDefault("hash", "sha256")
	v.SetDefault("name_comparison", "ordinal")
	v.SetDefault("journal.table", "SchemaVersions")
	v.SetDefault("journal.schema", "")
	v.SetDefault("journal.disabled", false)
	v.SetDefault("log.format", "json")
	v.SetDefault("log.level", "info")
	v.SetDefault("pool.max_open_conns", 4)
	v.SetDefault("pool.max_idle_conns", 2)
	v.SetDefault("pool.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("sqlite.busy_timeout", 30*time.Second)
	v.SetDefault("sqlite.foreign_keys", true)
}

// Load reads the file at path when path is not empty, applies DBUP_*
// environment overrides and defaults, and validates the result. Every
// missing or invalid key is reported at once.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports missing keys first and then invalid ones.
func (c Config) Validate() error {
	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 4)

	if strings.TrimSpace(c.DSN) == "" {
		missing = append(missing, "dsn")
	}
	if len(c.Scripts) == 0 {
		missing = append(missing, "scripts")
	}
	for i, src := range c.Scripts {
		if strings.TrimSpace(src.Path) == "" {
			missing = append(missing, fmt.Sprintf("scripts[%d].path", i))
		}
	}

	if _, err := dialect.Lookup(c.Driver); err != nil {
		invalid = append(invalid, "driver")
	}
	if _, err := database.ParseTransactionMode(c.Transaction); err != nil {
		invalid = append(invalid, "transaction")
	}
	if _, err := script.NewHasher(c.Hash); err != nil {
		invalid = append(invalid, "hash")
	}
	if _, err := script.NewComparer(c.NameComparison); err != nil {
		invalid = append(invalid, "name_comparison")
	}
	if f := strings.ToLower(c.Log.Format); f != "" && f != "json" && f != "text" {
		invalid = append(invalid, "log.format")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		invalid = append(invalid, "log.level")
	}
	if c.Pool.MaxOpenConns < 0 {
		invalid = append(invalid, "pool.max_open_conns")
	}
	if c.Pool.MaxIdleConns < 0 {
		invalid = append(invalid, "pool.max_idle_conns")
	}
	if c.Pool.ConnMaxLifetime < 0 {
		invalid = append(invalid, "pool.conn_max_lifetime")
	}
	if c.SQLite.BusyTimeout < 0 {
		invalid = append(invalid, "sqlite.busy_timeout")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingKeys, strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidKeys, strings.Join(invalid, ", "))
	}
	return nil
}
