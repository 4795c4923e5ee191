// Package config loads framework configuration via viper: a YAML file
// (searched on a small precedence path) layered under environment-variable
// overrides and programmatic defaults, the same mechanism the teacher uses
// for its own config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Database holds connection parameters for the store's connection pool.
type Database struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	PoolMax  int32
}

// Notifications holds the dispatcher's tunables (spec §4.5, §6).
type Notifications struct {
	InitialDelay       time.Duration
	Interval           time.Duration
	MaxAttempts        int
	MaxRescheduleDelay time.Duration
	LogFile            string // optional; enables lumberjack rotation when set
}

// Config is the fully resolved configuration for one framework instance.
type Config struct {
	Database      Database
	Migrations    string
	Notifications Notifications
}

// DSN renders a libpq-style connection string for pgx.
func (d Database) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, sslmode)
}

// Load resolves configuration by searching, in order, ./rdf.yaml walking up
// from baseDir, then $XDG_CONFIG_HOME/rdf/rdf.yaml, then applying RDF_-
// prefixed environment overrides and finally the defaults below.
func Load(baseDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	configFileSet := false
	for dir := baseDir; ; {
		path := filepath.Join(dir, "rdf.yaml")
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			configFileSet = true
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			path := filepath.Join(configDir, "rdf", "rdf.yaml")
			if _, err := os.Stat(path); err == nil {
				v.SetConfigFile(path)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("RDF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "rdf")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "rdf")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.pool_max", 10)

	v.SetDefault("migrations", filepath.Join(baseDir, "migrations"))

	v.SetDefault("notifications.initial_delay", "0ms")
	v.SetDefault("notifications.interval", "1s")
	v.SetDefault("notifications.max_attempts", 5)
	v.SetDefault("notifications.max_reschedule_delay", "60s")
	v.SetDefault("notifications.log_file", "")

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	initialDelay, err := time.ParseDuration(v.GetString("notifications.initial_delay"))
	if err != nil {
		return nil, fmt.Errorf("parse notifications.initial_delay: %w", err)
	}
	interval, err := time.ParseDuration(v.GetString("notifications.interval"))
	if err != nil {
		return nil, fmt.Errorf("parse notifications.interval: %w", err)
	}
	maxRescheduleDelay, err := time.ParseDuration(v.GetString("notifications.max_reschedule_delay"))
	if err != nil {
		return nil, fmt.Errorf("parse notifications.max_reschedule_delay: %w", err)
	}

	return &Config{
		Database: Database{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			Database: v.GetString("database.database"),
			SSLMode:  v.GetString("database.sslmode"),
			PoolMax:  int32(v.GetInt("database.pool_max")),
		},
		Migrations: v.GetString("migrations"),
		Notifications: Notifications{
			InitialDelay:       initialDelay,
			Interval:           interval,
			MaxAttempts:        v.GetInt("notifications.max_attempts"),
			MaxRescheduleDelay: maxRescheduleDelay,
			LogFile:            v.GetString("notifications.log_file"),
		},
	}, nil
}
