// Package config provides configuration management using viper.
// It supports loading from YAML files, a .env file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Economy  EconomyConfig  `mapstructure:"economy"`
	Combat   CombatConfig   `mapstructure:"combat"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig selects and configures the ledger store backend.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`

	// SQLite
	Path string `mapstructure:"path"`

	// PostgreSQL
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// EconomyConfig holds currency grants.
type EconomyConfig struct {
	InitialBalance int64 `mapstructure:"initial_balance"`
	MineMin        int64 `mapstructure:"mine_min"`
	MineMax        int64 `mapstructure:"mine_max"`
}

// CombatConfig holds the encounter rules.
type CombatConfig struct {
	EnemyHealth     int   `mapstructure:"enemy_health"`
	PlayerDamageMin int   `mapstructure:"player_damage_min"`
	PlayerDamageMax int   `mapstructure:"player_damage_max"`
	EnemyDamageMin  int   `mapstructure:"enemy_damage_min"`
	EnemyDamageMax  int   `mapstructure:"enemy_damage_max"`
	Reward          int64 `mapstructure:"reward"`
	DefeatPenalty   int64 `mapstructure:"defeat_penalty"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in configPath, "." and "./config".
// A .env file in the working directory is applied to the environment first.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. DATABASE_DRIVER, DATABASE_PATH, COMBAT_REWARD
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the core cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the %s driver", DriverSQLite)
		}
	case DriverPostgres:
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.Economy.InitialBalance < 0 {
		return fmt.Errorf("economy.initial_balance must not be negative")
	}
	if c.Economy.MineMin <= 0 || c.Economy.MineMax < c.Economy.MineMin {
		return fmt.Errorf("economy.mine_min/mine_max must form a positive range")
	}
	if c.Combat.EnemyHealth <= 0 {
		return fmt.Errorf("combat.enemy_health must be positive")
	}
	if c.Combat.PlayerDamageMin <= 0 || c.Combat.PlayerDamageMax < c.Combat.PlayerDamageMin {
		return fmt.Errorf("combat.player_damage_min/max must form a positive range")
	}
	if c.Combat.EnemyDamageMin <= 0 || c.Combat.EnemyDamageMax < c.Combat.EnemyDamageMin {
		return fmt.Errorf("combat.enemy_damage_min/max must form a positive range")
	}
	if c.Combat.Reward < 0 || c.Combat.DefeatPenalty < 0 {
		return fmt.Errorf("combat.reward and combat.defeat_penalty must not be negative")
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", filepath.Join(".", "terminusa.db"))
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "terminusa")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "terminusa")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Economy defaults
	v.SetDefault("economy.initial_balance", 100)
	v.SetDefault("economy.mine_min", 10)
	v.SetDefault("economy.mine_max", 50)

	// Combat defaults
	v.SetDefault("combat.enemy_health", 50)
	v.SetDefault("combat.player_damage_min", 5)
	v.SetDefault("combat.player_damage_max", 20)
	v.SetDefault("combat.enemy_damage_min", 5)
	v.SetDefault("combat.enemy_damage_max", 15)
	v.SetDefault("combat.reward", 50)
	v.SetDefault("combat.defeat_penalty", 50)

	v.SetDefault("log.level", "info")
}
