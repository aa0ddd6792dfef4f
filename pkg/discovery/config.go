package discovery

import (
	"fmt"
	"os"
	"path/filepath"
)

// Type selects a discovery backend.
type Type string

const (
	// TypeNone disables discovery.
	TypeNone Type = "none"

	// TypeMemory keeps records in process memory (default).
	TypeMemory Type = "memory"

	// TypeBadger persists records in an embedded BadgerDB.
	TypeBadger Type = "badger"

	// TypeSQLite persists records in a SQLite file.
	TypeSQLite Type = "sqlite"

	// TypePostgres persists records in PostgreSQL.
	TypePostgres Type = "postgres"
)

// BadgerConfig contains BadgerDB-specific configuration.
type BadgerConfig struct {
	// Path is the database directory. Default: $XDG_STATE_HOME/lifecycled/discovery
	Path string `mapstructure:"path" yaml:"path"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the database file. Default: $XDG_STATE_HOME/lifecycled/discovery.db
	Path string `mapstructure:"path" yaml:"path"`
}

// PostgresConfig contains PostgreSQL-specific configuration.
type PostgresConfig struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" yaml:"port"`
	Database     string `mapstructure:"database" yaml:"database"`
	User         string `mapstructure:"user" yaml:"user"`
	Password     string `mapstructure:"password" yaml:"password,omitempty"`
	SSLMode      string `mapstructure:"sslmode" yaml:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += fmt.Sprintf(" sslmode=%s", c.SSLMode)
	}
	return dsn
}

// Config selects and configures the discovery backend.
type Config struct {
	Type     Type           `mapstructure:"type" validate:"omitempty,oneof=none memory badger sqlite postgres" yaml:"type"`
	Badger   BadgerConfig   `mapstructure:"badger" yaml:"badger"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = TypeMemory
	}

	switch c.Type {
	case TypeBadger:
		if c.Badger.Path == "" {
			c.Badger.Path = filepath.Join(stateDir(), "discovery")
		}
	case TypeSQLite:
		if c.SQLite.Path == "" {
			c.SQLite.Path = filepath.Join(stateDir(), "discovery.db")
		}
	case TypePostgres:
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "disable"
		}
		if c.Postgres.MaxOpenConns == 0 {
			c.Postgres.MaxOpenConns = 10
		}
		if c.Postgres.MaxIdleConns == 0 {
			c.Postgres.MaxIdleConns = 2
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Type {
	case TypeNone, TypeMemory:
	case TypeBadger:
		if c.Badger.Path == "" {
			return fmt.Errorf("badger path is required")
		}
	case TypeSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case TypePostgres:
		if c.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if c.Postgres.Database == "" {
			return fmt.Errorf("postgres database is required")
		}
		if c.Postgres.User == "" {
			return fmt.Errorf("postgres user is required")
		}
	default:
		return fmt.Errorf("unsupported discovery type: %s", c.Type)
	}
	return nil
}

// New creates the backend cfg selects. It returns a nil Store for TypeNone.
func New(cfg Config) (Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid discovery configuration: %w", err)
	}

	var (
		store Store
		err   error
	)
	switch cfg.Type {
	case TypeNone:
		return nil, nil
	case TypeBadger:
		store, err = asStore(NewBadgerStore(cfg.Badger.Path))
	case TypeSQLite:
		store, err = asStore(NewSQLiteStore(cfg.SQLite.Path))
	case TypePostgres:
		store, err = asStore(NewPostgresStore(cfg.Postgres))
	default:
		store = NewMemoryStore()
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// asStore keeps a failed constructor from yielding a non-nil Store that
// wraps a nil pointer.
func asStore[S Store](s S, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

func stateDir() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "lifecycled")
}
