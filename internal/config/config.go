package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config represents the main application configuration
type Config struct {
	Database   Database   `json:"database" mapstructure:"database"`
	Server     Server     `json:"server" mapstructure:"server"`
	HTTP       HTTP       `json:"http" mapstructure:"http"`
	Migrations Migrations `json:"migrations" mapstructure:"migrations"`
}

// Database represents database configuration
type Database struct {
	Driver          string        `json:"driver" mapstructure:"driver"`
	Host            string        `json:"host" mapstructure:"host"`
	Port            int           `json:"port" mapstructure:"port"`
	User            string        `json:"user" mapstructure:"user"`
	Password        string        `json:"password" mapstructure:"password"`
	DBName          string        `json:"dbname" mapstructure:"dbname"`
	SSLMode         string        `json:"sslmode" mapstructure:"sslmode"`
	Path            string        `json:"path" mapstructure:"path"`
	MaxConnections  int           `json:"max_connections" mapstructure:"max_connections"`
	MaxIdleConns    int           `json:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// Server represents process-level settings
type Server struct {
	LogLevel string `json:"log_level" mapstructure:"log_level"`
	Debug    bool   `json:"debug" mapstructure:"debug"`
}

// HTTP represents HTTP server configuration
type HTTP struct {
	Port         int      `json:"port" mapstructure:"port"`
	AllowOrigins []string `json:"allow_origins" mapstructure:"allow_origins"`
}

// Migrations configures the versioned SQL migration runner
type Migrations struct {
	Dir          string `json:"dir" mapstructure:"dir"`
	Extension    string `json:"extension" mapstructure:"extension"`
	LockKey      int64  `json:"lock_key" mapstructure:"lock_key"`
	RunOnStartup bool   `json:"run_on_startup" mapstructure:"run_on_startup"`
}

// NewDefault returns a Config instance with default values
func NewDefault() *Config {
	return &Config{
		Database: Database{
			Driver:          DriverPostgres,
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Password:        "",
			DBName:          "boilerplate",
			SSLMode:         "disable",
			Path:            "boilerplate.db",
			MaxConnections:  20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 20 * time.Second,
		},
		Server: Server{
			LogLevel: "info",
			Debug:    false,
		},
		HTTP: HTTP{
			Port:         3001,
			AllowOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Migrations: Migrations{
			Dir:          "migrations",
			Extension:    ".sql",
			LockKey:      0,
			RunOnStartup: true,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("database port must be between 1 and 65535")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database name is required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	if c.Database.MaxConnections <= 0 {
		return fmt.Errorf("max connections must be greater than 0")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("max idle connections cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxConnections {
		return fmt.Errorf("max idle connections cannot exceed max connections")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}
	if !validLogLevels[c.Server.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}

	if c.Migrations.Dir == "" {
		return fmt.Errorf("migrations directory is required")
	}
	if !strings.HasPrefix(c.Migrations.Extension, ".") || len(c.Migrations.Extension) < 2 {
		return fmt.Errorf("migrations extension must start with a dot, got %q", c.Migrations.Extension)
	}

	return nil
}

// DatabaseURL constructs a PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	params := url.Values{}
	params.Set("sslmode", c.Database.SSLMode)

	var userInfo *url.Userinfo
	if c.Database.Password == "" {
		userInfo = url.User(c.Database.User)
	} else {
		userInfo = url.UserPassword(c.Database.User, c.Database.Password)
	}

	u := &url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     c.Database.DBName,
		RawQuery: params.Encode(),
	}

	return u.String()
}

// DatabaseSettings flattens the database section into the key/value form
// consumed by database.NewDatabase.
func (c *Config) DatabaseSettings() map[string]interface{} {
	gormLevel := "silent"
	if c.Server.Debug {
		gormLevel = "info"
	}
	settings := map[string]interface{}{
		"driver":             c.Database.Driver,
		"host":               c.Database.Host,
		"port":               c.Database.Port,
		"user":               c.Database.User,
		"password":           c.Database.Password,
		"dbname":             c.Database.DBName,
		"sslmode":            c.Database.SSLMode,
		"path":               c.Database.Path,
		"max_open_conns":     c.Database.MaxConnections,
		"max_idle_conns":     c.Database.MaxIdleConns,
		"conn_max_lifetime":  c.Database.ConnMaxLifetime,
		"conn_max_idle_time": c.Database.ConnMaxIdleTime,
		"log_level":          gormLevel,
	}
	if c.Database.Driver == DriverPostgres {
		// URL form escapes credentials the key/value DSN cannot carry
		settings["dsn"] = c.DatabaseURL()
	}
	return settings
}
