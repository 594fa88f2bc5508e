package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database owns the connection pool. It is created once at process start,
// handed to whoever needs it, and closed at shutdown.
type Database struct {
	db     *gorm.DB
	config map[string]interface{}
	mu     sync.RWMutex
}

// NewDatabase creates a new Database instance
func NewDatabase(config map[string]interface{}) *Database {
	return &Database{
		config: config,
	}
}

// Connect opens the configured database with retry logic
func (d *Database) Connect() error {
	return d.open(true)
}

// ConnectLazy sets up the pool without checking that the database is
// reachable. Queries fail until it is; Health reports the same.
func (d *Database) ConnectLazy() error {
	return d.open(false)
}

func (d *Database) open(ping bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dialector, err := d.dialector()
	if err != nil {
		return err
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(d.getLogLevel()),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		// Migration bodies may hold several statements; prepared statements would reject them
		PrepareStmt:          false,
		TranslateError:       true,
		DisableAutomaticPing: !ping,
	}

	maxRetries := d.getConfigInt("connect_retries", 5)
	if !ping {
		maxRetries = 1
	}
	retryDelay := d.getConfigDuration("connect_retry_delay", 2*time.Second)

	for i := 0; i < maxRetries; i++ {
		d.db, err = gorm.Open(dialector, gormConfig)
		if err == nil {
			break
		}

		if i < maxRetries-1 {
			time.Sleep(retryDelay)
			retryDelay *= 2
		}
	}

	if err != nil {
		return fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns := d.getConfigInt("max_open_conns", 20)
	maxIdleConns := d.getConfigInt("max_idle_conns", 5)
	if d.Driver() == "sqlite" {
		// SQLite allows a single writer; an in-memory database also lives on one connection
		maxOpenConns, maxIdleConns = 1, 1
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(d.getConfigDuration("conn_max_lifetime", 30*time.Minute))
	sqlDB.SetConnMaxIdleTime(d.getConfigDuration("conn_max_idle_time", 20*time.Second))

	return nil
}

// Health checks the database connection health
func (d *Database) Health(ctx context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return fmt.Errorf("database not connected")
	}

	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}

	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	d.db = nil
	return nil
}

// DB returns the underlying gorm.DB instance
func (d *Database) DB() *gorm.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}

// SetDB sets the underlying gorm.DB instance (for testing)
func (d *Database) SetDB(db *gorm.DB) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.db = db
}

// Driver returns the configured driver name
func (d *Database) Driver() string {
	return d.getConfigString("driver", "postgres")
}

func (d *Database) dialector() (gorm.Dialector, error) {
	switch driver := d.Driver(); driver {
	case "postgres":
		return postgres.Open(d.dsn()), nil
	case "sqlite":
		return sqlite.Open(d.getConfigString("path", "boilerplate.db")), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}
}

// dsn prefers a prebuilt connection URL and falls back to key/value fields
func (d *Database) dsn() string {
	if dsn := d.getConfigString("dsn", ""); dsn != "" {
		return dsn
	}
	return d.buildDSN()
}

// buildDSN constructs the PostgreSQL DSN from config
func (d *Database) buildDSN() string {
	host := d.getConfigString("host", "localhost")
	port := d.getConfigInt("port", 5432)
	user := d.getConfigString("user", "postgres")
	password := d.getConfigString("password", "")
	dbname := d.getConfigString("dbname", "boilerplate")
	sslmode := d.getConfigString("sslmode", "disable")
	timezone := d.getConfigString("timezone", "UTC")

	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		host, port, user, password, dbname, sslmode, timezone)
}

// getLogLevel returns the GORM log level from config
func (d *Database) getLogLevel() logger.LogLevel {
	switch d.getConfigString("log_level", "error") {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info", "debug":
		return logger.Info
	default:
		return logger.Error
	}
}

// Helper methods for config access

func (d *Database) getConfigString(key string, defaultValue string) string {
	if val, ok := d.config[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}

func (d *Database) getConfigInt(key string, defaultValue int) int {
	if val, ok := d.config[key].(int); ok {
		return val
	}
	// JSON and YAML decoding hand numbers over as float64
	if val, ok := d.config[key].(float64); ok {
		return int(val)
	}
	return defaultValue
}

func (d *Database) getConfigDuration(key string, defaultValue time.Duration) time.Duration {
	if val, ok := d.config[key].(string); ok {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	if val, ok := d.config[key].(time.Duration); ok && val > 0 {
		return val
	}
	return defaultValue
}
