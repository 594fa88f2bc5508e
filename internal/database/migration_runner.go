package database

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ksred/fullstack-boilerplate/internal/models"
	"github.com/ksred/fullstack-boilerplate/internal/utils"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gorm.io/gorm"
)

const (
	// DefaultMigrationsDir is where migration artifacts are looked up
	DefaultMigrationsDir = "migrations"

	// DefaultMigrationExtension is the artifact extension
	DefaultMigrationExtension = ".sql"
)

var (
	slugPattern = regexp.MustCompile(`^[a-z0-9_]+$`)
	sqlComments = regexp.MustCompile(`(?s)/\*.*?\*/|--[^\n]*`)
)

// LedgerColumn is one column of the ledger table as reported by the catalog
type LedgerColumn struct {
	Name string
	Type string
}

// expectedLedgerColumns is the ledger shape the runner relies on
var expectedLedgerColumns = []LedgerColumn{
	{Name: "version", Type: "integer"},
	{Name: "name", Type: "string"},
	{Name: "applied_at", Type: "timestamp"},
}

// MigrationDefinition is a migration artifact found on disk
type MigrationDefinition struct {
	Version int64
	Name    string
	File    string
	Body    string
}

// MigrationState pairs a definition with its ledger entry, if any
type MigrationState struct {
	Version   int64      `json:"version"`
	Name      string     `json:"name"`
	Applied   bool       `json:"applied"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

// MigrationStatus is the result of MigrationRunner.Status
type MigrationStatus struct {
	Migrations []MigrationState `json:"migrations"`
	Total      int              `json:"total"`
	Applied    int              `json:"applied"`
	Pending    int              `json:"pending"`
	// Untracked lists ledger versions without a matching definition
	Untracked []int64 `json:"untracked,omitempty"`
}

// RunnerOption configures a MigrationRunner
type RunnerOption func(*MigrationRunner)

// WithDirectory sets the directory migration artifacts are read from
func WithDirectory(dir string) RunnerOption {
	return func(r *MigrationRunner) {
		if dir != "" {
			r.dir = dir
		}
	}
}

// WithExtension sets the artifact extension, e.g. ".sql"
func WithExtension(ext string) RunnerOption {
	return func(r *MigrationRunner) {
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.ext = ext
	}
}

// WithAdvisoryLock serializes runners sharing a PostgreSQL database on the
// given advisory lock key. Zero disables locking; other dialects ignore it.
func WithAdvisoryLock(key int64) RunnerOption {
	return func(r *MigrationRunner) {
		r.lockKey = key
	}
}

// MigrationRunner applies versioned SQL files and tracks them in a ledger table
type MigrationRunner struct {
	db      *gorm.DB
	fs      afero.Fs
	logger  zerolog.Logger
	dir     string
	ext     string
	lockKey int64
	pattern *regexp.Regexp
}

// NewMigrationRunner creates a new migration runner
func NewMigrationRunner(db *gorm.DB, fs afero.Fs, logger zerolog.Logger, opts ...RunnerOption) *MigrationRunner {
	r := &MigrationRunner{
		db:     db,
		fs:     fs,
		logger: logger.With().Str("component", "migrations").Logger(),
		dir:    DefaultMigrationsDir,
		ext:    DefaultMigrationExtension,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.pattern = regexp.MustCompile(`^(\d+)_(.+)` + regexp.QuoteMeta(r.ext) + `$`)
	return r
}

// Dir returns the directory migration artifacts are read from
func (r *MigrationRunner) Dir() string {
	return r.dir
}

// EnsureLedger creates the ledger table if it is missing. A table that lacks
// an expected column is dropped and recreated, discarding its history.
func (r *MigrationRunner) EnsureLedger(ctx context.Context) error {
	return r.withLock(ctx, r.ensureLedger)
}

// ListApplied returns the versions recorded in the ledger in ascending order.
// It never changes the schema: a missing ledger reads as empty.
func (r *MigrationRunner) ListApplied(ctx context.Context) ([]int64, error) {
	db := r.db.WithContext(ctx)
	if !db.Migrator().HasTable(&models.MigrationRecord{}) {
		return []int64{}, nil
	}
	return r.appliedVersions(db)
}

// ListRecords returns the full ledger in ascending version order.
// Like ListApplied it is read-only.
func (r *MigrationRunner) ListRecords(ctx context.Context) ([]models.MigrationRecord, error) {
	db := r.db.WithContext(ctx)
	if !db.Migrator().HasTable(&models.MigrationRecord{}) {
		return []models.MigrationRecord{}, nil
	}
	return r.records(db)
}

// DiscoverDefinitions reads every artifact in the migrations directory and
// returns them sorted by version. A missing directory is created empty.
func (r *MigrationRunner) DiscoverDefinitions() ([]MigrationDefinition, error) {
	exists, err := afero.DirExists(r.fs, r.dir)
	if err != nil {
		return nil, &DiscoveryError{File: r.dir, Reason: "cannot access migrations directory", Cause: err}
	}
	if !exists {
		if err := r.fs.MkdirAll(r.dir, 0o755); err != nil {
			return nil, &DiscoveryError{File: r.dir, Reason: "cannot create migrations directory", Cause: err}
		}
		r.logger.Info().Str("dir", r.dir).Msg("Created empty migrations directory")
		return []MigrationDefinition{}, nil
	}

	entries, err := afero.ReadDir(r.fs, r.dir)
	if err != nil {
		return nil, &DiscoveryError{File: r.dir, Reason: "cannot list migrations directory", Cause: err}
	}

	definitions := make([]MigrationDefinition, 0, len(entries))
	seen := make(map[int64]string, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, r.ext) {
			continue
		}

		match := r.pattern.FindStringSubmatch(name)
		if match == nil {
			return nil, &DiscoveryError{
				File:   name,
				Reason: fmt.Sprintf("name must match <version>_<name>%s", r.ext),
			}
		}

		version, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			return nil, &DiscoveryError{File: name, Reason: "version is not a valid integer", Cause: err}
		}
		if version < 1 {
			return nil, &DiscoveryError{File: name, Reason: "version must be positive"}
		}
		if previous, ok := seen[version]; ok {
			return nil, &DiscoveryError{
				File:   name,
				Reason: fmt.Sprintf("version %d is already defined by %s", version, previous),
			}
		}
		seen[version] = name

		body, err := afero.ReadFile(r.fs, filepath.Join(r.dir, name))
		if err != nil {
			return nil, &DiscoveryError{File: name, Reason: "cannot read file", Cause: err}
		}

		definitions = append(definitions, MigrationDefinition{
			Version: version,
			Name:    match[2],
			File:    name,
			Body:    string(body),
		})
	}

	// Directory order is lexical, "10_x" sorts before "2_y"
	sort.Slice(definitions, func(i, j int) bool {
		return definitions[i].Version < definitions[j].Version
	})

	return definitions, nil
}

// Run applies every pending migration in ascending version order and returns
// how many were applied. It stops at the first failing migration; migrations
// applied before it stay applied.
func (r *MigrationRunner) Run(ctx context.Context) (int, error) {
	definitions, err := r.DiscoverDefinitions()
	if err != nil {
		return 0, err
	}

	applied := 0
	err = r.withLock(ctx, func(db *gorm.DB) error {
		if err := r.ensureLedger(db); err != nil {
			return err
		}

		versions, err := r.appliedVersions(db)
		if err != nil {
			return err
		}

		pending := pendingDefinitions(definitions, versions)
		if len(pending) == 0 {
			r.logger.Info().Msg("No pending migrations")
			return nil
		}

		r.logger.Info().Int("pending", len(pending)).Msg("Applying pending migrations")

		for _, def := range pending {
			if err := ctx.Err(); err != nil {
				return &MigrationExecutionError{Version: def.Version, Name: def.Name, Cause: err}
			}
			if err := r.apply(db, def); err != nil {
				return err
			}
			applied++
		}

		r.logger.Info().Int("applied", applied).Msg("All migrations completed successfully")
		return nil
	})

	return applied, err
}

// Rollback removes the ledger records of the steps most recent migrations,
// newest first. The schema changes those migrations made are left in place.
func (r *MigrationRunner) Rollback(ctx context.Context, steps int) ([]models.MigrationRecord, error) {
	if steps < 1 {
		return nil, utils.InvalidFieldError("steps", "must be a positive integer")
	}

	var removed []models.MigrationRecord
	err := r.withLock(ctx, func(db *gorm.DB) error {
		if err := r.ensureLedger(db); err != nil {
			return err
		}

		var records []models.MigrationRecord
		if err := db.Order("version DESC").Limit(steps).Find(&records).Error; err != nil {
			return &LedgerError{Op: "read", Cause: err}
		}

		if len(records) == 0 {
			r.logger.Info().Msg("No migrations to roll back")
			return nil
		}

		for _, record := range records {
			r.logger.Info().
				Int64("version", record.Version).
				Str("name", record.Name).
				Msg("Rolling back migration")

			result := db.Where("version = ?", record.Version).Delete(&models.MigrationRecord{})
			if result.Error != nil {
				return &LedgerError{Op: "delete", Cause: result.Error}
			}
			removed = append(removed, record)
		}

		r.logger.Info().Int("rolled_back", len(removed)).Msg("Rollback completed")
		return nil
	})

	return removed, err
}

// Status reports, for every discovered definition, whether it has been applied
func (r *MigrationRunner) Status(ctx context.Context) (*MigrationStatus, error) {
	definitions, err := r.DiscoverDefinitions()
	if err != nil {
		return nil, err
	}

	var records []models.MigrationRecord
	err = r.withLock(ctx, func(db *gorm.DB) error {
		if err := r.ensureLedger(db); err != nil {
			return err
		}
		var err error
		records, err = r.records(db)
		return err
	})
	if err != nil {
		return nil, err
	}

	byVersion := make(map[int64]models.MigrationRecord, len(records))
	for _, record := range records {
		byVersion[record.Version] = record
	}

	status := &MigrationStatus{
		Migrations: make([]MigrationState, 0, len(definitions)),
		Total:      len(definitions),
	}

	defined := make(map[int64]bool, len(definitions))
	for _, def := range definitions {
		defined[def.Version] = true

		state := MigrationState{Version: def.Version, Name: def.Name}
		if record, ok := byVersion[def.Version]; ok {
			appliedAt := record.AppliedAt
			state.Applied = true
			state.AppliedAt = &appliedAt
			status.Applied++
		} else {
			status.Pending++
		}
		status.Migrations = append(status.Migrations, state)
	}

	for _, record := range records {
		if !defined[record.Version] {
			status.Untracked = append(status.Untracked, record.Version)
		}
	}

	return status, nil
}

// CreateDefinition writes an empty migration artifact numbered after the
// highest existing version and returns its path.
func (r *MigrationRunner) CreateDefinition(name string) (string, error) {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.NewReplacer(" ", "_", "-", "_").Replace(slug)
	if !slugPattern.MatchString(slug) {
		return "", utils.InvalidFieldError("name", "may only contain letters, digits, spaces, dashes and underscores")
	}

	definitions, err := r.DiscoverDefinitions()
	if err != nil {
		return "", err
	}

	var next int64 = 1
	if len(definitions) > 0 {
		next = definitions[len(definitions)-1].Version + 1
	}

	path := filepath.Join(r.dir, fmt.Sprintf("%d_%s%s", next, slug, r.ext))
	header := fmt.Sprintf("-- Migration: %s\n-- Created at: %s\n\n", slug, time.Now().UTC().Format(time.RFC3339))

	if err := afero.WriteFile(r.fs, path, []byte(header), 0o644); err != nil {
		return "", fmt.Errorf("failed to write migration file: %w", err)
	}

	r.logger.Info().
		Int64("version", next).
		Str("name", slug).
		Str("file", path).
		Msg("Created migration")

	return path, nil
}

// apply executes one definition and records it in the same transaction
func (r *MigrationRunner) apply(db *gorm.DB, def MigrationDefinition) error {
	r.logger.Info().
		Int64("version", def.Version).
		Str("name", def.Name).
		Msg("Running migration")

	err := db.Transaction(func(tx *gorm.DB) error {
		if !isBlankBody(def.Body) {
			if err := tx.Exec(def.Body).Error; err != nil {
				return err
			}
		}

		record := &models.MigrationRecord{
			Version:   def.Version,
			Name:      def.Name,
			AppliedAt: time.Now().UTC(),
		}
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error().
			Err(err).
			Int64("version", def.Version).
			Str("name", def.Name).
			Msg("Migration failed")
		return &MigrationExecutionError{Version: def.Version, Name: def.Name, Cause: err}
	}

	r.logger.Info().
		Int64("version", def.Version).
		Str("name", def.Name).
		Msg("Migration completed successfully")
	return nil
}

func (r *MigrationRunner) ensureLedger(db *gorm.DB) error {
	migrator := db.Migrator()
	table := models.MigrationRecord{}.TableName()

	if !migrator.HasTable(&models.MigrationRecord{}) {
		r.logger.Debug().Str("table", table).Msg("Creating ledger table")
		if err := migrator.CreateTable(&models.MigrationRecord{}); err != nil {
			return &LedgerError{Op: "create", Cause: err}
		}
		return nil
	}

	columns, err := inspectLedger(db)
	if err != nil {
		return &LedgerError{Op: "inspect", Cause: err}
	}

	missing := missingLedgerColumns(columns)
	if len(missing) == 0 {
		return nil
	}

	r.logger.Warn().
		Str("table", table).
		Strs("missing_columns", missing).
		Msg("Ledger table has an unexpected shape, dropping and recreating it; applied history is lost")

	if err := migrator.DropTable(&models.MigrationRecord{}); err != nil {
		return &LedgerError{Op: "drop", Cause: err}
	}
	if err := migrator.CreateTable(&models.MigrationRecord{}); err != nil {
		return &LedgerError{Op: "create", Cause: err}
	}
	return nil
}

func (r *MigrationRunner) appliedVersions(db *gorm.DB) ([]int64, error) {
	versions := []int64{}
	if err := db.Model(&models.MigrationRecord{}).Order("version ASC").Pluck("version", &versions).Error; err != nil {
		return nil, &LedgerError{Op: "read", Cause: err}
	}
	return versions, nil
}

func (r *MigrationRunner) records(db *gorm.DB) ([]models.MigrationRecord, error) {
	records := []models.MigrationRecord{}
	if err := db.Order("version ASC").Find(&records).Error; err != nil {
		return nil, &LedgerError{Op: "read", Cause: err}
	}
	return records, nil
}

// withLock runs fn on a single connection holding the advisory lock when one
// is configured and the database is PostgreSQL, and on the pool otherwise.
func (r *MigrationRunner) withLock(ctx context.Context, fn func(db *gorm.DB) error) error {
	db := r.db.WithContext(ctx)
	if r.lockKey == 0 || db.Dialector.Name() != "postgres" {
		return fn(db)
	}

	return db.Connection(func(conn *gorm.DB) error {
		r.logger.Debug().Int64("lock_key", r.lockKey).Msg("Acquiring migration lock")
		if err := conn.Exec("SELECT pg_advisory_lock(?)", r.lockKey).Error; err != nil {
			return &LedgerError{Op: "lock", Cause: err}
		}
		defer func() {
			unlock := conn.WithContext(context.WithoutCancel(ctx))
			if err := unlock.Exec("SELECT pg_advisory_unlock(?)", r.lockKey).Error; err != nil {
				r.logger.Warn().Err(err).Int64("lock_key", r.lockKey).Msg("Failed to release migration lock")
			}
		}()
		return fn(conn)
	})
}

// inspectLedger returns the ledger columns in table order
func inspectLedger(db *gorm.DB) ([]LedgerColumn, error) {
	columnTypes, err := db.Migrator().ColumnTypes(&models.MigrationRecord{})
	if err != nil {
		return nil, err
	}

	columns := make([]LedgerColumn, 0, len(columnTypes))
	for _, ct := range columnTypes {
		columns = append(columns, LedgerColumn{
			Name: strings.ToLower(ct.Name()),
			Type: strings.ToLower(ct.DatabaseTypeName()),
		})
	}
	return columns, nil
}

// missingLedgerColumns compares by name; database type names vary per dialect
func missingLedgerColumns(columns []LedgerColumn) []string {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c.Name] = true
	}

	var missing []string
	for _, expected := range expectedLedgerColumns {
		if !present[expected.Name] {
			missing = append(missing, expected.Name)
		}
	}
	return missing
}

// pendingDefinitions keeps the definitions whose version is not in applied,
// preserving their order
func pendingDefinitions(definitions []MigrationDefinition, applied []int64) []MigrationDefinition {
	done := make(map[int64]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	pending := make([]MigrationDefinition, 0, len(definitions))
	for _, def := range definitions {
		if !done[def.Version] {
			pending = append(pending, def)
		}
	}
	return pending
}

// isBlankBody reports whether body holds nothing but whitespace and comments
func isBlankBody(body string) bool {
	return strings.TrimSpace(sqlComments.ReplaceAllString(body, "")) == ""
}
