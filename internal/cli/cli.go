// Package cli provides the migrate command-line interface.
// Without a subcommand it applies pending migrations.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ksred/fullstack-boilerplate/internal/config"
	"github.com/ksred/fullstack-boilerplate/internal/database"
	"github.com/ksred/fullstack-boilerplate/internal/utils"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
)

// Version information (set at build time)
var Version = "0.1.0"

// CLI holds the command-line interface state.
type CLI struct {
	rootCmd *cobra.Command
	cfg     *config.Config
	logger  zerolog.Logger
	fs      afero.Fs
	out     io.Writer
	errOut  io.Writer

	// Global flags
	configPath string
	dir        string
	jsonOutput bool
	debug      bool

	// set once a command has tried to reach the database
	usedDatabase bool
}

// Option configures a CLI
type Option func(*CLI)

// WithFs sets the filesystem migration files are read from
func WithFs(fs afero.Fs) Option {
	return func(c *CLI) {
		c.fs = fs
	}
}

// WithOutput redirects command output and diagnostics
func WithOutput(out, errOut io.Writer) Option {
	return func(c *CLI) {
		c.out = out
		c.errOut = errOut
	}
}

// New creates a new CLI instance.
func New(opts ...Option) *CLI {
	c := &CLI{
		fs:     afero.NewOsFs(),
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}
	logConfig := utils.DefaultConfig()
	logConfig.Pretty = true
	logConfig.Output = c.errOut
	c.logger = utils.NewLogger(logConfig)
	c.rootCmd = c.newRootCmd()
	c.rootCmd.SetOut(c.out)
	c.rootCmd.SetErr(c.errOut)
	return c
}

// Execute runs the CLI with args and returns the process exit code.
func (c *CLI) Execute(ctx context.Context, args []string) int {
	c.rootCmd.SetArgs(args)
	if err := c.rootCmd.ExecuteContext(ctx); err != nil {
		c.logger.Error().Err(err).Msg("Command failed")
		if hint := hintFor(err); c.usedDatabase && hint != "" {
			c.errorf("%s %s\n", color.New(color.FgYellow, color.Bold).Sprint("hint:"), hint)
		}
		return ExitError
	}
	return ExitSuccess
}

func (c *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply and inspect versioned SQL migrations",
		Long: `migrate applies the SQL files in the migrations directory in version order
and records each one in the migrations ledger table.

Files are named <version>_<name>.sql. Run without a command to apply every
pending migration.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMigrate(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ./config.yaml)")
	cmd.PersistentFlags().StringVar(&c.dir, "dir", "", "migrations directory (overrides config)")
	cmd.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "machine-readable JSON output")
	cmd.PersistentFlags().BoolVar(&c.debug, "debug", false, "verbose debug logs")

	cmd.AddCommand(c.newStatusCmd())
	cmd.AddCommand(c.newRollbackCmd())
	cmd.AddCommand(c.newCreateCmd())

	return cmd
}

func (c *CLI) initConfig() error {
	cfg, err := config.LoadConfig(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	if c.dir != "" {
		c.cfg.Migrations.Dir = c.dir
	}

	level := cfg.Server.LogLevel
	if c.debug {
		level = "debug"
	}
	c.logger = utils.NewLogger(utils.LoggerConfig{
		Level:  level,
		Pretty: true,
		Output: c.errOut,
	})

	return nil
}

// newRunner builds a runner from config; db is nil for filesystem-only commands
func (c *CLI) newRunner(db *database.Database) *database.MigrationRunner {
	opts := []database.RunnerOption{
		database.WithDirectory(c.cfg.Migrations.Dir),
		database.WithExtension(c.cfg.Migrations.Extension),
		database.WithAdvisoryLock(c.cfg.Migrations.LockKey),
	}
	if db == nil {
		return database.NewMigrationRunner(nil, c.fs, c.logger, opts...)
	}
	return database.NewMigrationRunner(db.DB(), c.fs, c.logger, opts...)
}

// withRunner opens the database for the duration of fn
func (c *CLI) withRunner(fn func(runner *database.MigrationRunner) error) error {
	c.usedDatabase = true
	settings := c.cfg.DatabaseSettings()
	settings["connect_retries"] = 1

	db := database.NewDatabase(settings)
	if err := db.Connect(); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to close database connection")
		}
	}()

	return fn(c.newRunner(db))
}

// hintFor only produces hints for database failures
func hintFor(err error) string {
	if database.IsDiscoveryError(err) || utils.IsValidationError(err) {
		return ""
	}
	if database.IsMigrationExecutionError(err) {
		return "Fix the failing migration file and run migrate again; earlier migrations stay applied"
	}
	return database.ConnectionHint(err)
}

// Helper functions for output

func (c *CLI) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *CLI) println(args ...interface{}) {
	fmt.Fprintln(c.out, args...)
}

func (c *CLI) errorf(format string, args ...interface{}) {
	fmt.Fprintf(c.errOut, format, args...)
}

func (c *CLI) outputJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
