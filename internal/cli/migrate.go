package cli

import (
	"context"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ksred/fullstack-boilerplate/internal/database"
	"github.com/ksred/fullstack-boilerplate/internal/models"
	"github.com/ksred/fullstack-boilerplate/internal/utils"
)

var (
	appliedMarker = color.New(color.FgGreen, color.Bold).SprintFunc()
	pendingMarker = color.New(color.FgYellow, color.Bold).SprintFunc()
	removedMarker = color.New(color.FgRed, color.Bold).SprintFunc()
)

func (c *CLI) runMigrate(ctx context.Context) error {
	return c.withRunner(func(runner *database.MigrationRunner) error {
		applied, err := runner.Run(ctx)
		if err != nil {
			return err
		}

		if c.jsonOutput {
			return c.outputJSON(map[string]int{"applied": applied})
		}
		if applied == 0 {
			c.println("Database is up to date")
			return nil
		}
		c.printf("Applied %d migration(s)\n", applied)
		return nil
	})
}

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStatus(cmd.Context())
		},
	}
}

func (c *CLI) runStatus(ctx context.Context) error {
	return c.withRunner(func(runner *database.MigrationRunner) error {
		status, err := runner.Status(ctx)
		if err != nil {
			return err
		}

		if c.jsonOutput {
			return c.outputJSON(status)
		}

		c.println("Migration status:")
		for _, m := range status.Migrations {
			if m.Applied {
				c.printf("  %s %d_%s  (applied %s)\n", appliedMarker("[✓]"), m.Version, m.Name, m.AppliedAt.Format("2006-01-02 15:04:05"))
			} else {
				c.printf("  %s %d_%s  (pending)\n", pendingMarker("[ ]"), m.Version, m.Name)
			}
		}
		for _, v := range status.Untracked {
			c.printf("  %s %d  (recorded, no file)\n", removedMarker("[-]"), v)
		}

		c.printf("\nTotal: %d migrations, %d pending\n", status.Total, status.Pending)
		return nil
	})
}

func (c *CLI) newRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback [N]",
		Short: "Forget the last N applied migrations (default 1)",
		Long: `Remove the ledger records of the N most recently applied migrations.

No down statements are executed: tables, columns and data created by those
migrations stay in place, and the migrations will run again on the next migrate.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return utils.InvalidFieldError("steps", "must be a positive integer, got "+strconv.Quote(args[0]))
				}
				steps = n
			}
			return c.runRollback(cmd.Context(), steps)
		},
	}
}

func (c *CLI) runRollback(ctx context.Context, steps int) error {
	return c.withRunner(func(runner *database.MigrationRunner) error {
		removed, err := runner.Rollback(ctx, steps)
		if err != nil {
			return err
		}

		if c.jsonOutput {
			if removed == nil {
				removed = []models.MigrationRecord{}
			}
			return c.outputJSON(removed)
		}
		if len(removed) == 0 {
			c.println("Nothing to roll back")
			return nil
		}
		for _, r := range removed {
			c.printf("  %s %d_%s\n", removedMarker("[-]"), r.Version, r.Name)
		}
		c.printf("Rolled back %d migration(s)\n", len(removed))
		return nil
	})
}

func (c *CLI) newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty migration file with the next version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.newRunner(nil).CreateDefinition(args[0])
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return c.outputJSON(map[string]string{"file": path})
			}
			c.printf("Created %s\n", path)
			return nil
		},
	}
}
