package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/morezero/runtime-ipc/pkg/db"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the journal schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply the SQL files in MIGRATION_PATH",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool, path string) error {
					migrations, err := db.LoadMigrationFiles(path)
					if err != nil {
						return err
					}
					return db.RunMigrations(ctx, pool, migrations)
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report whether the journal schema is present",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool, path string) error {
					applied, err := db.SchemaApplied(ctx, pool)
					if err != nil {
						return err
					}
					migrations, err := db.LoadMigrationFiles(path)
					if err != nil {
						return err
					}
					state := "not applied (run 'runtime-host migrate up')"
					if applied {
						state = "applied"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Migration status: %s. %d migration files in %s\n", state, len(migrations), path)
					return nil
				})
			},
		},
	)
	return cmd
}

func newJournalCmd() *cobra.Command {
	var limit int
	var prune time.Duration

	cmd := &cobra.Command{
		Use:   "journal [routing-id]",
		Short: "List recently handled messages, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			routingID := 0
			if len(args) == 1 {
				id, err := strconv.Atoi(args[0])
				if err != nil || id < 1 {
					return fmt.Errorf("invalid routing id %q", args[0])
				}
				routingID = id
			}

			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool, _ string) error {
				repo := db.NewRepository(pool)
				if prune > 0 {
					n, err := repo.PruneBefore(ctx, time.Now().Add(-prune))
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d messages older than %s\n", n, prune)
					return nil
				}

				msgs, err := repo.ListMessages(ctx, routingID, limit)
				if err != nil {
					return err
				}
				printMessages(cmd, msgs)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", db.DefaultListLimit, "maximum number of messages")
	cmd.Flags().DurationVar(&prune, "prune", 0, "delete messages older than this instead of listing")
	return cmd
}

func printMessages(cmd *cobra.Command, msgs []db.Message) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RECORDED\tROUTING\tMODE\tTYPE\tCALL\tREPLY\tERROR\tMS")
	for _, m := range msgs {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%d\n",
			m.Recorded.Format(time.RFC3339), m.RoutingID, m.Mode, m.Type,
			deref(m.CallID), deref(m.ReplyType), deref(m.ErrorCode), m.DurationMs)
	}
	w.Flush()
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

// withPool connects to DATABASE_URL and runs fn with the pool and MIGRATION_PATH.
func withPool(ctx context.Context, fn func(ctx context.Context, pool *pgxpool.Pool, migrationPath string) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	return fn(ctx, pool, cfg.MigrationPath)
}
