package cli

import (
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"parcelhop/internal/config"
	"parcelhop/migrations"
)

var migrateStatus bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Print migration status instead of applying")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	if env.Storage != config.StorageMySQL {
		return fmt.Errorf("migrate requires STORAGE=%s", config.StorageMySQL)
	}
	ctx := cmd.Context()
	db, err := config.ConnectDB(ctx, env.DBDSN, env.DBMaxOpenConns)
	if err != nil {
		return err
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectMySQL, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}

	out := cmd.OutOrStdout()
	if migrateStatus {
		statuses, err := provider.Status(ctx)
		if err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		for _, s := range statuses {
			fmt.Fprintf(out, "%05d %-8s %s\n", s.Source.Version, s.State, s.Source.Path)
		}
		return nil
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	for _, r := range results {
		fmt.Fprintf(out, "applied %05d %s (%s)\n", r.Source.Version, r.Source.Path, r.Duration)
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "no pending migrations")
	}
	return nil
}
