package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aryan0dhankhar/deliveryhub/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/deliveryhub/pkg/config"
	"github.com/aryan0dhankhar/deliveryhub/pkg/database"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the database schema",
		Long:  "Reads the DB_* environment variables the server uses and runs the embedded migrations.",
	}
	for _, dir := range []database.Direction{database.Up, database.Down} {
		cmd.AddCommand(&cobra.Command{
			Use:   string(dir),
			Short: fmt.Sprintf("Run migrations %s", dir),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigrate(cmd, dir)
			},
		})
	}
	return cmd
}

func runMigrate(cmd *cobra.Command, dir database.Direction) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cmd.ErrOrStderr(), cfg.LogLevel)
	pool, err := database.NewConnectionPool(cmd.Context(), &cfg.Database, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.Migrate(cmd.Context(), pool.GetDB(), dir, log); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "migrations %s complete\n", dir)
	return nil
}
