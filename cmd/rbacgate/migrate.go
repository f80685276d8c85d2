package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rbacgate/rbacgate/internal/platform/db"
)

func migrateCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Apply or roll back the embedded schema migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}

			pool, err := rt.openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			m, err := db.NewMigrator(pool)
			if err != nil {
				return err
			}
			defer m.Close()

			switch direction {
			case "up":
				err = m.Up()
			case "down":
				err = m.Down()
			}
			if err != nil {
				rt.logger.Error("migrate", slog.String("direction", direction), slog.Any("error", err))
				return err
			}

			version, dirty, err := m.Version()
			if err != nil {
				return fmt.Errorf("read schema version: %w", err)
			}
			rt.logger.Info("schema version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
			printf(cmd, "schema version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}
}
