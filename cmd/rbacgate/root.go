package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/rbacgate/rbacgate/internal/app"
	"github.com/rbacgate/rbacgate/internal/platform/db"
)

// runtime carries what every subcommand needs once configuration is loaded.
type runtime struct {
	cfg    *app.Config
	logger *slog.Logger
}

func (rt *runtime) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := db.New(ctx, rt.cfg.PGDSN, rt.cfg.PGMaxConns)
	if err != nil {
		rt.logger.Error("connect postgres", slog.Any("error", err))
		return nil, err
	}
	return pool, nil
}

func newRootCommand() *cobra.Command {
	rt := &runtime{}
	root := &cobra.Command{
		Use:           "rbacgate",
		Short:         "Session-backed role based access control service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				slog.Default().Error("load config", slog.Any("error", err))
				return err
			}
			rt.cfg = cfg
			rt.logger = app.NewLogger(cfg)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rt)
		},
	}
	root.AddCommand(
		serveCommand(rt),
		migrateCommand(rt),
		bootstrapCommand(rt),
		purgeSessionsCommand(rt),
		jobsCommand(rt),
	)
	return root
}

func serveCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rt)
		},
	}
}

func printf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
