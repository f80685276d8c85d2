package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rbacgate/rbacgate/cmd/rbacgate/cli"
	"github.com/rbacgate/rbacgate/internal/app"
	"github.com/rbacgate/rbacgate/jobs"
)

func purgeSessionsCommand(rt *runtime) *cobra.Command {
	var inline bool
	cmd := &cobra.Command{
		Use:   "purge-sessions",
		Short: "Remove expired sessions, by default through the job queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if inline {
				pool, err := rt.openPool(ctx)
				if err != nil {
					return err
				}
				defer pool.Close()
				store, closeStore, err := app.OpenSessionStore(ctx, rt.cfg, pool)
				if err != nil {
					return err
				}
				defer closeStore()
				removed, err := app.NewSessionManager(rt.cfg, store).PurgeExpired(ctx)
				if err != nil {
					rt.logger.Error("purge sessions", slog.Any("error", err))
					return err
				}
				printf(cmd, "removed %d expired sessions\n", removed)
				return nil
			}

			jc, err := cli.NewJobsCLI(rt.cfg.Redis().Queue())
			if err != nil {
				return err
			}
			defer jc.Close()
			info, err := jc.Trigger(ctx, jobs.TaskPurgeSessions)
			if err != nil {
				rt.logger.Error("enqueue purge", slog.Any("error", err))
				return err
			}
			if info == nil {
				printf(cmd, "a purge is already queued\n")
				return nil
			}
			printf(cmd, "enqueued %s as %s\n", info.Type, info.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&inline, "inline", false, "purge directly instead of enqueueing a job")
	return cmd
}

func jobsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the background job queue",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print queue depth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jc, err := cli.NewJobsCLI(rt.cfg.Redis().Queue())
			if err != nil {
				return err
			}
			defer jc.Close()
			stats, err := jc.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			printf(cmd, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
				stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
			return nil
		},
	})
	return cmd
}
