package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rbacgate/rbacgate/internal/app"
	"github.com/rbacgate/rbacgate/internal/bootstrap"
	"github.com/rbacgate/rbacgate/internal/credential"
	"github.com/rbacgate/rbacgate/internal/platform/db"
)

func bootstrapCommand(rt *runtime) *cobra.Command {
	var admin bootstrap.Admin
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the admin role, built-in permissions and the first admin user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := rt.openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			var res bootstrap.Result
			err = db.WithTx(ctx, pool, func(tx db.DBTX) error {
				repos := app.PostgresRepositories(tx)
				seeder := bootstrap.Seeder{
					Roles:       repos.Roles,
					Permissions: repos.Permissions,
					Users:       repos.Users,
					Hasher:      credential.NewBcryptHasher(rt.cfg.BcryptCost),
				}
				res, err = seeder.Run(ctx, admin)
				return err
			})
			if err != nil {
				rt.logger.Error("bootstrap", slog.Any("error", err))
				return err
			}
			rt.logger.Info("bootstrap complete",
				slog.String("role_id", res.Role.ID),
				slog.String("user_id", res.User.ID),
				slog.Int("permissions", len(res.Permissions)),
				slog.Int("new_grants", res.CreatedGrants))
			printf(cmd, "admin user %s (%s) created with role %s\n", res.User.Username, res.User.ID, res.Role.Name)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&admin.Username, "username", "admin", "admin username")
	fs.StringVar(&admin.Email, "email", "", "admin email")
	fs.StringVar(&admin.Password, "password", "", "admin password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
