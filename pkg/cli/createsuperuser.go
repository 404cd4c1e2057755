package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/critique/pkg/auth"
	"github.com/platinummonkey/critique/pkg/storage/postgres"
	"github.com/platinummonkey/critique/pkg/users"
)

// superuserCreator is implemented by *users.Service
type superuserCreator interface {
	EnsureSuperuser(ctx context.Context, username, email string) (*auth.User, bool, error)
}

func newCreateSuperuserCommand(load configLoader) *cobra.Command {
	var username, email string

	cmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create an administrator account",
		Long: `Create a superuser with the admin role. An existing account with the same
username and email is promoted instead; a username registered to another
email is an error.

The new account signs in through the normal confirmation code flow.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			cm, err := postgres.Open(cfg.StorageConfig(), newLogger(cfg))
			if err != nil {
				return err
			}
			defer cm.Close()

			svc := users.NewService(users.NewPostgresStore(cm))
			return createSuperuser(cmd.Context(), svc, cmd.OutOrStdout(), username, email)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username for the administrator")
	cmd.Flags().StringVar(&email, "email", "", "Email address for the administrator")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func createSuperuser(ctx context.Context, svc superuserCreator, out io.Writer, username, email string) error {
	user, created, err := svc.EnsureSuperuser(ctx, username, email)
	if err != nil {
		return fmt.Errorf("failed to create superuser: %w", err)
	}

	if created {
		fmt.Fprintf(out, "Superuser %s created\n", user.Username)
	} else {
		fmt.Fprintf(out, "User %s promoted to superuser\n", user.Username)
	}
	return nil
}
