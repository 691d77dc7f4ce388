package cmd

import (
	"fmt"

	"github.com/example/studylog/internal/auth"
	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(newUserAddCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var username, password string

	c := &cobra.Command{
		Use:   "add",
		Short: "Add a local user (username/password)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, log, err := openStore(ctx, "cli")
			if err != nil {
				return err
			}
			defer d.Close()

			id, err := auth.NewStore(d).Register(ctx, username, password)
			if err != nil {
				return err
			}
			log.Debug().Int64("user_id", id).Msg("user created")
			fmt.Fprintf(cmd.OutOrStdout(), "created user %q id=%d\n", username, id)
			return nil
		},
	}

	c.Flags().StringVar(&username, "username", "", "username")
	c.Flags().StringVar(&password, "password", "", "password")
	_ = c.MarkFlagRequired("username")
	_ = c.MarkFlagRequired("password")
	return c
}
