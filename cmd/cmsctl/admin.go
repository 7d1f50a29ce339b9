package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ridepool/cms/internal/authpw"
	"ridepool/cms/internal/rbac"
)

const passwordEnv = "CMSCTL_PASSWORD"

func newAdminCmd(c *cli) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Manage CMS accounts",
	}
	admin.AddCommand(newAdminCreateCmd(c), newAdminListCmd(c))
	return admin
}

func newAdminCreateCmd(c *cli) *cobra.Command {
	var email, name, role, password string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a CMS account",
		Long: `Create a CMS account with a bcrypt password hash.

The password is read from --password or, when that is empty, from the
CMSCTL_PASSWORD environment variable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv(passwordEnv)
			}
			if password == "" {
				return errors.New("no password given; use --password or " + passwordEnv)
			}
			parsed, ok := rbac.Parse(role)
			if !ok {
				return fmt.Errorf("role must be viewer, editor or admin, got %q", role)
			}

			ctx, cancel := c.context(cmd)
			defer cancel()
			st, closeStore, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			user, err := authpw.NewService(st).CreateAdmin(ctx, authpw.CreateRequest{
				Email:       email,
				Password:    password,
				DisplayName: name,
				Role:        parsed,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Login email")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&role, "role", string(rbac.RoleAdmin), "Role: viewer, editor or admin")
	cmd.Flags().StringVar(&password, "password", "", "Password (prefer "+passwordEnv+")")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newAdminListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List CMS accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()
			st, closeStore, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			users, err := st.ListUsers(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EMAIL\tROLE\tSTATUS")
			for _, u := range users {
				status := "active"
				if u.DeactivatedAt != nil {
					status = "deactivated"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", u.Email, u.Role, status)
			}
			return w.Flush()
		},
	}
}
