package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/jrsteele09/go-shop-client/dashboard"
	"github.com/jrsteele09/go-shop-client/users"
	"github.com/spf13/cobra"
)

func newRolesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "List the dashboards available to the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := c.openSession(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.close()

			user, err := s.restore(ctx)
			if err != nil {
				return err
			}
			selected, err := s.manager.Store().SelectedRole(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "\tROLE\tDESCRIPTION\tROUTE\tDEVICE")
			for _, opt := range dashboard.RoleOptions(user) {
				marker := ""
				if opt.Role == selected {
					marker = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", marker, opt.Role, opt.Description, opt.Route, opt.Device)
			}
			return tw.Flush()
		},
	}
	cmd.AddCommand(newRolesSelectCmd(c))
	return cmd
}

func newRolesSelectCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "select <role>",
		Short: "Choose the role whose dashboard to use",
		Example: `  shopctl roles select Cashier
  shopctl roles select "Branch Tailor"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := users.Role(args[0])
			if !role.IsKnown() {
				return fmt.Errorf("unknown role %q", args[0])
			}

			ctx := cmd.Context()
			s, err := c.openSession(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.close()

			user, err := s.restore(ctx)
			if err != nil {
				return err
			}
			route, err := s.policy.Select(ctx, user, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s selected\n-> %s\n", dashboard.Title(role), route)
			return nil
		},
	}
}
