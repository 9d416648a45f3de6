package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/go-shop-client/dashboard"
	"github.com/spf13/cobra"
)

func newLoginCmd(c *cli) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session tokens",
		Long: `Sign in with an ERP user id. The password is read from --password or,
when omitted, from the first line of standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				line, err := readLine(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = line
			}

			ctx := cmd.Context()
			s, err := c.openSession(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.close()

			if _, err := s.manager.Login(ctx, username, password); err != nil {
				return err
			}
			user := s.manager.CurrentUser()
			route, err := s.policy.Land(ctx, user)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Signed in as %s (%s)\n", user.DisplayName, user.UserID)
			if route == dashboard.RouteRoleSelector {
				fmt.Fprintln(out, "Choose a role with: shopctl roles select <role>")
			}
			fmt.Fprintf(out, "-> %s\n", route)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "ERP user id")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := c.openSession(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.close()

			// The local session is cleared even when the server call fails.
			if err := s.manager.Logout(ctx); err != nil {
				c.logger.Warn().Err(err).Msg("server logout failed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
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

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:     %s\n", user.DisplayName)
			fmt.Fprintf(out, "User ID:  %s\n", user.UserID)
			if user.Branch != "" {
				fmt.Fprintf(out, "Branch:   %s\n", user.Branch)
			}
			roles := make([]string, len(user.Roles))
			for i, r := range user.Roles {
				roles[i] = string(r)
			}
			fmt.Fprintf(out, "Roles:    %s\n", strings.Join(roles, ", "))
			if selected != "" {
				fmt.Fprintf(out, "Selected: %s\n", selected)
				for _, m := range dashboard.ModulesFor(selected) {
					status := ""
					if m.ComingSoon {
						status = " (coming soon)"
					}
					fmt.Fprintf(out, "  %s %s  %s%s\n", m.Icon, m.Title, m.Route, status)
				}
			}
			fmt.Fprintf(out, "State:    %s\n", s.manager.State())
			return nil
		},
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
