package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/jrsteele09/go-shop-client/customers"
	"github.com/jrsteele09/go-shop-client/dashboard"
	"github.com/jrsteele09/go-shop-client/users"
	"github.com/spf13/cobra"
)

func newCustomersCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "Browse customers (Supervisor and Branch Tailor)",
	}
	cmd.AddCommand(newCustomersListCmd(c), newCustomersGetCmd(c))
	return cmd
}

// openCustomers restores the session and checks the user may see customers.
func (c *cli) openCustomers(cmd *cobra.Command) (*customers.Service, func() error, error) {
	ctx := cmd.Context()
	s, err := c.openSession(ctx, cmd.OutOrStdout())
	if err != nil {
		return nil, nil, err
	}
	user, err := s.restore(ctx)
	if err != nil {
		_ = s.close()
		return nil, nil, err
	}
	if !customers.CanAccess(user.Roles) {
		_ = s.close()
		return nil, nil, fmt.Errorf("customer management needs the %s or %s role", users.RoleSupervisor, users.RoleBranchTailor)
	}
	return customers.NewService(s.manager.Client()), s.close, nil
}

func newCustomersListCmd(c *cli) *cobra.Command {
	req := customers.DefaultListRequest()
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List customers, optionally searching by mobile number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			service, closeFn, err := c.openCustomers(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			resp, err := service.List(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tNAME\tMOBILE")
			for _, cust := range resp.Data.Customers {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", cust.Code, cust.Name, customers.FormatMobile(cust.MobileNo))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			p := resp.Data.Pagination
			fmt.Fprintf(out, "Page %d of %d (%d customers)\n", p.CurrentPage, max(p.TotalPages, 1), p.TotalItems)
			return nil
		},
	}
	cmd.Flags().IntVar(&req.Page, "page", customers.DefaultPage, "page number")
	cmd.Flags().IntVar(&req.Limit, "limit", customers.DefaultLimit, "customers per page")
	cmd.Flags().StringVar(&req.Mobile, "mobile", "", "mobile number to search for")
	return cmd
}

func newCustomersGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Show one customer by ERP code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, closeFn, err := c.openCustomers(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			cust, err := service.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, customers.DisplayName(*cust))
			fmt.Fprintf(out, "Mobile: %s\n", customers.FormatMobile(cust.MobileNo))
			fmt.Fprintf(out, "-> %s/%s\n", dashboard.RouteCustomers, cust.Code)
			return nil
		},
	}
}
