package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jrsteele09/go-shop-client/internal/testbackend"
	"github.com/jrsteele09/go-shop-client/users"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// demoUsers are seeded into the demo backend, one per common role mix.
var demoUsers = []users.User{
	{ID: "demo-1", UserID: "supervisor01", DisplayName: "Grace Lim", Roles: []users.Role{users.RoleSupervisor}, Branch: "Orchard", BranchCode: "ORC"},
	{ID: "demo-2", UserID: "cashier01", DisplayName: "Priya Nair", Roles: []users.Role{users.RoleCashier}, Branch: "Orchard", BranchCode: "ORC"},
	{ID: "demo-3", UserID: "tailor01", DisplayName: "Joseph Tan", Roles: []users.Role{users.RoleBranchTailor, users.RoleSupervisor}, Branch: "Tampines", BranchCode: "TAM"},
	{ID: "demo-4", UserID: "cutter01", DisplayName: "Ahmad Yusof", Roles: []users.Role{users.RoleCuttingMaster}},
	{ID: "demo-5", UserID: "driver01", DisplayName: "Wei Chen", Roles: []users.Role{users.RoleDriver, users.RolePackagingStaff}},
}

func newServeDemoCmd(c *cli) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "serve-demo",
		Short: "Run an in-memory shop backend for trying the client",
		Long: `Run an in-memory backend that implements the login, refresh, logout,
profile and customer endpoints under /api. Demo users: supervisor01,
cashier01, tailor01, cutter01 and driver01, all sharing one password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			displayAppname(cmd.OutOrStdout(), c.cfg.GetAppName())
			return runDemo(c, password)
		},
	}
	cmd.Flags().StringVar(&password, "password", "password123", "password for every demo user")
	return cmd
}

func newDemoBackend(c *cli, password string) (*testbackend.Server, error) {
	opts := []testbackend.Option{
		testbackend.WithLogger(c.logger),
		testbackend.WithAccessTTL(c.cfg.GetDemoAccessTokenExpiry()),
		testbackend.WithRefreshTTL(c.cfg.GetDemoRefreshTokenExpiry()),
	}
	if secret := c.cfg.GetDemoSecret(); secret != "" {
		opts = append(opts, testbackend.WithSecret(secret))
	}
	backend := testbackend.New(opts...)
	for _, u := range demoUsers {
		if err := backend.AddUser(u, password); err != nil {
			return nil, fmt.Errorf("seed user %s: %w", u.UserID, err)
		}
	}
	backend.AddCustomers(testbackend.DemoCustomers()...)
	return backend, nil
}

func runDemo(c *cli, password string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	backend, err := newDemoBackend(c, password)
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              c.cfg.GetPort(),
		Handler:           backend,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(c.logger, server) }()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	if err := shutdown(server); err != nil {
		return err
	}
	c.logger.Info().Msg("demo backend stopped")
	return nil
}

func listenAndServe(logger zerolog.Logger, server *http.Server) error {
	logger.Info().Str("addr", server.Addr).Str("api", "http://localhost"+server.Addr+testbackend.APIPrefix).Msg("demo backend listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe: %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
