package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jrsteele09/go-shop-client/internal/config"
	shoperrors "github.com/jrsteele09/go-shop-client/internal/errors"
	"github.com/jrsteele09/go-shop-client/internal/testbackend"
	"github.com/stretchr/testify/require"
)

type cliFixture struct {
	backend   *testbackend.Server
	tokenFile string
}

func setupCLI(t *testing.T) *cliFixture {
	t.Helper()

	cfg, err := config.New()
	require.NoError(t, err)
	c := &cli{cfg: cfg, logger: newLogger(io.Discard, "error")}
	backend, err := newDemoBackend(c, "password123")
	require.NoError(t, err)
	backend.Start()
	t.Cleanup(backend.Close)

	tokenFile := filepath.Join(t.TempDir(), "tokens.json")
	t.Setenv("API_URL", backend.BaseURL())
	t.Setenv("TOKEN_STORAGE", "file")
	t.Setenv("TOKEN_FILE", tokenFile)
	t.Setenv("LOG_LEVEL", "error")
	return &cliFixture{backend: backend, tokenFile: tokenFile}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--env-file="}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_SessionLifecycle(t *testing.T) {
	f := setupCLI(t)

	out, err := execute(t, "", "login", "--user", "tailor01", "--password", "password123")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as Joseph Tan (tailor01)")
	require.Contains(t, out, "-> /dashboard/role-selector")

	out, err = execute(t, "", "roles")
	require.NoError(t, err)
	require.Contains(t, out, "Branch Tailor operations")
	require.Contains(t, out, "Supervisor operations")

	out, err = execute(t, "", "roles", "select", "Branch Tailor")
	require.NoError(t, err)
	require.Contains(t, out, "-> /dashboard/branch-tailor")

	out, err = execute(t, "", "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "Selected: Branch Tailor")
	require.Contains(t, out, "Branch:   Tampines")
	require.Contains(t, out, "Dashboard  /dashboard/branch-tailor\n")
	require.Contains(t, out, "Measurements  /dashboard/measurements (coming soon)")
	require.NotContains(t, out, "Orders")

	out, err = execute(t, "", "customers", "list", "--mobile", "98765")
	require.NoError(t, err)
	require.Contains(t, out, "CUST-0002")
	require.Contains(t, out, "9876-5432")
	require.Contains(t, out, "Page 1 of 1 (1 customers)")

	out, err = execute(t, "", "customers", "get", "CUST-0001")
	require.NoError(t, err)
	require.Contains(t, out, "Aarav Mehta (CUST-0001)")

	out, err = execute(t, "", "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Signed out")
	require.Equal(t, 1, f.backend.Counts().Logout)

	_, err = execute(t, "", "whoami")
	require.ErrorIs(t, err, shoperrors.ErrNotAuthenticated)
}

func TestCLI_LoginReadsPasswordFromStdin(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "password123\n", "login", "-u", "cashier01")
	require.NoError(t, err)
	require.Contains(t, out, "-> /dashboard/cashier")
}

func TestCLI_LoginRejected(t *testing.T) {
	setupCLI(t)

	_, err := execute(t, "", "login", "-u", "cashier01", "-p", "wrong")
	require.Error(t, err)

	_, err = execute(t, "", "whoami")
	require.ErrorIs(t, err, shoperrors.ErrNotAuthenticated)
}

func TestCLI_CustomersNeedRole(t *testing.T) {
	f := setupCLI(t)

	_, err := execute(t, "", "login", "-u", "cashier01", "-p", "password123")
	require.NoError(t, err)

	_, err = execute(t, "", "customers", "list")
	require.ErrorContains(t, err, "customer management needs")
	require.Zero(t, f.backend.Counts().Customers)
}

func TestCLI_RefreshesAcrossInvocations(t *testing.T) {
	f := setupCLI(t)

	_, err := execute(t, "", "login", "-u", "supervisor01", "-p", "password123")
	require.NoError(t, err)

	// The stored access token still looks fresh locally but the server no
	// longer accepts it.
	f.backend.RevokeAccessTokens()

	out, err := execute(t, "", "customers", "list")
	require.NoError(t, err)
	require.Contains(t, out, "Page 1 of 1 (5 customers)")
	require.Equal(t, 1, f.backend.Counts().Refresh)
}

func TestCLI_RolesSelectUnknownRole(t *testing.T) {
	setupCLI(t)

	_, err := execute(t, "", "roles", "select", "Astronaut")
	require.ErrorContains(t, err, `unknown role "Astronaut"`)
}

func TestOpenStorage(t *testing.T) {
	t.Setenv("TOKEN_STORAGE", "memory")
	cfg, err := config.New()
	require.NoError(t, err)
	kv, closeFn, err := openStorage(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, kv.SetMany(context.Background(), map[string]string{"k": "v"}))
	require.NoError(t, closeFn())

	t.Setenv("TOKEN_STORAGE", "file")
	t.Setenv("TOKEN_FILE", filepath.Join(t.TempDir(), "tokens.json"))
	t.Setenv("TOKEN_ENCRYPTION_KEY", "not-hex")
	cfg, err = config.New()
	require.NoError(t, err)
	_, _, err = openStorage(context.Background(), cfg)
	require.Error(t, err)
}

func TestNewLogger_FallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "chatty")
	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
}
