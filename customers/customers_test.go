package customers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jrsteele09/go-shop-client/apiclient"
	"github.com/jrsteele09/go-shop-client/customers"
	shoperrors "github.com/jrsteele09/go-shop-client/internal/errors"
	"github.com/jrsteele09/go-shop-client/internal/testbackend"
	"github.com/jrsteele09/go-shop-client/users"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func bearer(access string) apiclient.Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return apiclient.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			req = req.Clone(req.Context())
			req.Header.Set("Authorization", "Bearer "+access)
			return next.RoundTrip(req)
		})
	}
}

func setupService(t *testing.T) (*customers.Service, *testbackend.Server) {
	t.Helper()

	backend := testbackend.New().Start()
	t.Cleanup(backend.Close)
	require.NoError(t, backend.AddUser(users.User{
		ID:     "u-tailor",
		UserID: "tailor01",
		Roles:  []users.Role{users.RoleBranchTailor},
	}, "password123"))
	backend.AddCustomers(testbackend.DemoCustomers()...)

	pair, err := backend.IssuePair("tailor01", time.Minute)
	require.NoError(t, err)

	client, err := apiclient.New(backend.BaseURL(),
		apiclient.WithLogger(zerolog.Nop()),
		apiclient.WithMiddleware(bearer(pair.AccessToken)),
	)
	require.NoError(t, err)
	return customers.NewService(client), backend
}

func TestListRequest_Query(t *testing.T) {
	tests := []struct {
		name string
		req  customers.ListRequest
		want string
	}{
		{"defaults", customers.DefaultListRequest(), "limit=20&page=1"},
		{"zero values", customers.ListRequest{}, "limit=20&page=1"},
		{"search", customers.SearchRequest(" 9123 ", 2), "limit=20&mobile=9123&page=2"},
		{"blank mobile omitted", customers.SearchRequest("   ", 0), "limit=20&page=1"},
		{"custom limit", customers.ListRequest{Page: 3, Limit: 5}, "limit=5&page=3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.req.Query().Encode())
		})
	}
}

func TestFormatMobile(t *testing.T) {
	require.Equal(t, "9123-4567", customers.FormatMobile("91234567"))
	require.Equal(t, "9123-4567", customers.FormatMobile("9123 4567"))
	require.Equal(t, "+65 8123 4567", customers.FormatMobile("+65 8123 4567"))
	require.Equal(t, "12345", customers.FormatMobile("12345"))
	require.Equal(t, "", customers.FormatMobile(""))
}

func TestDisplayName(t *testing.T) {
	require.Equal(t, "Aarav Mehta (CUST-0001)", customers.DisplayName(customers.Customer{Code: "CUST-0001", Name: "Aarav Mehta"}))
}

func TestCanAccess(t *testing.T) {
	require.True(t, customers.CanAccess([]users.Role{users.RoleSupervisor}))
	require.True(t, customers.CanAccess([]users.Role{users.RoleCashier, users.RoleBranchTailor}))
	require.False(t, customers.CanAccess([]users.Role{users.RoleCashier}))
	require.False(t, customers.CanAccess(nil))
}

func TestService_List(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	resp, err := service.List(ctx, customers.ListRequest{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Len(t, resp.Data.Customers, 2)
	require.Equal(t, customers.Pagination{
		CurrentPage:  1,
		TotalPages:   3,
		TotalItems:   5,
		ItemsPerPage: 2,
		HasNext:      true,
		HasPrevious:  false,
	}, resp.Data.Pagination)

	resp, err = service.List(ctx, customers.SearchRequest("98765", 1))
	require.NoError(t, err)
	require.Len(t, resp.Data.Customers, 1)
	require.Equal(t, "CUST-0002", resp.Data.Customers[0].Code)

	resp, err = service.List(ctx, customers.ListRequest{Page: 9, Limit: 2})
	require.NoError(t, err)
	require.Empty(t, resp.Data.Customers)
	require.True(t, resp.Data.Pagination.HasPrevious)
}

func TestService_Get(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	c, err := service.Get(ctx, "CUST-0003")
	require.NoError(t, err)
	require.Equal(t, "Kwame Mensah", c.Name)

	_, err = service.Get(ctx, "CUST-9999")
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	require.Equal(t, apiclient.KindNotFound, apiErr.Kind)
	require.Equal(t, "Customer Details not found.", apiErr.Message)
	require.Equal(t, "Customer Details", apiErr.Context)
}

func TestService_GetRejectsBadCodes(t *testing.T) {
	service, backend := setupService(t)

	for _, code := range []string{"", "   ", "CUST/0001"} {
		_, err := service.Get(context.Background(), code)
		require.ErrorIs(t, err, shoperrors.ErrInvalidRequest, code)
	}
	require.Zero(t, backend.Counts().Customers)
}

func TestService_ErrorsCarryContext(t *testing.T) {
	service, backend := setupService(t)

	backend.FailNext(testbackend.RouteCustomers, http.StatusServiceUnavailable)
	_, err := service.List(context.Background(), customers.DefaultListRequest())

	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	require.True(t, apiclient.IsServerError(err))
	require.Equal(t, "Customer Management", apiErr.Context)
	require.Equal(t, "Customer Management: Server is temporarily unavailable. Please try again later. (503)", err.Error())
}
