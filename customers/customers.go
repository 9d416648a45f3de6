package customers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-shop-client/apiclient"
	shoperrors "github.com/jrsteele09/go-shop-client/internal/errors"
	"github.com/jrsteele09/go-shop-client/users"
)

const (
	Path = "/customers"

	DefaultPage  = 1
	DefaultLimit = 20
)

// Customer is a customer record mirrored from the ERP.
type Customer struct {
	Code     string `json:"name"`          // ERP customer code, the primary identifier
	Name     string `json:"customer_name"` // Display name
	MobileNo string `json:"mobile_no"`
}

// Pagination describes one page of a customer listing.
type Pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalItems   int  `json:"totalItems"`
	ItemsPerPage int  `json:"itemsPerPage"`
	HasNext      bool `json:"hasNext"`
	HasPrevious  bool `json:"hasPrevious"`
}

// ListData is the payload of GET /customers.
type ListData struct {
	Customers  []Customer `json:"customers"`
	Pagination Pagination `json:"pagination"`
}

// ListRequest selects a page, optionally filtered by mobile number.
type ListRequest struct {
	Page   int
	Limit  int
	Mobile string
}

func DefaultListRequest() ListRequest {
	return ListRequest{Page: DefaultPage, Limit: DefaultLimit}
}

// SearchRequest builds a mobile-number search for page.
func SearchRequest(mobile string, page int) ListRequest {
	if page < 1 {
		page = DefaultPage
	}
	return ListRequest{Page: page, Limit: DefaultLimit, Mobile: mobile}
}

// Query encodes the request. A blank mobile filter is omitted.
func (r ListRequest) Query() url.Values {
	page, limit := r.Page, r.Limit
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if mobile := strings.TrimSpace(r.Mobile); mobile != "" {
		q.Set("mobile", mobile)
	}
	return q
}

// Service reads customers through an authenticated API client.
type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

// List returns one page of customers.
func (s *Service) List(ctx context.Context, req ListRequest) (*apiclient.Response[ListData], error) {
	resp, err := apiclient.Get[ListData](ctx, s.client, Path, req.Query())
	if err != nil {
		return nil, apiclient.Handle(err, "Customer Management")
	}
	return resp, nil
}

// Get returns a single customer by ERP code.
func (s *Service) Get(ctx context.Context, code string) (*Customer, error) {
	code = strings.TrimSpace(code)
	if code == "" || strings.Contains(code, "/") {
		return nil, shoperrors.Wrapf(shoperrors.ErrInvalidRequest, "customer code %q", code)
	}
	resp, err := apiclient.Get[Customer](ctx, s.client, Path+"/"+code, nil)
	if err != nil {
		return nil, apiclient.Handle(err, "Customer Details")
	}
	return &resp.Data, nil
}

// CanAccess reports whether any of roles may manage customers.
func CanAccess(roles []users.Role) bool {
	u := users.User{Roles: roles}
	return u.HasAnyRole(users.RoleSupervisor, users.RoleBranchTailor)
}

// DisplayName renders "<name> (<code>)".
func DisplayName(c Customer) string {
	return fmt.Sprintf("%s (%s)", c.Name, c.Code)
}

// FormatMobile renders an 8 digit number as XXXX-XXXX. Anything else is
// returned as given.
func FormatMobile(mobile string) string {
	if mobile == "" {
		return ""
	}
	var digits strings.Builder
	for _, r := range mobile {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	cleaned := digits.String()
	if len(cleaned) == 8 {
		return cleaned[:4] + "-" + cleaned[4:]
	}
	return mobile
}
