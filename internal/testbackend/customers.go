package testbackend

import (
	"strings"

	"github.com/jrsteele09/go-shop-client/customers"
)

// pageCustomers filters by mobile substring and slices out page. page and
// limit are 1-based and positive.
func pageCustomers(all []customers.Customer, mobile string, page, limit int) customers.ListData {
	matched := make([]customers.Customer, 0, len(all))
	for _, c := range all {
		if mobile == "" || strings.Contains(c.MobileNo, mobile) {
			matched = append(matched, c)
		}
	}

	totalPages := (len(matched) + limit - 1) / limit
	start := (page - 1) * limit
	end := min(start+limit, len(matched))
	pageItems := []customers.Customer{}
	if start < len(matched) {
		pageItems = matched[start:end]
	}

	return customers.ListData{
		Customers: pageItems,
		Pagination: customers.Pagination{
			CurrentPage:  page,
			TotalPages:   totalPages,
			TotalItems:   len(matched),
			ItemsPerPage: limit,
			HasNext:      page < totalPages,
			HasPrevious:  page > 1,
		},
	}
}

// DemoCustomers is the customer list served by the demo backend.
func DemoCustomers() []customers.Customer {
	return []customers.Customer{
		{Code: "CUST-0001", Name: "Aarav Mehta", MobileNo: "91234567"},
		{Code: "CUST-0002", Name: "Nadia Rahman", MobileNo: "98765432"},
		{Code: "CUST-0003", Name: "Kwame Mensah", MobileNo: "+65 8123 4567"},
		{Code: "CUST-0004", Name: "Lucia Fernandes", MobileNo: "93334444"},
		{Code: "CUST-0005", Name: "Tomás Oliveira", MobileNo: "90001111"},
	}
}
