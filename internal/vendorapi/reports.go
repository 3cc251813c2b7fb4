package vendorapi

import (
	"context"
	"net/url"
	"strconv"
)

func (c *Client) ReportOrders(ctx context.Context, f ReportFilter, page, limit int) (*ReportPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	for k, v := range map[string]string{
		"storeId":  f.StoreID,
		"riderId":  f.RiderID,
		"status":   f.Status,
		"fromDate": f.FromDate,
		"toDate":   f.ToDate,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}

	var res ReportPage
	if err := c.get(ctx, "/api/vendor/reports/orders", q, &res); err != nil {
		return nil, err
	}
	if res.Orders == nil {
		res.Orders = []Order{}
	}
	if res.Pagination.TotalPages < 1 {
		res.Pagination.TotalPages = 1
	}
	return &res, nil
}
