package vendorapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dropline/vendor-console/internal/bulk"
)

func (c *Client) ListOrders(ctx context.Context, f OrderFilter) (*OrderPage, error) {
	q := url.Values{}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}

	var list listOf[Order]
	if err := c.get(ctx, "/api/vendor/orders", q, &list); err != nil {
		return nil, err
	}

	page := &OrderPage{Items: list.Items}
	if page.Items == nil {
		page.Items = []Order{}
	}
	if list.Pagination != nil {
		page.Pagination = *list.Pagination
	} else {
		page.Pagination = Pagination{Page: 1, Limit: f.Limit, Total: len(page.Items), TotalPages: 1}
	}
	return page, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	if err := c.get(ctx, "/api/vendor/orders/"+url.PathEscape(orderID), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) CreateOrder(ctx context.Context, req bulk.ParsedOrderRequest) (*Order, error) {
	var o Order
	if err := c.send(ctx, http.MethodPost, "/api/vendor/orders", req, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrdersBulk posts a whole batch in one request. The platform accepts
// or rejects the batch as a unit.
func (c *Client) CreateOrdersBulk(ctx context.Context, batch bulk.BulkCreateRequest) (*BulkCreateResult, error) {
	var res BulkCreateResult
	if err := c.send(ctx, http.MethodPost, "/api/vendor/orders/bulk", batch, &res); err != nil {
		return nil, err
	}
	if res.Created == 0 && len(res.Orders) > 0 {
		res.Created = len(res.Orders)
	}
	return &res, nil
}

func (c *Client) AssignRider(ctx context.Context, orderID, riderID string) (*Order, error) {
	body := map[string]string{"driverId": riderID}
	var o Order
	if err := c.send(ctx, http.MethodPost, "/api/vendor/orders/"+url.PathEscape(orderID)+"/assign-driver", body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID, reason string) error {
	body := map[string]string{"reason": reason}
	return c.send(ctx, http.MethodPost, "/api/vendor/orders/"+url.PathEscape(orderID)+"/cancel", body, nil)
}

func (c *Client) NearbyDrivers(ctx context.Context, orderID string) ([]NearbyDriver, error) {
	var list listOf[NearbyDriver]
	if err := c.get(ctx, "/api/vendor/orders/"+url.PathEscape(orderID)+"/nearby-drivers", nil, &list); err != nil {
		return nil, err
	}
	if list.Items == nil {
		return []NearbyDriver{}, nil
	}
	return list.Items, nil
}
