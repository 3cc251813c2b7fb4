package vendorapi

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) ListStores(ctx context.Context) ([]Store, error) {
	var list listOf[Store]
	if err := c.get(ctx, "/api/vendor/stores", nil, &list); err != nil {
		return nil, err
	}
	if list.Items == nil {
		return []Store{}, nil
	}
	return list.Items, nil
}

func (c *Client) CreateStore(ctx context.Context, in StoreInput) (*Store, error) {
	var s Store
	if err := c.send(ctx, http.MethodPost, "/api/vendor/stores", in, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) UpdateStore(ctx context.Context, storeID string, in StoreInput) (*Store, error) {
	var s Store
	if err := c.send(ctx, http.MethodPatch, "/api/vendor/stores/"+url.PathEscape(storeID), in, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) ChangeStoreStatus(ctx context.Context, storeID, status string) error {
	body := map[string]string{"status": status}
	return c.send(ctx, http.MethodPatch, "/api/vendor/stores/"+url.PathEscape(storeID)+"/status", body, nil)
}

func (c *Client) DeleteStore(ctx context.Context, storeID string) error {
	return c.send(ctx, http.MethodDelete, "/api/vendor/stores/"+url.PathEscape(storeID), nil, nil)
}
