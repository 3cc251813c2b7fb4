package vendorapi

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) ListRiders(ctx context.Context) ([]Rider, error) {
	var list listOf[Rider]
	if err := c.get(ctx, "/api/vendor/riders", nil, &list); err != nil {
		return nil, err
	}
	if list.Items == nil {
		return []Rider{}, nil
	}
	return list.Items, nil
}

func (c *Client) GetRider(ctx context.Context, riderID string) (*Rider, error) {
	var r Rider
	if err := c.get(ctx, "/api/vendor/riders/"+url.PathEscape(riderID), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) ChangeRiderStatus(ctx context.Context, riderID, status string) error {
	body := map[string]string{"status": status}
	return c.send(ctx, http.MethodPatch, "/api/vendor/riders/"+url.PathEscape(riderID)+"/status", body, nil)
}

// AssignRiderToStore assigns or moves a rider to a store.
func (c *Client) AssignRiderToStore(ctx context.Context, riderID, storeID string) error {
	body := map[string]string{"storeId": storeID}
	return c.send(ctx, http.MethodPatch, "/api/vendor/riders/"+url.PathEscape(riderID)+"/assign-store", body, nil)
}
