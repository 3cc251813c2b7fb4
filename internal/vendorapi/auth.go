package vendorapi

import (
	"context"
	"errors"
	"net/http"
)

// Login exchanges vendor credentials for an upstream token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body := map[string]string{"email": email, "password": password}
	var res LoginResult
	if err := c.send(ctx, http.MethodPost, "/api/vendor/auth/login", body, &res); err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, errors.New("login response carried no token")
	}
	return &res, nil
}
