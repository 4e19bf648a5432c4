package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Anmol-345/Arcanus/internal/model"
)

// User resolves the access token via the auth service's user endpoint.
func (c *Client) User(ctx context.Context, accessToken string) (model.User, error) {
	req, err := c.newRequest(http.MethodGet, "/auth/v1/user", nil)
	if err != nil {
		return model.User{}, err
	}
	req = req.WithContext(ctx)

	var user model.User
	if err := c.do(req, accessToken, &user); err != nil {
		return model.User{}, fmt.Errorf("platform/rest: get user: %w", err)
	}
	return user, nil
}

// SignOut revokes the session behind the token. The platform invalidates the
// refresh chain; the caller only drops its copy.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	req, err := c.newRequest(http.MethodPost, "/auth/v1/logout", nil)
	if err != nil {
		return err
	}
	req = req.WithContext(ctx)

	if err := c.do(req, accessToken, nil); err != nil {
		return fmt.Errorf("platform/rest: sign out: %w", err)
	}
	return nil
}
