package connectors

import (
	"context"
	"net/http"
	"net/url"

	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
)

func (c *Client) GetUser(ctx context.Context, cred auth.Credential, id string) (*domain.User, error) {
	var out domain.User
	if err := c.call(ctx, http.MethodGet, "/users/"+url.PathEscape(id), cred, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfileImage - PATCH multipart с полем image.
func (c *Client) UpdateProfileImage(ctx context.Context, cred auth.Credential, id string, image []byte) error {
	req, err := c.newMultipartRequest(ctx, http.MethodPatch, "/users/"+url.PathEscape(id)+"/image", cred, nil, "image", "profile.jpg", image)
	if err != nil {
		return err
	}
	return c.doNoEnvelope(req)
}

func (c *Client) DeleteUser(ctx context.Context, cred auth.Credential, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), cred, nil)
	if err != nil {
		return err
	}
	return c.doNoEnvelope(req)
}
