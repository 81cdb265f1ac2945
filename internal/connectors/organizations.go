package connectors

import (
	"context"
	"net/http"

	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
)

func (c *Client) CreateOrganization(ctx context.Context, cred auth.Credential, req domain.OrganizationCreateRequest) (*domain.Organization, error) {
	var out domain.Organization
	if err := c.call(ctx, http.MethodPost, "/organizations", cred, req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyHubs - хабы, где текущий пользователь уже состоит.
func (c *Client) MyHubs(ctx context.Context, cred auth.Credential) ([]domain.Organization, error) {
	if cred.IsZero() {
		// проверяем до похода в сеть
		return nil, domain.Fail("invalid or missing token")
	}
	out := make([]domain.Organization, 0)
	if err := c.call(ctx, http.MethodGet, "/organizations/my-hubs", cred, nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}
