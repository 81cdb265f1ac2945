package connectors

import (
	"context"
	"net/http"

	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
)

// Login обменивает email/пароль на токен API.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.TokenResponse, error) {
	var out domain.TokenResponse
	err := c.call(ctx, http.MethodPost, "/auth/login", auth.Credential{},
		domain.LoginRequest{Email: email, Password: password}, &out, true)
	if err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, domain.Fail("login response has no token")
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) (*domain.TokenResponse, error) {
	var out domain.TokenResponse
	if err := c.call(ctx, http.MethodPost, "/auth/register", auth.Credential{}, req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}
