package service

import (
	"context"
	"errors"

	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type LoginAPI interface {
	Login(ctx context.Context, email, password string) (*domain.TokenResponse, error)
}

// AuthService проксирует логин в CampusFace API и читает claims токенов.
// TokenInspector реализуется через embedding ClaimsReader.
type AuthService struct {
	*auth.ClaimsReader
	api LoginAPI
}

func NewAuthService(api LoginAPI) *AuthService {
	return &AuthService{
		ClaimsReader: auth.NewClaimsReader(),
		api:          api,
	}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenResponse, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, domain.Fail("login response without token")
	}
	return resp, nil
}
