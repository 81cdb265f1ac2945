package connectors

import (
	"context"
	"net/http"

	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
)

type codeBody struct {
	Code string `json:"code"`
}

type generateBody struct {
	OrganizationID string `json:"organizationId"`
}

type generatedCodeDTO struct {
	Code           string `json:"code"`
	ExpirationTime string `json:"expirationTime"`
}

// GenerateQRCode выдает участнику одноразовый код доступа в хаб.
func (c *Client) GenerateQRCode(ctx context.Context, cred auth.Credential, orgID string) (*domain.AccessCode, error) {
	var dto generatedCodeDTO
	if err := c.call(ctx, http.MethodPost, "/validate/qr-code/generate", cred, generateBody{OrganizationID: orgID}, &dto, true); err != nil {
		return nil, err
	}
	exp := domain.ParseTime(dto.ExpirationTime)
	if exp.IsZero() {
		return nil, domain.Failf("malformed response: bad expirationTime %q", dto.ExpirationTime)
	}
	return &domain.AccessCode{Code: dto.Code, ExpirationTime: exp}, nil
}

// ValidateQRCode - проверка кода валидатором на входе.
func (c *Client) ValidateQRCode(ctx context.Context, cred auth.Credential, code string) (*domain.Validation, error) {
	var out domain.Validation
	if err := c.call(ctx, http.MethodPost, "/validate/qr-code", cred, codeBody{Code: code}, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) InvalidateQRCode(ctx context.Context, cred auth.Credential, code string) error {
	return c.call(ctx, http.MethodPost, "/validate/qr-code/invalidate", cred, codeBody{Code: code}, nil, false)
}
