package connectors

import (
	"context"
	"net/http"
	"net/url"

	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
)

func (c *Client) ListMembers(ctx context.Context, cred auth.Credential, orgID string) ([]domain.Member, error) {
	out := make([]domain.Member, 0)
	if err := c.call(ctx, http.MethodGet, "/members/organization/"+url.PathEscape(orgID), cred, nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetMember(ctx context.Context, cred auth.Credential, memberID string) (*domain.Member, error) {
	var out domain.Member
	if err := c.call(ctx, http.MethodGet, "/members/"+url.PathEscape(memberID), cred, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMember меняет роль и/или статус. Пустые поля не трогаются.
func (c *Client) UpdateMember(ctx context.Context, cred auth.Credential, memberID string, upd domain.MemberUpdate) (*domain.Member, error) {
	var out domain.Member
	if err := c.call(ctx, http.MethodPut, "/members/"+url.PathEscape(memberID), cred, upd, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMember - сервер отвечает 200 без конверта, тело не разбираем.
func (c *Client) DeleteMember(ctx context.Context, cred auth.Credential, memberID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/members/"+url.PathEscape(memberID), cred, nil)
	if err != nil {
		return err
	}
	return c.doNoEnvelope(req)
}
