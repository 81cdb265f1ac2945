package connectors

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
)

// entryRequestDTO - заявка на вступление в формате API.
type entryRequestDTO struct {
	ID          string      `json:"id"`
	HubCode     string      `json:"hubCode"`
	Role        string      `json:"role"`
	Status      string      `json:"status"`
	RequestedAt string      `json:"requestedAt"`
	User        domain.User `json:"user"`
}

func (d entryRequestDTO) toDomain(scope string) domain.Request {
	if scope == "" {
		scope = d.HubCode
	}
	return domain.Request{
		ID:          d.ID,
		Kind:        domain.KindEntry,
		Scope:       scope,
		Subject:     domain.Subject{UserID: d.User.ID, FullName: d.User.FullName, Email: d.User.Email},
		Status:      domain.RequestStatus(strings.ToUpper(d.Status)),
		Role:        domain.Role(strings.ToUpper(d.Role)),
		RequestedAt: domain.ParseTime(d.RequestedAt),
	}
}

type entryRequestCreateBody struct {
	HubCode string `json:"hubCode"`
	Role    string `json:"role,omitempty"`
}

// CreateEntryRequest подает заявку на вступление в хаб по его коду.
func (c *Client) CreateEntryRequest(ctx context.Context, cred auth.Credential, hubCode string, role domain.Role) (*domain.Request, error) {
	var dto entryRequestDTO
	body := entryRequestCreateBody{HubCode: hubCode, Role: strings.ToUpper(string(role))}
	if err := c.call(ctx, http.MethodPost, "/entry-requests/create", cred, body, &dto, true); err != nil {
		return nil, err
	}
	r := dto.toDomain("")
	return &r, nil
}

// MyEntryRequests - заявки текущего пользователя (любой статус).
func (c *Client) MyEntryRequests(ctx context.Context, cred auth.Credential) ([]domain.Request, error) {
	var dtos []entryRequestDTO
	if err := c.call(ctx, http.MethodGet, "/entry-requests/my-requests", cred, nil, &dtos, false); err != nil {
		return nil, err
	}
	out := make([]domain.Request, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain(""))
	}
	return out, nil
}

func (c *Client) listEntryRequests(ctx context.Context, cred auth.Credential, orgID string) ([]domain.Request, error) {
	var dtos []entryRequestDTO
	if err := c.call(ctx, http.MethodGet, "/entry-requests/organization/"+url.PathEscape(orgID), cred, nil, &dtos, false); err != nil {
		return nil, err
	}
	out := make([]domain.Request, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain(orgID))
	}
	return out, nil
}

func (c *Client) decideEntryRequest(ctx context.Context, cred auth.Credential, id string, approve bool) error {
	action := "reject"
	if approve {
		action = "approve"
	}
	return c.call(ctx, http.MethodPost, "/entry-requests/"+url.PathEscape(id)+"/"+action, cred, nil, nil, false)
}
