package connectors

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
)

// changeRequestDTO - заявка на замену фото в формате API.
type changeRequestDTO struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	RequestedAt    string `json:"requestedAt"`
	OrganizationID string `json:"organizationId"`
	UserID         string `json:"userId"`
	UserFullName   string `json:"userFullName"`
	CurrentFaceURL string `json:"currentFaceUrl"`
	NewFaceURL     string `json:"newFaceUrl"`
}

func (d changeRequestDTO) toDomain() domain.Request {
	return domain.Request{
		ID:             d.ID,
		Kind:           domain.KindChange,
		Scope:          d.OrganizationID,
		Subject:        domain.Subject{UserID: d.UserID, FullName: nonEmpty(d.UserFullName, "Usuário")},
		Status:         domain.RequestStatus(strings.ToUpper(d.Status)),
		CurrentFaceURL: d.CurrentFaceURL,
		NewFaceURL:     d.NewFaceURL,
		RequestedAt:    domain.ParseTime(d.RequestedAt),
	}
}

type reviewBody struct {
	Approved bool `json:"approved"`
}

// CreateChangeRequest загружает новое фото (JPEG) как заявку на замену.
func (c *Client) CreateChangeRequest(ctx context.Context, cred auth.Credential, orgID string, image []byte) (*domain.Request, error) {
	fields := map[string]string{"organizationId": orgID}
	req, err := c.newMultipartRequest(ctx, http.MethodPost, "/change-requests/create", cred, fields, "image", "new_face.jpg", image)
	if err != nil {
		return nil, err
	}
	var dto changeRequestDTO
	if err := c.do(req, &dto, true); err != nil {
		return nil, err
	}
	r := dto.toDomain()
	return &r, nil
}

func (c *Client) listChangeRequests(ctx context.Context, cred auth.Credential, orgID string) ([]domain.Request, error) {
	var dtos []changeRequestDTO
	if err := c.call(ctx, http.MethodGet, "/change-requests/organization/"+url.PathEscape(orgID), cred, nil, &dtos, false); err != nil {
		return nil, err
	}
	out := make([]domain.Request, 0, len(dtos))
	for _, d := range dtos {
		r := d.toDomain()
		if r.Scope == "" {
			r.Scope = orgID
		}
		out = append(out, r)
	}
	return out, nil
}

// reviewChangeRequest - один эндпоинт на оба решения.
func (c *Client) reviewChangeRequest(ctx context.Context, cred auth.Credential, id string, approved bool) error {
	return c.call(ctx, http.MethodPost, "/change-requests/"+url.PathEscape(id)+"/review", cred, reviewBody{Approved: approved}, nil, false)
}
