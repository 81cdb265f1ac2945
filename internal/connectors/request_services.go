package connectors

import (
	"context"

	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
)

// Три адаптера приводят разные эндпоинты API к одному контракту
// List/Approve/Reject, с которым работает reconcile.Holder.
// List отдает только заявки в статусе PENDING.

type EntryRequestService struct{ c *Client }

func (s EntryRequestService) List(ctx context.Context, cred auth.Credential, scope string) ([]domain.Request, error) {
	all, err := s.c.listEntryRequests(ctx, cred, scope)
	if err != nil {
		return nil, err
	}
	return pendingOnly(all), nil
}

func (s EntryRequestService) Approve(ctx context.Context, cred auth.Credential, id string) error {
	return s.c.decideEntryRequest(ctx, cred, id, true)
}

func (s EntryRequestService) Reject(ctx context.Context, cred auth.Credential, id string) error {
	return s.c.decideEntryRequest(ctx, cred, id, false)
}

type ChangeRequestService struct{ c *Client }

func (s ChangeRequestService) List(ctx context.Context, cred auth.Credential, scope string) ([]domain.Request, error) {
	all, err := s.c.listChangeRequests(ctx, cred, scope)
	if err != nil {
		return nil, err
	}
	return pendingOnly(all), nil
}

func (s ChangeRequestService) Approve(ctx context.Context, cred auth.Credential, id string) error {
	return s.c.reviewChangeRequest(ctx, cred, id, true)
}

func (s ChangeRequestService) Reject(ctx context.Context, cred auth.Credential, id string) error {
	return s.c.reviewChangeRequest(ctx, cred, id, false)
}

// MemberRequestService - участники в статусе PENDING как заявки.
// Одобрение переводит участника в ACTIVE, отказ удаляет его из хаба.
type MemberRequestService struct{ c *Client }

func (s MemberRequestService) List(ctx context.Context, cred auth.Credential, scope string) ([]domain.Request, error) {
	members, err := s.c.ListMembers(ctx, cred, scope)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Request, 0, len(members))
	for _, m := range members {
		if m.Status != domain.MemberPending {
			continue
		}
		out = append(out, domain.Request{
			ID:          m.ID,
			Kind:        domain.KindMember,
			Scope:       scope,
			Subject:     domain.Subject{UserID: m.User.ID, FullName: m.User.FullName, Email: m.User.Email},
			Status:      domain.StatusPending,
			Role:        m.Role,
			RequestedAt: domain.ParseTime(m.JoinedAt),
		})
	}
	return out, nil
}

func (s MemberRequestService) Approve(ctx context.Context, cred auth.Credential, id string) error {
	_, err := s.c.UpdateMember(ctx, cred, id, domain.MemberUpdate{Status: domain.MemberActive})
	return err
}

func (s MemberRequestService) Reject(ctx context.Context, cred auth.Credential, id string) error {
	return s.c.DeleteMember(ctx, cred, id)
}

// RequestService - общий контракт трех адаптеров и MockRequestService.
type RequestService interface {
	List(ctx context.Context, cred auth.Credential, scope string) ([]domain.Request, error)
	Approve(ctx context.Context, cred auth.Credential, id string) error
	Reject(ctx context.Context, cred auth.Credential, id string) error
}

// Requests возвращает адаптер под тип заявки.
func (c *Client) Requests(kind domain.RequestKind) (RequestService, error) {
	switch kind {
	case domain.KindEntry:
		return EntryRequestService{c: c}, nil
	case domain.KindChange:
		return ChangeRequestService{c: c}, nil
	case domain.KindMember:
		return MemberRequestService{c: c}, nil
	}
	return nil, domain.ErrUnknownKind
}

func pendingOnly(in []domain.Request) []domain.Request {
	out := in[:0]
	for _, r := range in {
		if r.Status == domain.StatusPending {
			out = append(out, r)
		}
	}
	return out
}
