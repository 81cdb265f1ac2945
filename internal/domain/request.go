package domain

import (
	"errors"
	"time"
)

// Статусы заявки. Меняет их только удаленный сервис, локальная копия - проекция.
type RequestStatus string

const (
	StatusPending  RequestStatus = "PENDING"
	StatusApproved RequestStatus = "APPROVED"
	StatusDenied   RequestStatus = "DENIED"
)

// RequestKind - тип заявки, ожидающей решения администратора хаба.
type RequestKind string

const (
	KindEntry  RequestKind = "ENTRY"  // вступление в хаб с запрошенной ролью
	KindChange RequestKind = "CHANGE" // замена фото для распознавания лица
	KindMember RequestKind = "MEMBER" // участник в статусе PENDING
)

var (
	ErrInvalidTransition = errors.New("invalid request status transition")
	ErrAlreadyProcessed  = errors.New("request already processed")
	ErrUnknownKind       = errors.New("unknown request kind")
	ErrNotFound          = errors.New("not found")
)

// Subject - кто подал заявку.
type Subject struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email,omitempty"`
}

type Request struct {
	ID      string        `json:"id"`
	Kind    RequestKind   `json:"kind"`
	Scope   string        `json:"scope"` // organization id или hub code
	Subject Subject       `json:"subject"`
	Status  RequestStatus `json:"status"`

	// Payload для KindEntry / KindMember
	Role Role `json:"role,omitempty"`

	// Payload для KindChange
	CurrentFaceURL string `json:"current_face_url,omitempty"`
	NewFaceURL     string `json:"new_face_url,omitempty"`

	RequestedAt time.Time `json:"requested_at"`
}

// CanTransitionTo проверяет правила конечного автомата
func (r *Request) CanTransitionTo(next RequestStatus) error {
	if r.Status != StatusPending {
		return ErrAlreadyProcessed
	}
	if next == StatusPending {
		return ErrInvalidTransition
	}
	return nil
}

// ParseKind принимает как "entry", так и "ENTRY".
func ParseKind(s string) (RequestKind, error) {
	switch RequestKind(upper(s)) {
	case KindEntry:
		return KindEntry, nil
	case KindChange:
		return KindChange, nil
	case KindMember:
		return KindMember, nil
	}
	return "", ErrUnknownKind
}

// ParseTime разбирает ISO-8601 даты API. Нераспознанное значение дает нулевое время.
func ParseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
