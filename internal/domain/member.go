package domain

import "strings"

type Role string

const (
	RoleMember    Role = "MEMBER"
	RoleValidator Role = "VALIDATOR"
	RoleAdmin     Role = "ADMIN"
)

type MemberStatus string

const (
	MemberPending  MemberStatus = "PENDING"
	MemberActive   MemberStatus = "ACTIVE"
	MemberInactive MemberStatus = "INACTIVE"
)

type Member struct {
	ID       string       `json:"id"`
	Role     Role         `json:"role"`
	Status   MemberStatus `json:"status"`
	JoinedAt string       `json:"joinedAt,omitempty"`
	User     User         `json:"user"`
}

// MemberUpdate - частичное обновление, пустые поля не отправляются.
type MemberUpdate struct {
	Role   Role         `json:"role,omitempty"`
	Status MemberStatus `json:"status,omitempty"`
}

func ParseRole(s string) (Role, bool) {
	switch r := Role(upper(s)); r {
	case RoleMember, RoleValidator, RoleAdmin:
		return r, true
	}
	return "", false
}

func upper(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
