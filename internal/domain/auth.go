package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims - то, что клиент читает из токена CampusFace API.
// Подпись проверяет сервер, клиент смотрит только на субъект и срок.
type CustomClaims struct {
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID возвращает id пользователя: userId, иначе sub.
func (c *CustomClaims) SubjectID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Document string `json:"document"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
