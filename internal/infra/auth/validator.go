package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xela07ax/campusface-client/internal/domain"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenEmpty   = errors.New("token is empty")
)

// TokenInspector - интерфейс, который использует middleware консоли
type TokenInspector interface {
	Inspect(c Credential) (*domain.CustomClaims, error)
}

// ClaimsReader читает claims без проверки подписи.
// Ключей CampusFace у клиента нет: подпись проверяет сервер, здесь только срок и субъект.
type ClaimsReader struct {
	parser *jwt.Parser
	now    func() time.Time
	leeway time.Duration
}

func NewClaimsReader() *ClaimsReader {
	return &ClaimsReader{
		parser: jwt.NewParser(),
		now:    time.Now,
		leeway: 30 * time.Second,
	}
}

// Inspect реализует интерфейс auth.TokenInspector.
func (r *ClaimsReader) Inspect(c Credential) (*domain.CustomClaims, error) {
	if c.IsZero() {
		return nil, ErrTokenEmpty
	}

	claims := &domain.CustomClaims{}
	if _, _, err := r.parser.ParseUnverified(c.Token, claims); err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims.ExpiresAt != nil && r.now().After(claims.ExpiresAt.Add(r.leeway)) {
		return claims, ErrTokenExpired
	}
	return claims, nil
}
