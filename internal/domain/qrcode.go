package domain

import "time"

// AccessCode - одноразовый код для QR, который предъявляет участник валидатору.
type AccessCode struct {
	Code           string    `json:"code"`
	ExpirationTime time.Time `json:"expirationTime"`
}

// Remaining возвращает остаток жизни кода, не меньше нуля.
func (c AccessCode) Remaining(now time.Time) time.Duration {
	if d := c.ExpirationTime.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Validation - результат проверки кода валидатором.
type Validation struct {
	Valid   bool    `json:"valid"`
	Message string  `json:"message"`
	Member  *Member `json:"member,omitempty"`
}
