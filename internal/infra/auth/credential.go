package auth

import "strings"

// Credential - явный токен доступа к CampusFace API.
// Передается параметром в каждую операцию, никакого глобального состояния.
type Credential struct {
	Token string
}

func Bearer(token string) Credential {
	token = strings.TrimSpace(token)
	token = strings.TrimPrefix(token, "Bearer ")
	return Credential{Token: strings.TrimSpace(token)}
}

func (c Credential) IsZero() bool { return c.Token == "" }

// Header возвращает значение для заголовка Authorization.
func (c Credential) Header() string { return "Bearer " + c.Token }

// String не раскрывает токен в логах.
func (c Credential) String() string {
	if len(c.Token) <= 8 {
		return "Bearer ***"
	}
	return "Bearer " + c.Token[:4] + "***"
}
