package domain

// Organization - хаб (например, корпус кампуса).
type Organization struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	HubCode     string `json:"hubCode"`
	Admins      []User `json:"admins"`
	Validators  []User `json:"validators"`
	Members     []User `json:"members"`
}

type OrganizationCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	HubCode     string `json:"hubCode"`
}
