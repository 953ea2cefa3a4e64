package models

// Page is the collection envelope returned by list endpoints.
type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total,omitempty"`
	Offset int `json:"offset,omitempty"`
	Limit  int `json:"limit,omitempty"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// TokenResponse is returned by the JWT login endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Resource names a server-side collection watched by list views.
type Resource string

const (
	ResourceRooms    Resource = "rooms"
	ResourceBookings Resource = "bookings"
)
