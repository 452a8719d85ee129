package model

import "time"

const (
	RoleCoordinator = "Coordinator"
	RoleAdmin       = "Admin"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleCoordinator || role == RoleAdmin
}

type Coordinator struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name,omitempty"`
	Contact      string    `json:"contact,omitempty"`
	Address      string    `json:"address,omitempty"`
	PasswordHash string    `json:"-"` // never JSON-encode
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (c *Coordinator) IsAdmin() bool {
	return c.Role == RoleAdmin
}
