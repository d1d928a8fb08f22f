package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account guarda la identidad y las credenciales de un usuario.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsValidRole indica si el rol pertenece al conjunto soportado.
func IsValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
