package domain

import "time"

type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Name         string         `json:"name"`
	PasswordHash string         `json:"-"`
	IsAdmin      bool           `json:"is_admin"`
	Reset        *PasswordReset `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
}

// PasswordReset es el estado ResetRequested de un usuario; nil equivale a
// no tener un reset pendiente.
type PasswordReset struct {
	TokenHash string
	ExpiresAt time.Time
}

// Role devuelve el nombre del rol usado en logs y métricas.
func (u User) Role() string {
	if u.IsAdmin {
		return "admin"
	}
	return "user"
}
