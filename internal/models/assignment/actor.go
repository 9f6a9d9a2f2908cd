package assignment

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Actor - тот, кто выполняет операцию; приходит от внешнего слоя аутентификации
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

type User struct {
	UUID     uuid.UUID `json:"uuid" db:"uuid"`
	Name     string    `json:"name" db:"name"`
	Role     Role      `json:"role" db:"role"`
	IsActive bool      `json:"is_active" db:"is_active"`
}
