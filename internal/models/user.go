package models

import (
	"time"

	"github.com/google/uuid"
)

// Роли пользователей площадки.
const (
	RoleConsumer = "consumer"
	RoleProvider = "provider"
)

// ValidRoles список допустимых ролей при регистрации.
var ValidRoles = map[string]struct{}{
	RoleConsumer: {},
	RoleProvider: {},
}

// User описывает пользователя площадки: заказчика или исполнителя услуг.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	DisplayName  string    `db:"display_name" json:"display_name"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// IsProvider сообщает, что пользователь оказывает услуги.
func (u *User) IsProvider() bool {
	return u.Role == RoleProvider
}
