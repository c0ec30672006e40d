package models

type User struct {
	ID                   string `json:"id" db:"id"`
	Email                string `json:"email" db:"email"`
	Password             string `json:"-" db:"password"` // Never return password in JSON
	Name                 string `json:"name" db:"name"`
	Role                 string `json:"role" db:"role"` // "user", "manager" or "admin"
	NotificationsEnabled bool   `json:"notifications_enabled" db:"notifications_enabled"`
	IsActive             bool   `json:"is_active" db:"is_active"`
	LastLogin            *int64 `json:"last_login,omitempty" db:"last_login"`
	CreatedAt            int64  `json:"created_at" db:"created_at"`
	UpdatedAt            int64  `json:"updated_at" db:"updated_at"`
}

type UserResponse struct {
	ID                   string `json:"id"`
	Email                string `json:"email"`
	Name                 string `json:"name"`
	Role                 string `json:"role"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	IsActive             bool   `json:"is_active"`
	LastLogin            *int64 `json:"last_login,omitempty"`
	CreatedAt            int64  `json:"created_at"`
}

func (u *User) ToUserResponse() UserResponse {
	return UserResponse{
		ID:                   u.ID,
		Email:                u.Email,
		Name:                 u.Name,
		Role:                 u.Role,
		NotificationsEnabled: u.NotificationsEnabled,
		IsActive:             u.IsActive,
		LastLogin:            u.LastLogin,
		CreatedAt:            u.CreatedAt,
	}
}
