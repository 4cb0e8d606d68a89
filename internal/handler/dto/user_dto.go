package dto

import (
	"time"

	"github.com/yourusername/todo-api/internal/domain/entity"
)

// UserProfile публичная проекция пользователя, без хеша пароля
type UserProfile struct {
	ID          uint      `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Company     string    `json:"company"`
	IsActivated bool      `json:"is_activated"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewUserProfile строит профиль из сущности
func NewUserProfile(u *entity.User) *UserProfile {
	if u == nil {
		return nil
	}
	return &UserProfile{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Company:     u.Company,
		IsActivated: u.IsActivated,
		CreatedAt:   u.CreatedAt,
	}
}

// LoginResponse ответ на успешный вход
type LoginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *UserProfile `json:"user"`
}
