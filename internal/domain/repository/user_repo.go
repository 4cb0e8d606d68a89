package repository

import (
	"context"

	"github.com/yourusername/todo-api/internal/domain/entity"
)

// UserRepository определяет методы для работы с пользователями
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// UpsertPending создаёт пользователя по email или перезаписывает пароль и профиль
	// существующего неактивированного. user.ID заполняется в обоих случаях.
	UpsertPending(ctx context.Context, user *entity.User) error
	Activate(ctx context.Context, id uint) error
}
