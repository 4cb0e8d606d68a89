package repository

import (
	"context"
	"time"

	"github.com/yourusername/todo-api/internal/domain/entity"
)

// AccessTokenRepository определяет методы для работы с выданными токенами
type AccessTokenRepository interface {
	Create(ctx context.Context, token *entity.AccessToken) error
	GetByJTI(ctx context.Context, jti string) (*entity.AccessToken, error)
	// RevokeAllForUser помечает все неотозванные токены пользователя как отозванные
	RevokeAllForUser(ctx context.Context, userID uint, reason string) (int64, error)
	// RevokeByJTI отзывает один токен; отсутствие токена не является ошибкой
	RevokeByJTI(ctx context.Context, jti, reason string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// SessionCache хранит JTI активной сессии каждого пользователя.
// Промах кеша возвращает apperrors.ErrNotFound.
type SessionCache interface {
	SetActiveSession(ctx context.Context, userID uint, jti string, ttl time.Duration) error
	GetActiveSession(ctx context.Context, userID uint) (string, error)
	ClearActiveSession(ctx context.Context, userID uint) error
}
