package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/todo-api/internal/domain/repository"
	apperrors "github.com/yourusername/todo-api/internal/pkg/errors"
)

const sessionKeyPrefix = "session:"

// SessionCache реализует repository.SessionCache поверх Redis
type SessionCache struct {
	client redis.UniversalClient
}

// NewSessionCache создает кеш сессий и возвращает ошибку при nil-клиенте
func NewSessionCache(client redis.UniversalClient) (*SessionCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil for SessionCache")
	}
	return &SessionCache{client: client}, nil
}

func sessionKey(userID uint) string {
	return fmt.Sprintf("%s%d", sessionKeyPrefix, userID)
}

// SetActiveSession запоминает JTI единственной активной сессии пользователя
func (c *SessionCache) SetActiveSession(ctx context.Context, userID uint, jti string, ttl time.Duration) error {
	return c.client.Set(ctx, sessionKey(userID), jti, ttl).Err()
}

// GetActiveSession возвращает JTI активной сессии или apperrors.ErrNotFound
func (c *SessionCache) GetActiveSession(ctx context.Context, userID uint) (string, error) {
	val, err := c.client.Get(ctx, sessionKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperrors.ErrNotFound
		}
		return "", err
	}
	return val, nil
}

// ClearActiveSession удаляет запись о сессии
func (c *SessionCache) ClearActiveSession(ctx context.Context, userID uint) error {
	return c.client.Del(ctx, sessionKey(userID)).Err()
}

var _ repository.SessionCache = (*SessionCache)(nil)
