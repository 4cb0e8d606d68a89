package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/todo-api/internal/domain/entity"
	"gorm.io/gorm"
)

// AccessTokenRepo реализует интерфейс AccessTokenRepository с использованием PostgreSQL и GORM
type AccessTokenRepo struct {
	db *gorm.DB
}

// NewAccessTokenRepo создает новый экземпляр AccessTokenRepo
func NewAccessTokenRepo(db *gorm.DB) *AccessTokenRepo {
	return &AccessTokenRepo{db: db}
}

// Create сохраняет запись о выданном токене
func (r *AccessTokenRepo) Create(ctx context.Context, token *entity.AccessToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return fmt.Errorf("failed to create access token: %w", err)
	}
	return nil
}

// GetByJTI находит токен по его JWT ID
func (r *AccessTokenRepo) GetByJTI(ctx context.Context, jti string) (*entity.AccessToken, error) {
	var token entity.AccessToken
	if err := r.db.WithContext(ctx).Where("jti = ?", jti).First(&token).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &token, nil
}

// RevokeAllForUser отзывает все активные токены пользователя
func (r *AccessTokenRepo) RevokeAllForUser(ctx context.Context, userID uint, reason string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entity.AccessToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Updates(map[string]interface{}{
			"revoked_at": time.Now(),
			"reason":     reason,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to revoke tokens for user %d: %w", userID, result.Error)
	}
	return result.RowsAffected, nil
}

// RevokeByJTI отзывает один токен
func (r *AccessTokenRepo) RevokeByJTI(ctx context.Context, jti, reason string) error {
	return r.db.WithContext(ctx).Model(&entity.AccessToken{}).
		Where("jti = ? AND revoked_at IS NULL", jti).
		Updates(map[string]interface{}{
			"revoked_at": time.Now(),
			"reason":     reason,
		}).Error
}

// DeleteExpired удаляет токены, истекшие до указанного момента
func (r *AccessTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at < ?", before).Delete(&entity.AccessToken{})
	return result.RowsAffected, result.Error
}
