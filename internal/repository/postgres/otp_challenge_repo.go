package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/todo-api/internal/domain/entity"
)

type OTPChallengeRepo struct {
	db *gorm.DB
}

func NewOTPChallengeRepo(db *gorm.DB) *OTPChallengeRepo {
	return &OTPChallengeRepo{db: db}
}

func (r *OTPChallengeRepo) Create(ctx context.Context, challenge *entity.OTPChallenge) error {
	return r.db.WithContext(ctx).Create(challenge).Error
}

func (r *OTPChallengeRepo) FindActionable(ctx context.Context, userID uint, code string, now time.Time) (*entity.OTPChallenge, error) {
	var challenge entity.OTPChallenge
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND code = ? AND is_verified = ? AND expires_at > ?", userID, code, false, now).
		Order("id DESC").
		First(&challenge).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &challenge, nil
}

func (r *OTPChallengeRepo) MarkVerified(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&entity.OTPChallenge{}).
		Where("id = ?", id).
		Update("is_verified", true).Error
}

func (r *OTPChallengeRepo) DeleteUnverifiedByUserID(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND is_verified = ?", userID, false).
		Delete(&entity.OTPChallenge{})
	return result.RowsAffected, result.Error
}

func (r *OTPChallengeRepo) DeleteByUserID(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&entity.OTPChallenge{})
	return result.RowsAffected, result.Error
}

func (r *OTPChallengeRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&entity.OTPChallenge{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired otp challenges: %w", result.Error)
	}
	return result.RowsAffected, nil
}
