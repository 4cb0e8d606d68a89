package repository

import (
	"context"
	"time"

	"github.com/yourusername/todo-api/internal/domain/entity"
)

// OTPChallengeRepository persists activation codes.
type OTPChallengeRepository interface {
	Create(ctx context.Context, challenge *entity.OTPChallenge) error
	// FindActionable returns the unverified, unexpired challenge matching code,
	// or apperrors.ErrNotFound.
	FindActionable(ctx context.Context, userID uint, code string, now time.Time) (*entity.OTPChallenge, error)
	MarkVerified(ctx context.Context, id uint) error
	DeleteUnverifiedByUserID(ctx context.Context, userID uint) (int64, error)
	DeleteByUserID(ctx context.Context, userID uint) (int64, error)
	// DeleteExpired removes challenges of every user whose expiry has passed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
