package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/todo-api/internal/domain/entity"
	apperrors "github.com/yourusername/todo-api/internal/pkg/errors"
)

// UserRepo реализует repository.UserRepository
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo создает новый репозиторий пользователей
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetByID возвращает пользователя по ID
func (r *UserRepo) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &user, nil
}

// GetByEmail возвращает пользователя по email
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &user, nil
}

// UpsertPending создаёт пользователя или обновляет неактивированного.
// Password должен быть уже захеширован через User.SetPassword.
func (r *UserRepo) UpsertPending(ctx context.Context, user *entity.User) error {
	db := r.db.WithContext(ctx)

	var existing entity.User
	err := db.Where("email = ?", user.Email).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user.IsActivated = false
		if err := db.Create(user).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: email %s is already registered", apperrors.ErrConflict, user.Email)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if existing.IsActivated {
		return fmt.Errorf("%w: email %s is already activated", apperrors.ErrConflict, user.Email)
	}

	existing.Password = user.Password
	existing.FirstName = user.FirstName
	existing.LastName = user.LastName
	existing.Company = user.Company
	if err := db.Save(&existing).Error; err != nil {
		return fmt.Errorf("failed to update pending user: %w", err)
	}

	*user = existing
	return nil
}

// Activate помечает пользователя как активированного
func (r *UserRepo) Activate(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("id = ?", id).
		Update("is_activated", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
