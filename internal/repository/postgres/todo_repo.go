package postgres

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/todo-api/internal/domain/entity"
	"github.com/yourusername/todo-api/internal/domain/repository"
	apperrors "github.com/yourusername/todo-api/internal/pkg/errors"
)

// TodoRepo реализует repository.TodoRepository
type TodoRepo struct {
	db *gorm.DB
}

// NewTodoRepo создает новый репозиторий задач
func NewTodoRepo(db *gorm.DB) *TodoRepo {
	return &TodoRepo{db: db}
}

// Create создает новую задачу
func (r *TodoRepo) Create(ctx context.Context, todo *entity.Todo) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(todo).Error
}

// GetForUser возвращает задачу владельца вместе с вложениями
func (r *TodoRepo) GetForUser(ctx context.Context, id, userID uint) (*entity.Todo, error) {
	var todo entity.Todo
	err := r.db.WithContext(ctx).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ? AND user_id = ?", id, userID).
		First(&todo).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &todo, nil
}

// List возвращает задачи владельца с фильтрами, сортировкой и общим количеством
func (r *TodoRepo) List(ctx context.Context, userID uint, filter repository.TodoFilter) ([]entity.Todo, int64, error) {
	scope := todoFilterScope(userID, filter)

	var total int64
	if err := r.db.WithContext(ctx).Model(&entity.Todo{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count todos: %w", err)
	}

	sortBy := filter.SortBy
	if !repository.TodoSortColumns[sortBy] {
		sortBy = "created_at"
	}

	q := r.db.WithContext(ctx).
		Scopes(scope).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order(clause.OrderByColumn{Column: clause.Column{Name: sortBy}, Desc: filter.SortDesc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: filter.SortDesc})
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}

	var todos []entity.Todo
	if err := q.Find(&todos).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list todos: %w", err)
	}
	return todos, total, nil
}

func todoFilterScope(userID uint, f repository.TodoFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("user_id = ?", userID)
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		if f.Priority != "" {
			db = db.Where("priority = ?", f.Priority)
		}
		if f.DueDate != nil {
			db = db.Where("due_date = ?", *entity.NewDate(*f.DueDate))
		}
		if f.Overdue {
			db = db.Where("due_date IS NOT NULL AND due_date < ? AND status <> ?", *entity.NewDate(f.Today), entity.TodoStatusCompleted)
		}
		if s := strings.TrimSpace(f.Search); s != "" {
			like := "%" + escapeLike(strings.ToLower(s)) + "%"
			db = db.Where("(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\')", like, like)
		}
		return db
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Update применяет частичное обновление
func (r *TodoRepo) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&entity.Todo{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete удаляет задачу по ID
func (r *TodoRepo) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entity.Todo{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// OwnedIDs оставляет только id задач, принадлежащих пользователю
func (r *TodoRepo) OwnedIDs(ctx context.Context, userID uint, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var owned []uint
	err := r.db.WithContext(ctx).Model(&entity.Todo{}).
		Where("user_id = ? AND id IN ?", userID, ids).
		Order("id ASC").
		Pluck("id", &owned).Error
	return owned, err
}
