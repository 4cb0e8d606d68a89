package postgres

import (
	"context"

	"github.com/yourusername/todo-api/internal/domain/entity"
	"gorm.io/gorm"
)

// AttachmentRepo реализует repository.AttachmentRepository
type AttachmentRepo struct {
	db *gorm.DB
}

// NewAttachmentRepo создаёт новый репозиторий вложений
func NewAttachmentRepo(db *gorm.DB) *AttachmentRepo {
	return &AttachmentRepo{db: db}
}

// Create сохраняет метаданные вложения
func (r *AttachmentRepo) Create(ctx context.Context, attachment *entity.TodoAttachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

// GetForTodo возвращает вложение, только если оно принадлежит задаче
func (r *AttachmentRepo) GetForTodo(ctx context.Context, todoID, id uint) (*entity.TodoAttachment, error) {
	var attachment entity.TodoAttachment
	err := r.db.WithContext(ctx).Where("id = ? AND todo_id = ?", id, todoID).First(&attachment).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &attachment, nil
}

// FirstForTodo возвращает первое по id вложение задачи
func (r *AttachmentRepo) FirstForTodo(ctx context.Context, todoID uint) (*entity.TodoAttachment, error) {
	var attachment entity.TodoAttachment
	err := r.db.WithContext(ctx).Where("todo_id = ?", todoID).Order("id ASC").First(&attachment).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &attachment, nil
}

// ListByTodoID возвращает все вложения задачи
func (r *AttachmentRepo) ListByTodoID(ctx context.Context, todoID uint) ([]entity.TodoAttachment, error) {
	var attachments []entity.TodoAttachment
	err := r.db.WithContext(ctx).Where("todo_id = ?", todoID).Order("id ASC").Find(&attachments).Error
	return attachments, err
}

// Delete удаляет запись вложения по ID
func (r *AttachmentRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&entity.TodoAttachment{}, id).Error
}
