package repository

import (
	"context"
	"time"

	"github.com/yourusername/todo-api/internal/domain/entity"
)

// TodoSortColumns lists the columns a list can be ordered by.
var TodoSortColumns = map[string]bool{
	"id":         true,
	"title":      true,
	"status":     true,
	"priority":   true,
	"due_date":   true,
	"created_at": true,
	"updated_at": true,
}

// TodoFilter narrows a todo listing. Zero values mean "no constraint".
type TodoFilter struct {
	Status   entity.TodoStatus
	Priority entity.TodoPriority
	DueDate  *time.Time
	// Overdue keeps todos due before Today that are not completed.
	Overdue bool
	Today   time.Time
	Search  string

	SortBy   string
	SortDesc bool

	// Limit 0 returns every match.
	Limit  int
	Offset int
}

// TodoRepository определяет методы для работы с задачами.
// Все методы чтения ограничены владельцем.
type TodoRepository interface {
	Create(ctx context.Context, todo *entity.Todo) error
	// GetForUser returns the todo with its attachments preloaded.
	GetForUser(ctx context.Context, id, userID uint) (*entity.Todo, error)
	List(ctx context.Context, userID uint, filter TodoFilter) ([]entity.Todo, int64, error)
	Update(ctx context.Context, id uint, updates map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	// OwnedIDs filters ids down to those owned by userID.
	OwnedIDs(ctx context.Context, userID uint, ids []uint) ([]uint, error)
}

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *entity.TodoAttachment) error
	GetForTodo(ctx context.Context, todoID, id uint) (*entity.TodoAttachment, error)
	// FirstForTodo returns any attachment of the todo.
	FirstForTodo(ctx context.Context, todoID uint) (*entity.TodoAttachment, error)
	ListByTodoID(ctx context.Context, todoID uint) ([]entity.TodoAttachment, error)
	Delete(ctx context.Context, id uint) error
}
