package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/todo-api/internal/config"
	"github.com/yourusername/todo-api/internal/domain/entity"
	"github.com/yourusername/todo-api/internal/domain/repository"
	apperrors "github.com/yourusername/todo-api/internal/pkg/errors"
	"github.com/yourusername/todo-api/pkg/storage"
)

// TodoService управляет задачами пользователя и их PDF-вложениями
type TodoService struct {
	store repository.Store
	blobs storage.Storage
	cfg   config.TodoConfig
	log   *zap.Logger
	now   func() time.Time
}

// NewTodoService создает сервис задач
func NewTodoService(store repository.Store, blobs storage.Storage, cfg config.TodoConfig, log *zap.Logger) (*TodoService, error) {
	if store == nil {
		return nil, fmt.Errorf("Store is required for TodoService")
	}
	if blobs == nil {
		return nil, fmt.Errorf("Storage is required for TodoService")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 15
	}
	if cfg.MaxPerPage < cfg.PerPage {
		cfg.MaxPerPage = cfg.PerPage
	}
	if cfg.MaxFileSizeMB <= 0 {
		cfg.MaxFileSizeMB = 20
	}
	if cfg.MaxFilesPerReq <= 0 {
		cfg.MaxFilesPerReq = 10
	}
	if cfg.AttachmentsPath == "" {
		cfg.AttachmentsPath = "todo-pdfs"
	}
	return &TodoService{store: store, blobs: blobs, cfg: cfg, log: log, now: time.Now}, nil
}

// Now возвращает текущее время сервиса для вычисляемых полей
func (s *TodoService) Now() time.Time { return s.now() }

// TodoInput содержит поля новой задачи
type TodoInput struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"max=1000"`
	Status      string `json:"status" validate:"omitempty,oneof=pending completed"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DueDate     string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

// TodoPatch содержит только переданные поля; nil означает "не менять".
// Пустой DueDate очищает срок.
type TodoPatch struct {
	Title       *string `json:"title" validate:"omitnil,min=1,max=255"`
	Description *string `json:"description" validate:"omitnil,max=1000"`
	Status      *string `json:"status" validate:"omitnil,oneof=pending completed"`
	Priority    *string `json:"priority" validate:"omitnil,oneof=low medium high urgent"`
	DueDate     *string `json:"due_date"`
}

// IsEmpty сообщает, что в патче нет ни одного поля
func (p TodoPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil && p.DueDate == nil
}

// ListFilter описывает параметры списка задач в виде, пришедшем от клиента
type ListFilter struct {
	Status    string `json:"status" validate:"omitempty,oneof=pending completed"`
	Priority  string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DueDate   string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Overdue   bool   `json:"overdue"`
	Search    string `json:"search" validate:"max=255"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order" validate:"omitempty,oneof=asc desc ASC DESC"`
	Page      int    `json:"page" validate:"gte=0"`
	PerPage   int    `json:"per_page" validate:"gte=0"`
}

// ListResult одна страница задач
type ListResult struct {
	Items    []entity.Todo
	Total    int64
	Page     int
	PerPage  int
	LastPage int
}

// TodoResult задача вместе с итогами загрузки вложений
type TodoResult struct {
	Todo   *entity.Todo
	Upload UploadSummary
}

// AttachmentDownload открытое вложение для отдачи клиенту. Reader закрывает вызывающий.
type AttachmentDownload struct {
	Reader   io.ReadCloser
	Size     int64
	Name     string
	MimeType string
}

// List возвращает страницу задач владельца
func (s *TodoService) List(ctx context.Context, ownerID uint, f ListFilter) (*ListResult, error) {
	filter, err := s.toRepoFilter(f)
	if err != nil {
		return nil, err
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	perPage := f.PerPage
	if perPage <= 0 {
		perPage = s.cfg.PerPage
	}
	if perPage > s.cfg.MaxPerPage {
		perPage = s.cfg.MaxPerPage
	}
	filter.Limit = perPage
	filter.Offset = (page - 1) * perPage

	items, total, err := s.store.Todos().List(ctx, ownerID, filter)
	if err != nil {
		return nil, err
	}

	lastPage := int(math.Ceil(float64(total) / float64(perPage)))
	if lastPage < 1 {
		lastPage = 1
	}
	return &ListResult{Items: items, Total: total, Page: page, PerPage: perPage, LastPage: lastPage}, nil
}

// Export возвращает все задачи, подходящие под фильтр, без пагинации
func (s *TodoService) Export(ctx context.Context, ownerID uint, f ListFilter) ([]entity.Todo, error) {
	filter, err := s.toRepoFilter(f)
	if err != nil {
		return nil, err
	}
	items, _, err := s.store.Todos().List(ctx, ownerID, filter)
	return items, err
}

func (s *TodoService) toRepoFilter(f ListFilter) (repository.TodoFilter, error) {
	f.Search = strings.TrimSpace(f.Search)
	if err := validateStruct(f); err != nil {
		return repository.TodoFilter{}, err
	}

	filter := repository.TodoFilter{
		Status:   entity.TodoStatus(f.Status),
		Priority: entity.TodoPriority(f.Priority),
		Overdue:  f.Overdue,
		Today:    s.now(),
		Search:   f.Search,
		SortBy:   "created_at",
		SortDesc: true,
	}

	if f.DueDate != "" {
		d, err := parseDate("due_date", f.DueDate)
		if err != nil {
			return filter, err
		}
		filter.DueDate = &d
	}
	if f.SortBy != "" {
		if !repository.TodoSortColumns[f.SortBy] {
			return filter, fmt.Errorf("%w: sort_by must be one of id, title, status, priority, due_date, created_at, updated_at", apperrors.ErrValidation)
		}
		filter.SortBy = f.SortBy
	}
	if f.SortOrder != "" {
		filter.SortDesc = strings.EqualFold(f.SortOrder, "desc")
	}
	return filter, nil
}

// Get возвращает задачу владельца
func (s *TodoService) Get(ctx context.Context, ownerID, id uint) (*entity.Todo, error) {
	return s.store.Todos().GetForUser(ctx, id, ownerID)
}

// Create сохраняет задачу, затем по одному обрабатывает файлы.
// Ошибка отдельного файла попадает в сводку и не отменяет задачу.
func (s *TodoService) Create(ctx context.Context, ownerID uint, in TodoInput, files []AttachmentFile) (*TodoResult, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := s.checkFileCount(files); err != nil {
		return nil, err
	}

	todo := &entity.Todo{
		UserID:      ownerID,
		Title:       in.Title,
		Description: in.Description,
		Status:      entity.TodoStatusPending,
		Priority:    entity.TodoPriorityMedium,
	}
	if in.Status != "" {
		todo.Status = entity.TodoStatus(in.Status)
	}
	if in.Priority != "" {
		todo.Priority = entity.TodoPriority(in.Priority)
	}
	if in.DueDate != "" {
		d, err := parseDate("due_date", in.DueDate)
		if err != nil {
			return nil, err
		}
		todo.DueDate = entity.NewDate(d)
	}

	if err := s.store.Todos().Create(ctx, todo); err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}

	summary := s.attachFiles(ctx, todo.ID, files)

	created, err := s.store.Todos().GetForUser(ctx, todo.ID, ownerID)
	if err != nil {
		return nil, err
	}
	s.log.Info("todo created",
		zap.Uint("user_id", ownerID), zap.Uint("todo_id", todo.ID),
		zap.Int("files_ok", summary.Success), zap.Int("files_failed", summary.Failed))
	return &TodoResult{Todo: created, Upload: summary}, nil
}

// Update применяет только переданные поля и добавляет новые вложения к существующим
func (s *TodoService) Update(ctx context.Context, ownerID, id uint, patch TodoPatch, files []AttachmentFile) (*TodoResult, error) {
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		patch.Title = &t
	}
	if patch.Description != nil {
		d := strings.TrimSpace(*patch.Description)
		patch.Description = &d
	}
	if err := validateStruct(patch); err != nil {
		return nil, err
	}
	var dueDate time.Time
	if patch.DueDate != nil && *patch.DueDate != "" {
		d, err := parseDate("due_date", *patch.DueDate)
		if err != nil {
			return nil, err
		}
		dueDate = d
	}
	if err := s.checkFileCount(files); err != nil {
		return nil, err
	}

	if _, err := s.store.Todos().GetForUser(ctx, id, ownerID); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Status != nil {
		updates["status"] = entity.TodoStatus(*patch.Status)
	}
	if patch.Priority != nil {
		updates["priority"] = entity.TodoPriority(*patch.Priority)
	}
	if patch.DueDate != nil {
		if *patch.DueDate == "" {
			updates["due_date"] = nil
		} else {
			updates["due_date"] = *entity.NewDate(dueDate)
		}
	}
	if err := s.store.Todos().Update(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}

	summary := s.attachFiles(ctx, id, files)

	updated, err := s.store.Todos().GetForUser(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	return &TodoResult{Todo: updated, Upload: summary}, nil
}

// Delete удаляет задачу со всеми вложениями
func (s *TodoService) Delete(ctx context.Context, ownerID, id uint) error {
	return s.store.Do(ctx, func(tx repository.Store) error {
		return s.deleteTodo(ctx, tx, ownerID, id)
	})
}

// BulkDelete удаляет задачи владельца из ids, чужие и несуществующие пропускает.
// Каждая задача удаляется в своей транзакции.
func (s *TodoService) BulkDelete(ctx context.Context, ownerID uint, ids []uint) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: ids must be a non-empty list", apperrors.ErrValidation)
	}

	owned, err := s.store.Todos().OwnedIDs(ctx, ownerID, ids)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, id := range owned {
		err := s.store.Do(ctx, func(tx repository.Store) error {
			return s.deleteTodo(ctx, tx, ownerID, id)
		})
		if errors.Is(err, apperrors.ErrNotFound) {
			continue // удалена параллельным запросом
		}
		if err != nil {
			return deleted, err
		}
		deleted++
	}

	s.log.Info("todos bulk deleted", zap.Uint("user_id", ownerID), zap.Int("deleted", deleted), zap.Int("requested", len(ids)))
	return deleted, nil
}

// deleteTodo порядок: blob, запись вложения, затем сама задача
func (s *TodoService) deleteTodo(ctx context.Context, tx repository.Store, ownerID, id uint) error {
	todo, err := tx.Todos().GetForUser(ctx, id, ownerID)
	if err != nil {
		return err
	}
	for _, a := range todo.Attachments {
		if err := s.deleteAttachment(ctx, tx, &a); err != nil {
			return err
		}
	}
	return tx.Todos().Delete(ctx, id)
}

func (s *TodoService) deleteAttachment(ctx context.Context, tx repository.Store, a *entity.TodoAttachment) error {
	if err := s.blobs.Delete(ctx, a.PdfPath); err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", a.PdfPath, err)
	}
	return tx.Attachments().Delete(ctx, a.ID)
}

// DownloadAttachment открывает вложение; attachmentID 0 означает первое вложение задачи
func (s *TodoService) DownloadAttachment(ctx context.Context, ownerID, todoID, attachmentID uint) (*AttachmentDownload, error) {
	if _, err := s.store.Todos().GetForUser(ctx, todoID, ownerID); err != nil {
		return nil, err
	}

	var (
		a   *entity.TodoAttachment
		err error
	)
	if attachmentID == 0 {
		a, err = s.store.Attachments().FirstForTodo(ctx, todoID)
	} else {
		a, err = s.store.Attachments().GetForTodo(ctx, todoID, attachmentID)
	}
	if err != nil {
		return nil, err
	}

	rc, size, err := s.blobs.Open(ctx, a.PdfPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("attachment record points at a missing blob",
				zap.Uint("attachment_id", a.ID), zap.String("key", a.PdfPath))
			return nil, fmt.Errorf("%w: file is missing", apperrors.ErrNotFound)
		}
		return nil, err
	}

	return &AttachmentDownload{Reader: rc, Size: size, Name: a.OriginalName, MimeType: a.MimeType}, nil
}

// DeleteAttachment удаляет одно вложение задачи
func (s *TodoService) DeleteAttachment(ctx context.Context, ownerID, todoID, attachmentID uint) error {
	if attachmentID == 0 {
		return fmt.Errorf("%w: pdf_id is required", apperrors.ErrValidation)
	}
	return s.store.Do(ctx, func(tx repository.Store) error {
		if _, err := tx.Todos().GetForUser(ctx, todoID, ownerID); err != nil {
			return err
		}
		a, err := tx.Attachments().GetForTodo(ctx, todoID, attachmentID)
		if err != nil {
			return err
		}
		return s.deleteAttachment(ctx, tx, a)
	})
}

// StatusOptions возвращает значения статусов с подписями
func (s *TodoService) StatusOptions() map[string]string { return entity.TodoStatusOptions() }

// PriorityOptions возвращает значения приоритетов с подписями
func (s *TodoService) PriorityOptions() map[string]string { return entity.TodoPriorityOptions() }

func (s *TodoService) checkFileCount(files []AttachmentFile) error {
	if len(files) > s.cfg.MaxFilesPerReq {
		return fmt.Errorf("%w: at most %d files per request", apperrors.ErrValidation, s.cfg.MaxFilesPerReq)
	}
	return nil
}
