package dto

import (
	"time"

	"github.com/yourusername/todo-api/internal/domain/entity"
	"github.com/yourusername/todo-api/internal/service"
)

// AttachmentResponse вложение без пути в хранилище
type AttachmentResponse struct {
	ID            uint      `json:"id"`
	OriginalName  string    `json:"original_name"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	MimeType      string    `json:"mime_type"`
	CreatedAt     time.Time `json:"created_at"`
}

// TodoResponse задача вместе с вычисляемыми полями
type TodoResponse struct {
	ID            uint                 `json:"id"`
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	Status        entity.TodoStatus    `json:"status"`
	StatusLabel   string               `json:"status_label"`
	Priority      entity.TodoPriority  `json:"priority"`
	PriorityLabel string               `json:"priority_label"`
	DueDate       *string              `json:"due_date"`
	Attachments   []AttachmentResponse `json:"attachments"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`

	entity.TodoComputed
}

// NewTodoResponse проецирует задачу, вычисляя поля относительно now
func NewTodoResponse(t *entity.Todo, now time.Time) TodoResponse {
	r := TodoResponse{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        t.Status,
		StatusLabel:   t.Status.Label(),
		Priority:      t.Priority,
		PriorityLabel: t.Priority.Label(),
		Attachments:   make([]AttachmentResponse, 0, len(t.Attachments)),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		TodoComputed:  t.Computed(now),
	}
	if d := t.DueDateString(); d != "" {
		r.DueDate = &d
	}
	for _, a := range t.Attachments {
		r.Attachments = append(r.Attachments, AttachmentResponse{
			ID:            a.ID,
			OriginalName:  a.OriginalName,
			FileSizeBytes: a.FileSizeBytes,
			MimeType:      a.MimeType,
			CreatedAt:     a.CreatedAt,
		})
	}
	return r
}

// PaginatedTodosResponse страница списка задач
type PaginatedTodosResponse struct {
	Data     []TodoResponse `json:"data"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PerPage  int            `json:"per_page"`
	LastPage int            `json:"last_page"`
}

// NewPaginatedTodosResponse собирает ответ списка
func NewPaginatedTodosResponse(res *service.ListResult, now time.Time) PaginatedTodosResponse {
	out := PaginatedTodosResponse{
		Data:     make([]TodoResponse, 0, len(res.Items)),
		Total:    res.Total,
		Page:     res.Page,
		PerPage:  res.PerPage,
		LastPage: res.LastPage,
	}
	for i := range res.Items {
		out.Data = append(out.Data, NewTodoResponse(&res.Items[i], now))
	}
	return out
}

// FileResult итог загрузки одного файла
type FileResult struct {
	OriginalName string `json:"original_name"`
	Success      bool   `json:"success"`
	AttachmentID uint   `json:"attachment_id,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// UploadSummary итоги загрузки вложений в ответе create/update
type UploadSummary struct {
	Total   int          `json:"total"`
	Success int          `json:"success"`
	Failed  int          `json:"failed"`
	Files   []FileResult `json:"files"`
}

// TodoWithUploadResponse ответ create/update
type TodoWithUploadResponse struct {
	Message       string        `json:"message"`
	Data          TodoResponse  `json:"data"`
	UploadSummary UploadSummary `json:"upload_summary"`
}

// NewTodoWithUploadResponse собирает ответ create/update
func NewTodoWithUploadResponse(message string, res *service.TodoResult, now time.Time) TodoWithUploadResponse {
	summary := UploadSummary{
		Total:   res.Upload.Total,
		Success: res.Upload.Success,
		Failed:  res.Upload.Failed,
		Files:   make([]FileResult, 0, len(res.Upload.Results)),
	}
	for _, r := range res.Upload.Results {
		fr := FileResult{OriginalName: r.Name, Success: r.OK(), Reason: r.Reason}
		if r.Attachment != nil {
			fr.AttachmentID = r.Attachment.ID
		}
		summary.Files = append(summary.Files, fr)
	}
	return TodoWithUploadResponse{
		Message:       message,
		Data:          NewTodoResponse(res.Todo, now),
		UploadSummary: summary,
	}
}
