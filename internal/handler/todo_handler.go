package handler

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/todo-api/internal/config"
	"github.com/yourusername/todo-api/internal/handler/dto"
	"github.com/yourusername/todo-api/internal/middleware"
	apperrors "github.com/yourusername/todo-api/internal/pkg/errors"
	"github.com/yourusername/todo-api/internal/service"
)

// Поля multipart формы, в которых могут прийти PDF
var attachmentFields = []string{"pdfs[]", "pdfs", "pdf"}

// multipartMemory часть формы, которая держится в памяти; остальное уходит во временные файлы
const multipartMemory = 32 << 20

// TodoHandler обрабатывает запросы к задачам и их вложениям
type TodoHandler struct {
	todoService *service.TodoService
	maxBody     int64
	log         *zap.Logger
}

// NewTodoHandler создает обработчик задач. Тело multipart ограничено
// лимитом всех файлов запроса плюс 1 MiB на поля формы.
func NewTodoHandler(todoService *service.TodoService, cfg config.TodoConfig, log *zap.Logger) *TodoHandler {
	if log == nil {
		log = zap.NewNop()
	}
	maxFiles := cfg.MaxFilesPerReq
	if maxFiles <= 0 {
		maxFiles = 10
	}
	maxSize := cfg.MaxFileSize()
	if maxSize <= 0 {
		maxSize = 20 << 20
	}
	return &TodoHandler{
		todoService: todoService,
		maxBody:     int64(maxFiles)*maxSize + 1<<20,
		log:         log,
	}
}

func currentUserID(c *gin.Context) (uint, bool) {
	uid, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated.", "error_type": "token_missing"})
	}
	return uid, ok
}

// List GET /api/todos
func (h *TodoHandler) List(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	f, err := parseListFilter(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	res, err := h.todoService.List(c.Request.Context(), uid, f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaginatedTodosResponse(res, h.todoService.Now()))
}

// Get GET /api/todos/:id
func (h *TodoHandler) Get(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	todo, err := h.todoService.Get(c.Request.Context(), uid, c.GetUint("todoID"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dto.NewTodoResponse(todo, h.todoService.Now())})
}

// Create POST /api/todos, JSON или multipart с PDF файлами
func (h *TodoHandler) Create(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	var (
		in    service.TodoInput
		files []service.AttachmentFile
	)
	if isMultipart(c) {
		form, err := h.parseMultipart(c)
		if err != nil {
			h.respondMultipartError(c, err)
			return
		}
		defer form.RemoveAll()

		in = service.TodoInput{
			Title:       formValue(form.Value, "title"),
			Description: formValue(form.Value, "description"),
			Status:      formValue(form.Value, "status"),
			Priority:    formValue(form.Value, "priority"),
			DueDate:     formValue(form.Value, "due_date"),
		}
		files = collectAttachments(form.File)
	} else if err := c.ShouldBindJSON(&in); err != nil {
		badRequestBody(c, err)
		return
	}

	res, err := h.todoService.Create(c.Request.Context(), uid, in, files)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewTodoWithUploadResponse("Todo created successfully.", res, h.todoService.Now()))
}

// Update PUT|PATCH /api/todos/:id. Меняются только переданные поля.
func (h *TodoHandler) Update(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	var (
		patch service.TodoPatch
		files []service.AttachmentFile
	)
	if isMultipart(c) {
		form, err := h.parseMultipart(c)
		if err != nil {
			h.respondMultipartError(c, err)
			return
		}
		defer form.RemoveAll()

		patch = service.TodoPatch{
			Title:       formValuePtr(form.Value, "title"),
			Description: formValuePtr(form.Value, "description"),
			Status:      formValuePtr(form.Value, "status"),
			Priority:    formValuePtr(form.Value, "priority"),
			DueDate:     formValuePtr(form.Value, "due_date"),
		}
		files = collectAttachments(form.File)
	} else if err := c.ShouldBindJSON(&patch); err != nil {
		badRequestBody(c, err)
		return
	}

	res, err := h.todoService.Update(c.Request.Context(), uid, c.GetUint("todoID"), patch, files)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTodoWithUploadResponse("Todo updated successfully.", res, h.todoService.Now()))
}

// Delete DELETE /api/todos/:id
func (h *TodoHandler) Delete(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.todoService.Delete(c.Request.Context(), uid, c.GetUint("todoID")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Todo deleted successfully."})
}

// BulkDeleteRequest тело DELETE /api/todos/bulk-delete
type BulkDeleteRequest struct {
	IDs []uint `json:"ids"`
}

// BulkDelete удаляет несколько задач; чужие id молча пропускаются
func (h *TodoHandler) BulkDelete(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c, err)
		return
	}

	deleted, err := h.todoService.BulkDelete(c.Request.Context(), uid, req.IDs)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%d todo(s) deleted successfully.", deleted),
		"deleted": deleted,
	})
}

// DownloadPDF GET /api/todos/:id/download-pdf?pdf_id=
func (h *TodoHandler) DownloadPDF(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	pdfID, err := optionalUintQuery(c, "pdf_id")
	if err != nil {
		respondError(c, h.log, fmt.Errorf("%w: unknown attachment", apperrors.ErrNotFound))
		return
	}

	dl, err := h.todoService.DownloadAttachment(c.Request.Context(), uid, c.GetUint("todoID"), pdfID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer dl.Reader.Close()

	c.DataFromReader(http.StatusOK, dl.Size, dl.MimeType, dl.Reader, map[string]string{
		"Content-Disposition": contentDisposition(dl.Name),
	})
}

// DeletePDF DELETE /api/todos/:id/delete-pdf?pdf_id=
func (h *TodoHandler) DeletePDF(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	pdfID, err := optionalUintQuery(c, "pdf_id")
	if err != nil {
		respondError(c, h.log, fmt.Errorf("%w: unknown attachment", apperrors.ErrNotFound))
		return
	}
	if pdfID == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "pdf_id is required.", "error_type": "missing_pdf_id"})
		return
	}

	if err := h.todoService.DeleteAttachment(c.Request.Context(), uid, c.GetUint("todoID"), pdfID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "PDF deleted successfully."})
}

// StatusOptions GET /api/todos/status-options
func (h *TodoHandler) StatusOptions(c *gin.Context) {
	c.JSON(http.StatusOK, h.todoService.StatusOptions())
}

// PriorityOptions GET /api/todos/priority-options
func (h *TodoHandler) PriorityOptions(c *gin.Context) {
	c.JSON(http.StatusOK, h.todoService.PriorityOptions())
}

func parseListFilter(c *gin.Context) (service.ListFilter, error) {
	f := service.ListFilter{
		Status:    strings.TrimSpace(c.Query("status")),
		Priority:  strings.TrimSpace(c.Query("priority")),
		DueDate:   strings.TrimSpace(c.Query("due_date")),
		Search:    strings.TrimSpace(c.Query("search")),
		SortBy:    strings.TrimSpace(c.Query("sort_by")),
		SortOrder: strings.TrimSpace(c.Query("sort_order")),
	}

	if v := c.Query("overdue"); v != "" {
		overdue, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("%w: overdue must be a boolean", apperrors.ErrValidation)
		}
		f.Overdue = overdue
	}

	var err error
	if f.Page, err = intQuery(c, "page"); err != nil {
		return f, err
	}
	if f.PerPage, err = intQuery(c, "per_page"); err != nil {
		return f, err
	}
	return f, nil
}

func intQuery(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", apperrors.ErrValidation, key)
	}
	return n, nil
}

func optionalUintQuery(c *gin.Context, key string) (uint, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(n), nil
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

func (h *TodoHandler) parseMultipart(c *gin.Context) (*multipart.Form, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		return nil, err
	}
	return c.Request.MultipartForm, nil
}

// collectAttachments собирает файлы из всех поддерживаемых полей в порядке формы
func collectAttachments(files map[string][]*multipart.FileHeader) []service.AttachmentFile {
	var out []service.AttachmentFile
	for _, field := range attachmentFields {
		for _, fh := range files[field] {
			out = append(out, service.AttachmentFileFromHeader(fh))
		}
	}
	return out
}

func (h *TodoHandler) respondMultipartError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":      fmt.Sprintf("Request body exceeds %d bytes.", tooLarge.Limit),
			"error_type": "payload_too_large",
		})
		return
	}
	badRequestBody(c, err)
}

func formValue(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// formValuePtr отличает отсутствующее поле (nil) от пустого
func formValuePtr(values map[string][]string, key string) *string {
	v, ok := values[key]
	if !ok || len(v) == 0 {
		return nil
	}
	s := v[0]
	return &s
}

// contentDisposition кодирует имя файла по RFC 2231 для не-ASCII имен
func contentDisposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return `attachment; filename="document.pdf"`
}
