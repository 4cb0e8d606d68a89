package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/yourusername/todo-api/internal/domain/entity"
	apperrors "github.com/yourusername/todo-api/internal/pkg/errors"
)

var exportHeaders = []string{"ID", "Title", "Description", "Status", "Priority", "Due date", "Overdue", "Attachments", "Created at", "Updated at"}

// Export выгружает все подходящие под фильтры задачи (без пагинации)
// GET /api/todos/export?format=csv|xlsx
func (h *TodoHandler) Export(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		respondError(c, h.log, fmt.Errorf("%w: format must be one of: csv xlsx", apperrors.ErrValidation))
		return
	}

	f, err := parseListFilter(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	todos, err := h.todoService.Export(c.Request.Context(), uid, f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	now := h.todoService.Now()
	filename := fmt.Sprintf("todos_%s", now.Format("2006-01-02"))

	switch format {
	case "xlsx":
		h.exportXLSX(c, todos, now, filename)
	default:
		h.exportCSV(c, todos, now, filename)
	}
}

func exportRow(t *entity.Todo, now time.Time) []string {
	overdue := "No"
	if t.Computed(now).IsOverdue {
		overdue = "Yes"
	}
	return []string{
		strconv.FormatUint(uint64(t.ID), 10),
		sanitizeForExcel(t.Title),
		sanitizeForExcel(t.Description),
		t.Status.Label(),
		t.Priority.Label(),
		t.DueDateString(),
		overdue,
		strconv.Itoa(len(t.Attachments)),
		t.CreatedAt.UTC().Format(time.RFC3339),
		t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// exportCSV пишет CSV с BOM, чтобы Excel открыл UTF-8
func (h *TodoHandler) exportCSV(c *gin.Context, todos []entity.Todo, now time.Time, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))
	c.Status(http.StatusOK)

	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	writer.Write(exportHeaders)
	for i := range todos {
		writer.Write(exportRow(&todos[i], now))
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.log.Error("csv export failed", zap.Error(err))
	}
}

// exportXLSX пишет книгу через StreamWriter
func (h *TodoHandler) exportXLSX(c *gin.Context, todos []entity.Todo, now time.Time, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Todos"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		respondError(c, h.log, fmt.Errorf("failed to prepare sheet: %w", err))
		return
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		respondError(c, h.log, fmt.Errorf("failed to create stream writer: %w", err))
		return
	}

	header := make([]interface{}, len(exportHeaders))
	for i, v := range exportHeaders {
		header[i] = v
	}
	if err := sw.SetRow("A1", header); err != nil {
		respondError(c, h.log, fmt.Errorf("failed to write header: %w", err))
		return
	}

	for i := range todos {
		cells := exportRow(&todos[i], now)
		row := make([]interface{}, len(cells))
		for j, v := range cells {
			row[j] = v
		}
		row[0] = todos[i].ID
		row[7] = len(todos[i].Attachments)

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, row); err != nil {
			respondError(c, h.log, fmt.Errorf("failed to write row %d: %w", i+2, err))
			return
		}
	}

	if err := sw.Flush(); err != nil {
		respondError(c, h.log, fmt.Errorf("failed to flush sheet: %w", err))
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		h.log.Error("xlsx export failed", zap.Error(err))
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
