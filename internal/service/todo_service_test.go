package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yourusername/todo-api/internal/config"
	"github.com/yourusername/todo-api/internal/domain/entity"
	apperrors "github.com/yourusername/todo-api/internal/pkg/errors"
	"github.com/yourusername/todo-api/internal/repository/postgres"
	"github.com/yourusername/todo-api/internal/testutil"
	"github.com/yourusername/todo-api/pkg/storage"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

type todoFixture struct {
	db    *gorm.DB
	svc   *TodoService
	blobs *storage.LocalStorage
	owner *entity.User
	other *entity.User
}

func newTodoFixture(t *testing.T) *todoFixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	svc, err := NewTodoService(postgres.NewStore(db), blobs, config.TodoConfig{
		PerPage:         15,
		MaxPerPage:      100,
		MaxFileSizeMB:   20,
		MaxFilesPerReq:  10,
		AttachmentsPath: "todo-pdfs",
	}, nil)
	require.NoError(t, err)

	return &todoFixture{
		db:    db,
		svc:   svc,
		blobs: blobs,
		owner: testutil.CreateTestUser(t, db, "owner@x.com", "secret1", true),
		other: testutil.CreateTestUser(t, db, "other@x.com", "secret1", true),
	}
}

func pdfFile(name string) AttachmentFile {
	return AttachmentFile{
		Name:        name,
		Size:        int64(len(samplePDF)),
		ContentType: "application/pdf",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(samplePDF)), nil
		},
	}
}

func (f *todoFixture) blobExists(t *testing.T, key string) bool {
	t.Helper()
	ok, err := f.blobs.Exists(context.Background(), key)
	require.NoError(t, err)
	return ok
}

func TestTodoService_CreateWithOversizedMiddleFile(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	big := pdfFile("big.pdf")
	big.Size = 20<<20 + 1

	res, err := f.svc.Create(ctx, f.owner.ID, TodoInput{Title: "Taxes"}, []AttachmentFile{
		pdfFile("first.pdf"), big, pdfFile("third.pdf"),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Upload.Total)
	assert.Equal(t, 2, res.Upload.Success)
	assert.Equal(t, 1, res.Upload.Failed)
	assert.False(t, res.Upload.Results[1].OK())
	assert.Contains(t, res.Upload.Results[1].Reason, "too large")

	require.Len(t, res.Todo.Attachments, 2)
	assert.Equal(t, "first.pdf", res.Todo.Attachments[0].OriginalName)
	assert.Equal(t, "third.pdf", res.Todo.Attachments[1].OriginalName)
	for _, a := range res.Todo.Attachments {
		assert.True(t, strings.HasPrefix(a.PdfPath, "todo-pdfs/"))
		assert.True(t, f.blobExists(t, a.PdfPath))
	}

	assert.Equal(t, entity.TodoStatusPending, res.Todo.Status)
	assert.Equal(t, entity.TodoPriorityMedium, res.Todo.Priority)
}

func TestTodoService_AttachmentRejections(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	wrongType := pdfFile("image.png")
	wrongType.ContentType = "image/png"

	disguised := pdfFile("fake.pdf")
	disguised.Open = func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("just some text, not a pdf")), nil
	}

	failed := pdfFile("broken.pdf")
	failed.UploadErr = errors.New("client aborted")

	res, err := f.svc.Create(ctx, f.owner.ID, TodoInput{Title: "Mixed"}, []AttachmentFile{wrongType, disguised, failed})
	require.NoError(t, err, "ошибки файлов не отменяют задачу")

	assert.Equal(t, UploadSummary{Total: 3, Success: 0, Failed: 3}, UploadSummary{
		Total: res.Upload.Total, Success: res.Upload.Success, Failed: res.Upload.Failed,
	})
	assert.Empty(t, res.Todo.Attachments)
}

func TestTodoService_CreateValidation(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   TodoInput
	}{
		{"missing title", TodoInput{Title: "   "}},
		{"long title", TodoInput{Title: strings.Repeat("a", 256)}},
		{"long description", TodoInput{Title: "ok", Description: strings.Repeat("d", 1001)}},
		{"bad status", TodoInput{Title: "ok", Status: "archived"}},
		{"bad priority", TodoInput{Title: "ok", Priority: "critical"}},
		{"bad due date", TodoInput{Title: "ok", DueDate: "14/10/2026"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, f.owner.ID, tt.in, nil)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}

	t.Run("too many files", func(t *testing.T) {
		files := make([]AttachmentFile, 11)
		for i := range files {
			files[i] = pdfFile("f.pdf")
		}
		_, err := f.svc.Create(ctx, f.owner.ID, TodoInput{Title: "ok"}, files)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestTodoService_UpdatePartialAndAppend(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.owner.ID, TodoInput{
		Title: "Draft", Description: "keep me", Priority: "high", DueDate: "2026-10-20",
	}, []AttachmentFile{pdfFile("a.pdf")})
	require.NoError(t, err)
	id := created.Todo.ID

	status := "completed"
	res, err := f.svc.Update(ctx, f.owner.ID, id, TodoPatch{Status: &status}, []AttachmentFile{pdfFile("b.pdf")})
	require.NoError(t, err)
	assert.Equal(t, entity.TodoStatusCompleted, res.Todo.Status)
	assert.Equal(t, "Draft", res.Todo.Title)
	assert.Equal(t, "keep me", res.Todo.Description)
	assert.Equal(t, entity.TodoPriorityHigh, res.Todo.Priority)
	assert.Equal(t, "2026-10-20", res.Todo.DueDateString())
	assert.Len(t, res.Todo.Attachments, 2, "новые вложения добавляются к существующим")

	clear := ""
	res, err = f.svc.Update(ctx, f.owner.ID, id, TodoPatch{DueDate: &clear}, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Todo.DueDate)

	empty := ""
	_, err = f.svc.Update(ctx, f.owner.ID, id, TodoPatch{Title: &empty}, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.Update(ctx, f.other.ID, id, TodoPatch{Status: &status}, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTodoService_DueDateSetClearAndReject(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.owner.ID, TodoInput{Title: "Bad", DueDate: "2026-02-30"}, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	created, err := f.svc.Create(ctx, f.owner.ID, TodoInput{Title: "Dated"}, nil)
	require.NoError(t, err)
	id := created.Todo.ID
	assert.Nil(t, created.Todo.DueDate)

	due := "2026-11-01"
	res, err := f.svc.Update(ctx, f.owner.ID, id, TodoPatch{DueDate: &due}, nil)
	require.NoError(t, err)
	assert.Equal(t, "2026-11-01", res.Todo.DueDateString())

	bad := "01.11.2026"
	_, err = f.svc.Update(ctx, f.owner.ID, id, TodoPatch{DueDate: &bad}, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	clear := ""
	res, err = f.svc.Update(ctx, f.owner.ID, id, TodoPatch{DueDate: &clear}, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Todo.DueDate)
	assert.Equal(t, "", res.Todo.DueDateString())

	_, err = f.svc.List(ctx, f.owner.ID, ListFilter{DueDate: "nope"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestTodoService_DeleteRemovesBlobsAndRecords(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, f.owner.ID, TodoInput{Title: "With files"},
		[]AttachmentFile{pdfFile("a.pdf"), pdfFile("b.pdf"), pdfFile("c.pdf")})
	require.NoError(t, err)
	require.Len(t, res.Todo.Attachments, 3)
	attachments := res.Todo.Attachments

	assert.ErrorIs(t, f.svc.Delete(ctx, f.other.ID, res.Todo.ID), apperrors.ErrNotFound)
	require.NoError(t, f.svc.Delete(ctx, f.owner.ID, res.Todo.ID))

	for _, a := range attachments {
		assert.False(t, f.blobExists(t, a.PdfPath))
		_, err := f.svc.DownloadAttachment(ctx, f.owner.ID, res.Todo.ID, a.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	}

	var n int64
	require.NoError(t, f.db.Model(&entity.TodoAttachment{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)

	_, err = f.svc.Get(ctx, f.owner.ID, res.Todo.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTodoService_DeleteToleratesMissingBlob(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	todo := testutil.CreateTestTodo(t, f.db, f.owner.ID, "dangling")
	testutil.CreateTestAttachment(t, f.db, todo.ID, "todo-pdfs/gone.pdf", "gone.pdf")

	require.NoError(t, f.svc.Delete(ctx, f.owner.ID, todo.ID))
}

func TestTodoService_BulkDelete(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	a := testutil.CreateTestTodo(t, f.db, f.owner.ID, "a")
	b := testutil.CreateTestTodo(t, f.db, f.owner.ID, "b")
	foreign := testutil.CreateTestTodo(t, f.db, f.other.ID, "foreign")

	deleted, err := f.svc.BulkDelete(ctx, f.owner.ID, []uint{a.ID, b.ID, foreign.ID, 9999})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = f.svc.Get(ctx, f.other.ID, foreign.ID)
	assert.NoError(t, err, "чужие задачи не затрагиваются")

	_, err = f.svc.BulkDelete(ctx, f.owner.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestTodoService_DownloadAttachment(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, f.owner.ID, TodoInput{Title: "Doc"},
		[]AttachmentFile{pdfFile("first.pdf"), pdfFile("second.pdf")})
	require.NoError(t, err)
	second := res.Todo.Attachments[1]

	dl, err := f.svc.DownloadAttachment(ctx, f.owner.ID, res.Todo.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "first.pdf", dl.Name)
	data, err := io.ReadAll(dl.Reader)
	dl.Reader.Close()
	require.NoError(t, err)
	assert.Equal(t, samplePDF, data)

	dl, err = f.svc.DownloadAttachment(ctx, f.owner.ID, res.Todo.ID, second.ID)
	require.NoError(t, err)
	dl.Reader.Close()
	assert.Equal(t, "second.pdf", dl.Name)

	_, err = f.svc.DownloadAttachment(ctx, f.other.ID, res.Todo.ID, second.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "чужая задача")

	require.NoError(t, f.blobs.Delete(ctx, second.PdfPath))
	_, err = f.svc.DownloadAttachment(ctx, f.owner.ID, res.Todo.ID, second.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "запись без файла")

	empty := testutil.CreateTestTodo(t, f.db, f.owner.ID, "no files")
	_, err = f.svc.DownloadAttachment(ctx, f.owner.ID, empty.ID, 0)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTodoService_DeleteAttachment(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, f.owner.ID, TodoInput{Title: "Doc"}, []AttachmentFile{pdfFile("a.pdf")})
	require.NoError(t, err)
	a := res.Todo.Attachments[0]

	assert.ErrorIs(t, f.svc.DeleteAttachment(ctx, f.owner.ID, res.Todo.ID, 0), apperrors.ErrValidation)
	assert.ErrorIs(t, f.svc.DeleteAttachment(ctx, f.other.ID, res.Todo.ID, a.ID), apperrors.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteAttachment(ctx, f.owner.ID, res.Todo.ID, a.ID+100), apperrors.ErrNotFound)

	require.NoError(t, f.svc.DeleteAttachment(ctx, f.owner.ID, res.Todo.ID, a.ID))
	assert.False(t, f.blobExists(t, a.PdfPath))

	todo, err := f.svc.Get(ctx, f.owner.ID, res.Todo.ID)
	require.NoError(t, err)
	assert.Empty(t, todo.Attachments)
}

func TestTodoService_ListPagination(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		testutil.CreateTestTodo(t, f.db, f.owner.ID, "todo")
	}

	res, err := f.svc.List(ctx, f.owner.ID, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(20), res.Total)
	assert.Equal(t, 15, res.PerPage)
	assert.Equal(t, 2, res.LastPage)
	assert.Len(t, res.Items, 15)

	res, err = f.svc.List(ctx, f.owner.ID, ListFilter{Page: 2})
	require.NoError(t, err)
	assert.Len(t, res.Items, 5)

	res, err = f.svc.List(ctx, f.owner.ID, ListFilter{PerPage: 1000})
	require.NoError(t, err)
	assert.Equal(t, 100, res.PerPage, "per_page ограничен сверху")

	_, err = f.svc.List(ctx, f.owner.ID, ListFilter{SortBy: "password"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.List(ctx, f.owner.ID, ListFilter{Status: "archived"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestTodoService_ListOverdueUsesServiceClock(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()
	f.svc.now = func() time.Time { return time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC) }

	testutil.CreateTestTodo(t, f.db, f.owner.ID, "late", func(td *entity.Todo) {
		td.DueDate = entity.NewDate(testutil.Date(2026, 10, 13))
	})
	testutil.CreateTestTodo(t, f.db, f.owner.ID, "late but done", func(td *entity.Todo) {
		td.DueDate = entity.NewDate(testutil.Date(2026, 10, 13))
		td.Status = entity.TodoStatusCompleted
	})
	testutil.CreateTestTodo(t, f.db, f.owner.ID, "tomorrow", func(td *entity.Todo) {
		td.DueDate = entity.NewDate(testutil.Date(2026, 10, 15))
	})

	res, err := f.svc.List(ctx, f.owner.ID, ListFilter{Overdue: true})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "late", res.Items[0].Title)
	assert.True(t, res.Items[0].Computed(f.svc.Now()).IsOverdue)

	all, err := f.svc.Export(ctx, f.owner.ID, ListFilter{SortBy: "due_date", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "tomorrow", all[2].Title)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"report.pdf", "report.pdf"},
		{"my report (final).pdf", "my_report_final.pdf"},
		{"../../etc/passwd", "etc_passwd.pdf"},
		{"отчёт.pdf", "document.pdf"},
		{"Scan.PDF", "Scan.pdf"},
		{"", "document.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFilename(tt.in))
		})
	}

	assert.Equal(t, "passwd", originalName("../../etc/passwd"))
	assert.Equal(t, "scan.pdf", originalName(`C:\Users\ann\scan.pdf`))
}
