package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/todo-api/internal/domain/entity"
)

// sniffLen bytes are read ahead to detect the real content type.
const sniffLen = 3072

// AttachmentFile is one uploaded file as seen by the service.
type AttachmentFile struct {
	Name        string
	Size        int64
	ContentType string
	// UploadErr is set when the client upload itself failed.
	UploadErr   error
	Open        func() (io.ReadCloser, error)
}

// AttachmentFileFromHeader adapts a multipart part.
func AttachmentFileFromHeader(fh *multipart.FileHeader) AttachmentFile {
	return AttachmentFile{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// AttachmentResult is the outcome for a single file: either the stored
// attachment or the reason it was skipped.
type AttachmentResult struct {
	Name       string                 `json:"original_name"`
	Attachment *entity.TodoAttachment `json:"attachment,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
}

func (r AttachmentResult) OK() bool { return r.Attachment != nil }

// UploadSummary aggregates per-file results.
type UploadSummary struct {
	Total   int                `json:"total"`
	Success int                `json:"success"`
	Failed  int                `json:"failed"`
	Results []AttachmentResult `json:"results,omitempty"`
}

func (u *UploadSummary) add(r AttachmentResult) {
	u.Total++
	if r.OK() {
		u.Success++
	} else {
		u.Failed++
	}
	u.Results = append(u.Results, r)
}

var (
	errUploadFailed = errors.New("upload failed")
	errNotPDF       = errors.New("file must be a PDF")
	errTooLarge     = errors.New("file is too large")
	errEmptyFile    = errors.New("file is empty")
)

func (s *TodoService) attachFiles(ctx context.Context, todoID uint, files []AttachmentFile) UploadSummary {
	var summary UploadSummary
	for _, f := range files {
		summary.add(s.attachOne(ctx, todoID, f))
	}
	return summary
}

func (s *TodoService) attachOne(ctx context.Context, todoID uint, f AttachmentFile) AttachmentResult {
	name := originalName(f.Name)
	res := AttachmentResult{Name: name}

	a, err := s.storeAttachment(ctx, todoID, name, f)
	if err != nil {
		s.log.Warn("attachment skipped",
			zap.Uint("todo_id", todoID), zap.String("file", name), zap.Error(err))
		res.Reason = err.Error()
		return res
	}
	res.Attachment = a
	return res
}

func (s *TodoService) storeAttachment(ctx context.Context, todoID uint, name string, f AttachmentFile) (*entity.TodoAttachment, error) {
	if f.UploadErr != nil || f.Open == nil {
		return nil, errUploadFailed
	}
	if !isPDFContentType(f.ContentType) {
		return nil, errNotPDF
	}
	if f.Size > s.cfg.MaxFileSize() {
		return nil, fmt.Errorf("%w: limit is %d MiB", errTooLarge, s.cfg.MaxFileSizeMB)
	}
	if f.Size == 0 {
		return nil, errEmptyFile
	}

	src, err := f.Open()
	if err != nil {
		return nil, errUploadFailed
	}
	defer src.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, errUploadFailed
	}
	head = head[:n]
	if !mimetype.Detect(head).Is(entity.PDFMimeType) {
		return nil, errNotPDF
	}

	key := s.attachmentKey(name)
	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), src), s.cfg.MaxFileSize())
	if err := s.blobs.Put(ctx, key, body, f.Size, entity.PDFMimeType); err != nil {
		return nil, fmt.Errorf("storage error: %w", err)
	}

	a := &entity.TodoAttachment{
		TodoID:        todoID,
		PdfPath:       key,
		OriginalName:  name,
		FileSizeBytes: f.Size,
		MimeType:      entity.PDFMimeType,
	}
	if err := s.store.Attachments().Create(ctx, a); err != nil {
		// без записи blob недостижим
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.log.Error("failed to remove orphaned blob", zap.String("key", key), zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to record attachment: %w", err)
	}
	return a, nil
}

func isPDFContentType(ct string) bool {
	mt := strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
	return mt == entity.PDFMimeType
}

func (s *TodoService) attachmentKey(name string) string {
	return strings.TrimSuffix(s.cfg.AttachmentsPath, "/") + "/" + uuid.NewString() + "_" + sanitizeFilename(name)
}

// originalName keeps the client filename for display, without any path.
func originalName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimSpace(filepath.Base("/" + name))
	if name == "/" || name == "." || name == "" {
		name = "document.pdf"
	}
	for len(name) > 255 {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}

// sanitizeFilename reduces name to a safe storage key segment.
func sanitizeFilename(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	out := b.String()
	if strings.HasSuffix(strings.ToLower(out), ".pdf") {
		out = out[:len(out)-len(".pdf")]
	}
	out = strings.Trim(out, "._-")
	if len(out) > 96 {
		out = out[:96]
	}
	if out == "" {
		out = "document"
	}
	return out + ".pdf"
}
