package entity

import "time"

// PDFMimeType is the only accepted attachment type.
const PDFMimeType = "application/pdf"

// TodoAttachment is a PDF stored in the blob store and linked to a todo.
type TodoAttachment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TodoID        uint      `gorm:"not null;index" json:"todo_id"`
	PdfPath       string    `gorm:"size:512;not null" json:"-"`
	OriginalName  string    `gorm:"size:255;not null" json:"original_name"`
	FileSizeBytes int64     `gorm:"not null;default:0" json:"file_size_bytes"`
	MimeType      string    `gorm:"size:100;not null;default:'application/pdf'" json:"mime_type"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (TodoAttachment) TableName() string {
	return "todo_attachments"
}
