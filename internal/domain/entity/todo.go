package entity

import (
	"time"

	"gorm.io/datatypes"
)

// TodoStatus is the completion state of a todo.
type TodoStatus string

const (
	TodoStatusPending   TodoStatus = "pending"
	TodoStatusCompleted TodoStatus = "completed"
)

// TodoPriority is the urgency of a todo.
type TodoPriority string

const (
	TodoPriorityLow    TodoPriority = "low"
	TodoPriorityMedium TodoPriority = "medium"
	TodoPriorityHigh   TodoPriority = "high"
	TodoPriorityUrgent TodoPriority = "urgent"
)

// Field limits shared by validation and the schema.
const (
	TodoTitleMaxLen       = 255
	TodoDescriptionMaxLen = 1000
)

var todoStatusLabels = map[TodoStatus]string{
	TodoStatusPending:   "Pending",
	TodoStatusCompleted: "Completed",
}

var todoStatusColors = map[TodoStatus]string{
	TodoStatusPending:   "#f59e0b",
	TodoStatusCompleted: "#22c55e",
}

var todoPriorityLabels = map[TodoPriority]string{
	TodoPriorityLow:    "Low",
	TodoPriorityMedium: "Medium",
	TodoPriorityHigh:   "High",
	TodoPriorityUrgent: "Urgent",
}

var todoPriorityColors = map[TodoPriority]string{
	TodoPriorityLow:    "#22c55e",
	TodoPriorityMedium: "#3b82f6",
	TodoPriorityHigh:   "#f97316",
	TodoPriorityUrgent: "#ef4444",
}

// IsValid reports whether s is a known status.
func (s TodoStatus) IsValid() bool {
	_, ok := todoStatusLabels[s]
	return ok
}

func (s TodoStatus) Label() string { return todoStatusLabels[s] }

// Color returns a presentation hint, grey for unknown values.
func (s TodoStatus) Color() string {
	if c, ok := todoStatusColors[s]; ok {
		return c
	}
	return "#6b7280"
}

// IsValid reports whether p is a known priority.
func (p TodoPriority) IsValid() bool {
	_, ok := todoPriorityLabels[p]
	return ok
}

func (p TodoPriority) Label() string { return todoPriorityLabels[p] }

// Color returns a presentation hint, grey for unknown values.
func (p TodoPriority) Color() string {
	if c, ok := todoPriorityColors[p]; ok {
		return c
	}
	return "#6b7280"
}

// TodoStatusOptions returns value -> label for every status.
func TodoStatusOptions() map[string]string {
	out := make(map[string]string, len(todoStatusLabels))
	for k, v := range todoStatusLabels {
		out[string(k)] = v
	}
	return out
}

// TodoPriorityOptions returns value -> label for every priority.
func TodoPriorityOptions() map[string]string {
	out := make(map[string]string, len(todoPriorityLabels))
	for k, v := range todoPriorityLabels {
		out[string(k)] = v
	}
	return out
}

// Todo is a task owned by a single user.
type Todo struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UserID      uint             `gorm:"not null;index" json:"user_id"`
	Title       string           `gorm:"size:255;not null" json:"title"`
	Description string           `gorm:"size:1000;not null;default:''" json:"description"`
	Status      TodoStatus       `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Priority    TodoPriority     `gorm:"size:20;not null;default:'medium';index" json:"priority"`
	DueDate     *datatypes.Date  `gorm:"index" json:"due_date,omitempty"`
	Attachments []TodoAttachment `gorm:"foreignKey:TodoID" json:"attachments,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func (Todo) TableName() string {
	return "todos"
}

// TodoComputed holds derived fields that are never persisted.
type TodoComputed struct {
	IsOverdue     bool   `json:"is_overdue"`
	IsDueToday    bool   `json:"is_due_today"`
	PriorityColor string `json:"priority_color"`
	StatusColor   string `json:"status_color"`
}

// Computed derives the read-time fields relative to now.
func (t *Todo) Computed(now time.Time) TodoComputed {
	c := TodoComputed{
		PriorityColor: t.Priority.Color(),
		StatusColor:   t.Status.Color(),
	}
	if t.DueDate == nil {
		return c
	}

	due := DateOnly(time.Time(*t.DueDate), now.Location())
	today := DateOnly(now, now.Location())

	c.IsDueToday = due.Equal(today)
	c.IsOverdue = due.Before(today) && t.Status != TodoStatusCompleted
	return c
}

// DueDateString formats the due date as YYYY-MM-DD, empty when unset.
func (t *Todo) DueDateString() string {
	if t.DueDate == nil {
		return ""
	}
	return time.Time(*t.DueDate).Format(DateLayout)
}

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// DateOnly truncates t to midnight of its calendar day in loc.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// NewDate builds a calendar date value for the due_date column.
// The calendar day of t is kept and pinned to UTC midnight.
func NewDate(t time.Time) *datatypes.Date {
	d := datatypes.Date(DateOnly(t, time.UTC))
	return &d
}
