package testutil

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/todo-api/internal/domain/entity"
)

// SetupTestDB creates an in-memory SQLite database with the schema migrated.
// The connection is closed when the test ends.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&entity.User{},
		&entity.OTPChallenge{},
		&entity.Todo{},
		&entity.TodoAttachment{},
		&entity.AccessToken{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// CreateTestUser inserts a user with the given activation state.
func CreateTestUser(t *testing.T, db *gorm.DB, email, password string, activated bool) *entity.User {
	t.Helper()

	user := &entity.User{
		Email:       email,
		FirstName:   "Test",
		LastName:    "User",
		IsActivated: activated,
	}
	if err := user.SetPassword(password); err != nil {
		t.Fatalf("failed to hash test password: %v", err)
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestTodo inserts a pending todo for the user.
func CreateTestTodo(t *testing.T, db *gorm.DB, userID uint, title string, mutate ...func(*entity.Todo)) *entity.Todo {
	t.Helper()

	todo := &entity.Todo{
		UserID:   userID,
		Title:    title,
		Status:   entity.TodoStatusPending,
		Priority: entity.TodoPriorityMedium,
	}
	for _, fn := range mutate {
		fn(todo)
	}
	if err := db.Create(todo).Error; err != nil {
		t.Fatalf("failed to create test todo: %v", err)
	}
	return todo
}

// CreateTestAttachment inserts attachment metadata pointing at key.
func CreateTestAttachment(t *testing.T, db *gorm.DB, todoID uint, key, name string) *entity.TodoAttachment {
	t.Helper()

	a := &entity.TodoAttachment{
		TodoID:        todoID,
		PdfPath:       key,
		OriginalName:  name,
		FileSizeBytes: 1024,
		MimeType:      entity.PDFMimeType,
	}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("failed to create test attachment: %v", err)
	}
	return a
}

// Date returns the UTC calendar day y-m-d.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
