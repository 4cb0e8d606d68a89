package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/todo-api/internal/domain/entity"
	"github.com/yourusername/todo-api/internal/domain/repository"
	apperrors "github.com/yourusername/todo-api/internal/pkg/errors"
	"github.com/yourusername/todo-api/internal/testutil"
)

func TestTodoRepo_ListFiltersAndCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewTodoRepo(db)

	owner := testutil.CreateTestUser(t, db, "owner@example.com", "password123", true)
	other := testutil.CreateTestUser(t, db, "other@example.com", "password123", true)

	today := testutil.Date(2026, 10, 14)
	testutil.CreateTestTodo(t, db, owner.ID, "Buy milk", func(td *entity.Todo) {
		td.DueDate = entity.NewDate(today.AddDate(0, 0, -2))
		td.Priority = entity.TodoPriorityHigh
	})
	testutil.CreateTestTodo(t, db, owner.ID, "Write report", func(td *entity.Todo) {
		td.Description = "quarterly MILK numbers"
		td.DueDate = entity.NewDate(today)
	})
	testutil.CreateTestTodo(t, db, owner.ID, "Old done", func(td *entity.Todo) {
		td.Status = entity.TodoStatusCompleted
		td.DueDate = entity.NewDate(today.AddDate(0, 0, -5))
	})
	testutil.CreateTestTodo(t, db, other.ID, "Foreign milk")

	todos, total, err := repo.List(ctx, owner.ID, repository.TodoFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, todos, 3)

	todos, total, err = repo.List(ctx, owner.ID, repository.TodoFilter{Search: "milk"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total, "поиск по title и description без учета регистра")
	for _, td := range todos {
		assert.Equal(t, owner.ID, td.UserID)
	}

	todos, total, err = repo.List(ctx, owner.ID, repository.TodoFilter{Overdue: true, Today: today})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "Buy milk", todos[0].Title)

	_, total, err = repo.List(ctx, owner.ID, repository.TodoFilter{Status: entity.TodoStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = repo.List(ctx, owner.ID, repository.TodoFilter{Priority: entity.TodoPriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	todos, total, err = repo.List(ctx, owner.ID, repository.TodoFilter{DueDate: &today})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "Write report", todos[0].Title)
}

func TestTodoRepo_ListPaginationAndSort(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewTodoRepo(db)

	owner := testutil.CreateTestUser(t, db, "owner@example.com", "password123", true)
	for _, title := range []string{"c", "a", "e", "b", "d"} {
		testutil.CreateTestTodo(t, db, owner.ID, title)
	}

	todos, total, err := repo.List(ctx, owner.ID, repository.TodoFilter{SortBy: "title", Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total, "total не зависит от пагинации")
	require.Len(t, todos, 2)
	assert.Equal(t, "c", todos[0].Title)
	assert.Equal(t, "d", todos[1].Title)

	todos, _, err = repo.List(ctx, owner.ID, repository.TodoFilter{SortBy: "title; DROP TABLE todos", SortDesc: true})
	require.NoError(t, err, "неизвестная колонка заменяется на created_at")
	assert.Len(t, todos, 5)
}

func TestTodoRepo_GetForUserScopesOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewTodoRepo(db)

	owner := testutil.CreateTestUser(t, db, "owner@example.com", "password123", true)
	other := testutil.CreateTestUser(t, db, "other@example.com", "password123", true)
	todo := testutil.CreateTestTodo(t, db, owner.ID, "Mine")
	testutil.CreateTestAttachment(t, db, todo.ID, "todo-pdfs/b.pdf", "b.pdf")
	testutil.CreateTestAttachment(t, db, todo.ID, "todo-pdfs/a.pdf", "a.pdf")

	got, err := repo.GetForUser(ctx, todo.ID, owner.ID)
	require.NoError(t, err)
	require.Len(t, got.Attachments, 2)
	assert.Equal(t, "b.pdf", got.Attachments[0].OriginalName)

	_, err = repo.GetForUser(ctx, todo.ID, other.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTodoRepo_UpdateDeleteAndOwnedIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewTodoRepo(db)

	owner := testutil.CreateTestUser(t, db, "owner@example.com", "password123", true)
	other := testutil.CreateTestUser(t, db, "other@example.com", "password123", true)
	a := testutil.CreateTestTodo(t, db, owner.ID, "a")
	b := testutil.CreateTestTodo(t, db, owner.ID, "b")
	c := testutil.CreateTestTodo(t, db, other.ID, "c")

	require.NoError(t, repo.Update(ctx, a.ID, map[string]interface{}{"status": entity.TodoStatusCompleted}))
	got, err := repo.GetForUser(ctx, a.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TodoStatusCompleted, got.Status)

	owned, err := repo.OwnedIDs(ctx, owner.ID, []uint{c.ID, b.ID, a.ID, 9999})
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID, b.ID}, owned)

	require.NoError(t, repo.Delete(ctx, a.ID))
	assert.ErrorIs(t, repo.Delete(ctx, a.ID), apperrors.ErrNotFound)
}

func TestStore_DoRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	store := NewStore(db)

	owner := testutil.CreateTestUser(t, db, "owner@example.com", "password123", true)
	todo := testutil.CreateTestTodo(t, db, owner.ID, "keep me")

	err := store.Do(ctx, func(tx repository.Store) error {
		if err := tx.Todos().Delete(ctx, todo.ID); err != nil {
			return err
		}
		return apperrors.ErrNotification
	})
	require.ErrorIs(t, err, apperrors.ErrNotification)

	_, err = store.Todos().GetForUser(ctx, todo.ID, owner.ID)
	assert.NoError(t, err, "удаление откатывается вместе с транзакцией")
}

func pendingUser(t *testing.T, email, password, firstName string) *entity.User {
	t.Helper()
	u := &entity.User{Email: email, FirstName: firstName}
	require.NoError(t, u.SetPassword(password))
	return u
}

func TestUserRepo_UpsertPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepo(db)

	u := pendingUser(t, "new@example.com", "first-pass", "Ann")
	require.NoError(t, repo.UpsertPending(ctx, u))
	require.NotZero(t, u.ID)
	firstID := u.ID

	again := pendingUser(t, "new@example.com", "second-pass", "Anna")
	require.NoError(t, repo.UpsertPending(ctx, again))
	assert.Equal(t, firstID, again.ID)

	stored, err := repo.GetByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.True(t, stored.CheckPassword("second-pass"))
	assert.Equal(t, "Anna", stored.FirstName)

	require.NoError(t, repo.Activate(ctx, firstID))
	err = repo.UpsertPending(ctx, pendingUser(t, "new@example.com", "third-pass", ""))
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	assert.ErrorIs(t, repo.Activate(ctx, 424242), apperrors.ErrNotFound)
}

func TestOTPChallengeRepo_FindActionable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewOTPChallengeRepo(db)

	user := testutil.CreateTestUser(t, db, "otp@example.com", "password123", false)
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	live := entity.NewOTPChallenge(user.ID, "123456", now, 10*time.Minute)
	stale := entity.NewOTPChallenge(user.ID, "654321", now.Add(-time.Hour), 10*time.Minute)
	require.NoError(t, repo.Create(ctx, live))
	require.NoError(t, repo.Create(ctx, stale))

	got, err := repo.FindActionable(ctx, user.ID, "123456", now)
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)

	_, err = repo.FindActionable(ctx, user.ID, "654321", now)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, repo.MarkVerified(ctx, live.ID))
	_, err = repo.FindActionable(ctx, user.ID, "123456", now)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAccessTokenRepo_Revoke(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewAccessTokenRepo(db)

	user := testutil.CreateTestUser(t, db, "tok@example.com", "password123", true)
	exp := time.Now().Add(time.Hour)
	require.NoError(t, repo.Create(ctx, entity.NewAccessToken(user.ID, "jti-1", exp)))
	require.NoError(t, repo.Create(ctx, entity.NewAccessToken(user.ID, "jti-2", exp)))

	n, err := repo.RevokeAllForUser(ctx, user.ID, entity.RevokeReasonNewSession)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	tok, err := repo.GetByJTI(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, tok.IsValid(time.Now()))
	assert.Equal(t, entity.RevokeReasonNewSession, tok.Reason)

	require.NoError(t, repo.RevokeByJTI(ctx, "missing", entity.RevokeReasonLogout))

	_, err = repo.GetByJTI(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
