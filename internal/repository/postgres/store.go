package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/yourusername/todo-api/internal/domain/repository"
)

// Store собирает репозитории поверх одного *gorm.DB
type Store struct {
	db *gorm.DB
}

// NewStore создает Store; внутри транзакции db это tx
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Users() repository.UserRepository { return NewUserRepo(s.db) }

func (s *Store) OTPChallenges() repository.OTPChallengeRepository { return NewOTPChallengeRepo(s.db) }

func (s *Store) Todos() repository.TodoRepository { return NewTodoRepo(s.db) }

func (s *Store) Attachments() repository.AttachmentRepository { return NewAttachmentRepo(s.db) }

func (s *Store) AccessTokens() repository.AccessTokenRepository { return NewAccessTokenRepo(s.db) }

// Do выполняет fn в транзакции
func (s *Store) Do(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

var _ repository.Store = (*Store)(nil)
