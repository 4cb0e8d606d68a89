package repository

import "context"

// Store groups the repositories that share one database handle.
type Store interface {
	Users() UserRepository
	OTPChallenges() OTPChallengeRepository
	Todos() TodoRepository
	Attachments() AttachmentRepository
	AccessTokens() AccessTokenRepository

	// Do runs fn in a transaction. The Store passed to fn is bound to it;
	// fn returning an error (or panicking) rolls everything back.
	Do(ctx context.Context, fn func(tx Store) error) error
}
