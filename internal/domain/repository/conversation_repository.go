package repository

import (
	"context"
	"errors"

	"basera/internal/domain/entity"
)

// ErrNoChange is returned by a Mutate callback to signal that the current
// state already satisfies the mutation. Mutate then skips the write and
// returns the unchanged conversation, so idempotent operations (repeated
// read-marking, repeated soft delete) cost no commit and no updatedAt churn.
var ErrNoChange = errors.New("conversation unchanged")

// ConversationRepository owns conversation and message persistence.
//
// Mutate is the single-writer primitive: implementations must apply fn to the
// current stored state and persist the result atomically, so two concurrent
// mutations of the same conversation can never interleave. fn returning an
// error aborts the mutation without persisting.
type ConversationRepository interface {
	// GetOrCreate persists conv unless a conversation with the same ID
	// already exists, in which case the stored one is returned. The bool
	// reports whether a new conversation was created. Implementations must
	// guarantee at most one creation under concurrent duplicate calls.
	GetOrCreate(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, bool, error)

	GetByID(ctx context.Context, id string) (*entity.Conversation, error)

	// ListByUser returns conversations containing userID ordered by
	// updatedAt descending.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error)

	Mutate(ctx context.Context, id string, fn func(*entity.Conversation) error) (*entity.Conversation, error)
}
