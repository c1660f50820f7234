package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"basera/internal/domain/entity"
	"basera/internal/domain/repository"
	"basera/pkg/errors"
	"basera/pkg/logger"
)

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) GetOrCreate(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, bool, error) {
	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	// Create fails with AlreadyExists when another caller won the race for
	// the same deterministic document ID, which makes creation idempotent.
	docRef := r.client.Collection("conversations").Doc(conv.ID)
	_, err := docRef.Create(ctx, conv)
	if err == nil {
		return conv, true, nil
	}

	if status.Code(err) != codes.AlreadyExists {
		return nil, false, errors.Internal("Failed to create conversation", err)
	}

	existing, err := r.GetByID(ctx, conv.ID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.client.Collection("conversations").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", nil)
		}
		return nil, errors.Internal("Failed to get conversation", err)
	}

	var conv entity.Conversation
	if err := doc.DataTo(&conv); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}

	return &conv, nil
}

func (r *firestoreConversationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	query := r.client.Collection("conversations").
		Where("participants", "array-contains", userID).
		OrderBy("updatedAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching conversations for user %s: %v", userID, err)
		return nil, 0, errors.Internal("Failed to fetch conversations", err)
	}

	total := int64(len(allDocs))

	start := offset
	if start > len(allDocs) {
		start = len(allDocs)
	}
	end := len(allDocs)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var conversations []*entity.Conversation
	for i := start; i < end; i++ {
		var conv entity.Conversation
		if err := allDocs[i].DataTo(&conv); err != nil {
			logger.Warn("Skipping malformed conversation document %s: %v", allDocs[i].Ref.ID, err)
			continue
		}
		conversations = append(conversations, &conv)
	}

	return conversations, total, nil
}

// Mutate applies fn to the stored conversation inside a Firestore
// transaction. The transactional read-modify-write serializes concurrent
// mutations of the same conversation and keeps the embedded message log and
// its lastMessage summary consistent in a single commit.
func (r *firestoreConversationRepository) Mutate(ctx context.Context, id string, fn func(*entity.Conversation) error) (*entity.Conversation, error) {
	docRef := r.client.Collection("conversations").Doc(id)

	var result entity.Conversation
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Conversation", nil)
			}
			return errors.Internal("Failed to get conversation", err)
		}

		var conv entity.Conversation
		if err := doc.DataTo(&conv); err != nil {
			return errors.Internal("Failed to parse conversation data", err)
		}

		if err := fn(&conv); err != nil {
			if err == repository.ErrNoChange {
				result = conv
				return nil
			}
			return err
		}

		result = conv
		return tx.Set(docRef, &conv)
	})
	if err != nil {
		if _, ok := err.(*errors.AppError); ok {
			return nil, err
		}
		return nil, errors.Internal("Failed to update conversation", err)
	}

	return &result, nil
}
