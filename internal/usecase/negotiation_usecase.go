package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"basera/internal/domain/entity"
	"basera/internal/domain/repository"
	"basera/pkg/errors"
	"basera/pkg/logger"
)

// Deal system message texts shown in the conversation log.
const (
	dealProposalText = "I want to rent this property. Do we have a deal?"
	dealAcceptedText = "Deal accepted! The property is reserved for you."
	dealRejectedText = "Sorry, the deal is rejected."
)

// NegotiationUseCase runs the deal state machine over a conversation and its
// linked listing: none -> pending -> accepted or rejected, where rejected
// frees the conversation for a future re-proposal.
type NegotiationUseCase struct {
	convRepo    repository.ConversationRepository
	listingRepo repository.ListingRepository
	chat        *ChatUseCase
}

func NewNegotiationUseCase(
	convRepo repository.ConversationRepository,
	listingRepo repository.ListingRepository,
	chat *ChatUseCase,
) *NegotiationUseCase {
	return &NegotiationUseCase{
		convRepo:    convRepo,
		listingRepo: listingRepo,
		chat:        chat,
	}
}

// Propose puts the conversation's deal into pending. Only the counterparty
// may propose; the listing owner responds. The conversation commits first and
// the listing status update follows; on listing failure the deal status is
// rolled back so a retry starts clean.
func (uc *NegotiationUseCase) Propose(ctx context.Context, userID, conversationID string) (*entity.Conversation, error) {
	current, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	listing, err := uc.listingRepo.GetByID(ctx, current.ListingID)
	if err != nil {
		return nil, err
	}

	if userID == listing.OwnerID {
		return nil, errors.Forbidden("Only the interested party can propose a deal", nil)
	}

	msg := entity.Message{
		ID:        uuid.New().String(),
		SenderID:  userID,
		Text:      dealProposalText,
		Kind:      entity.MessageKindDealProposal,
		CreatedAt: time.Now(),
	}

	previousStatus := entity.DealStatusNone
	conv, err := uc.convRepo.Mutate(ctx, conversationID, func(c *entity.Conversation) error {
		if !c.HasParticipant(userID) {
			return errors.Forbidden("You are not a participant in this conversation", nil)
		}
		switch c.DealStatus {
		case entity.DealStatusPending:
			return errors.Conflict("A deal proposal is already pending")
		case entity.DealStatusAccepted:
			return errors.InvalidOperation("The deal has already been accepted")
		}
		previousStatus = c.DealStatus
		c.DealStatus = entity.DealStatusPending
		c.Append(msg)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := uc.listingRepo.UpdateStatus(ctx, listing.ID, entity.ListingStatusPending, nil); err != nil {
		logger.Error("Propose: listing %s status update failed after conversation %s committed: %v",
			listing.ID, conversationID, err)
		uc.revertDealStatus(ctx, conversationID, previousStatus)
		return nil, errors.Internal("Failed to update listing for the proposed deal", err)
	}

	uc.chat.notifyNewMessage(conv, &msg)

	return conv, nil
}

// Respond settles a pending deal. Only the listing owner may respond. Accept
// marks the listing dealed with a completion timestamp; reject reopens it.
func (uc *NegotiationUseCase) Respond(ctx context.Context, userID, conversationID string, accept bool) (*entity.Conversation, error) {
	current, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	listing, err := uc.listingRepo.GetByID(ctx, current.ListingID)
	if err != nil {
		return nil, err
	}

	if userID != listing.OwnerID {
		return nil, errors.Forbidden("Only the owner can respond to a deal", nil)
	}

	newStatus := entity.DealStatusRejected
	text := dealRejectedText
	kind := entity.MessageKindDealRejected
	if accept {
		newStatus = entity.DealStatusAccepted
		text = dealAcceptedText
		kind = entity.MessageKindDealAccepted
	}

	msg := entity.Message{
		ID:        uuid.New().String(),
		SenderID:  userID,
		Text:      text,
		Kind:      kind,
		CreatedAt: time.Now(),
	}

	conv, err := uc.convRepo.Mutate(ctx, conversationID, func(c *entity.Conversation) error {
		if !c.HasParticipant(userID) {
			return errors.Forbidden("You are not a participant in this conversation", nil)
		}
		if c.DealStatus != entity.DealStatusPending {
			return errors.InvalidOperation("No pending deal to respond to")
		}
		c.DealStatus = newStatus
		c.Append(msg)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var listingErr error
	if accept {
		completedAt := time.Now()
		listingErr = uc.listingRepo.UpdateStatus(ctx, listing.ID, entity.ListingStatusDealed, &completedAt)
	} else {
		listingErr = uc.listingRepo.UpdateStatus(ctx, listing.ID, entity.ListingStatusActive, nil)
	}
	if listingErr != nil {
		logger.Error("Respond: listing %s status update failed after conversation %s committed: %v",
			listing.ID, conversationID, listingErr)
		uc.revertDealStatus(ctx, conversationID, entity.DealStatusPending)
		return nil, errors.Internal("Failed to update listing for the deal response", listingErr)
	}

	uc.chat.notifyNewMessage(conv, &msg)

	return conv, nil
}

// revertDealStatus compensates a committed conversation update after the
// listing store failed. The system message stays in the append-only log; only
// the deal status is restored. Best effort: a second failure is logged and
// left for the next retry to reconcile.
func (uc *NegotiationUseCase) revertDealStatus(ctx context.Context, conversationID string, status entity.DealStatus) {
	_, err := uc.convRepo.Mutate(ctx, conversationID, func(c *entity.Conversation) error {
		if c.DealStatus == status {
			return repository.ErrNoChange
		}
		c.DealStatus = status
		c.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		logger.Error("Failed to revert deal status for conversation %s to %s: %v", conversationID, status, err)
	}
}
