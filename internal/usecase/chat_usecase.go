package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"basera/internal/domain/entity"
	"basera/internal/domain/repository"
	"basera/internal/infrastructure/ratelimit"
	ws "basera/internal/infrastructure/websocket"
	"basera/pkg/errors"
	"basera/pkg/logger"
)

// LiveGateway is the fan-out surface the usecases emit through. It is
// injected rather than reached through a global handle; a nil gateway means
// no live transport is attached and events are simply not emitted.
type LiveGateway interface {
	SendToUser(userID string, payload []byte)
	BroadcastToConversation(conversationID string, payload []byte)
	BroadcastToConversationExcept(conversationID, exceptUserID string, payload []byte)
}

type ChatUseCase struct {
	convRepo    repository.ConversationRepository
	listingRepo repository.ListingRepository
	gateway     LiveGateway
	rateLimiter *ratelimit.RateLimiter
}

func NewChatUseCase(
	convRepo repository.ConversationRepository,
	listingRepo repository.ListingRepository,
	gateway LiveGateway,
) *ChatUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &ChatUseCase{
		convRepo:    convRepo,
		listingRepo: listingRepo,
		gateway:     gateway,
		rateLimiter: rateLimiter,
	}
}

type AppendMessageInput struct {
	ConversationID string
	Text           string
	ImageURL       string
}

// ConversationResponse annotates a conversation with the caller's unread
// count and the linked listing summary.
type ConversationResponse struct {
	*entity.Conversation
	UnreadCount int             `json:"unread_count"`
	Listing     *entity.Listing `json:"listing,omitempty"`
}

// GetOrCreate returns the conversation between userID and the listing's
// owner, creating it when absent. The deterministic conversation ID makes
// concurrent duplicate calls converge on a single conversation.
func (uc *ChatUseCase) GetOrCreate(ctx context.Context, userID, listingID string) (*ConversationResponse, error) {
	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !listing.Open() {
		return nil, errors.NotFound("Listing", nil)
	}

	if listing.OwnerID == userID {
		return nil, errors.InvalidOperation("You cannot start a conversation on your own listing")
	}

	convID := entity.ConversationID(listingID, userID, listing.OwnerID)

	// Reopening an existing conversation is free; only creation is limited.
	if existing, lookErr := uc.convRepo.GetByID(ctx, convID); lookErr == nil {
		return &ConversationResponse{
			Conversation: existing,
			UnreadCount:  existing.UnreadCountFor(userID),
			Listing:      listing,
		}, nil
	} else if !errors.Is(lookErr, "NOT_FOUND") {
		return nil, lookErr
	}

	allowed, waitTime := uc.rateLimiter.Allow(userID, "create_conversation")
	if !allowed {
		logger.Warn("GetOrCreate rate limited: user %s must wait %v", userID, waitTime)
		return nil, errors.TooManyRequests("Too many new conversations. Please wait before starting another")
	}

	conv := &entity.Conversation{
		ID:           convID,
		ListingID:    listingID,
		Participants: []string{userID, listing.OwnerID},
		DealStatus:   entity.DealStatusNone,
		IsActive:     true,
	}

	stored, created, err := uc.convRepo.GetOrCreate(ctx, conv)
	if err != nil {
		logger.Error("GetOrCreate failed for listing %s, user %s: %v", listingID, userID, err)
		return nil, err
	}
	if created {
		logger.Info("Conversation %s created for listing %s", stored.ID, listingID)
	}

	return &ConversationResponse{
		Conversation: stored,
		UnreadCount:  stored.UnreadCountFor(userID),
		Listing:      listing,
	}, nil
}

// ListForUser returns the caller's conversations, most recently active first,
// each annotated with the caller's unread count.
func (uc *ChatUseCase) ListForUser(ctx context.Context, userID string, limit, offset int) ([]*ConversationResponse, int64, error) {
	conversations, total, err := uc.convRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]*ConversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		resp := &ConversationResponse{
			Conversation: conv,
			UnreadCount:  conv.UnreadCountFor(userID),
		}
		// Listing summary is best effort; a missing listing must not hide
		// the conversation.
		if listing, err := uc.listingRepo.GetByID(ctx, conv.ListingID); err == nil {
			resp.Listing = listing
		}
		responses = append(responses, resp)
	}

	return responses, total, nil
}

// Get fetches a single conversation for a participant. Fetching counts as
// reading: every unread message from the other side is marked read.
func (uc *ChatUseCase) Get(ctx context.Context, userID, conversationID string) (*ConversationResponse, error) {
	changed := 0
	conv, err := uc.convRepo.Mutate(ctx, conversationID, func(c *entity.Conversation) error {
		if !c.HasParticipant(userID) {
			return errors.Forbidden("You are not a participant in this conversation", nil)
		}
		changed = c.MarkReadFor(userID, time.Now())
		if changed == 0 {
			return repository.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed > 0 {
		uc.notifyMessagesRead(conv.ID, userID)
	}

	resp := &ConversationResponse{
		Conversation: conv,
		UnreadCount:  0,
	}
	if listing, err := uc.listingRepo.GetByID(ctx, conv.ListingID); err == nil {
		resp.Listing = listing
	}
	return resp, nil
}

// AppendMessage persists a message and, once the write has committed, fans it
// out to the conversation room and to the other participant's personal room.
func (uc *ChatUseCase) AppendMessage(ctx context.Context, userID string, input AppendMessageInput) (*entity.Message, error) {
	allowed, waitTime := uc.rateLimiter.Allow(userID, "send_message")
	if !allowed {
		logger.Warn("AppendMessage rate limited: user %s must wait %v", userID, waitTime)
		return nil, errors.TooManyRequests("You are sending messages too quickly. Please slow down")
	}

	if input.Text == "" && input.ImageURL == "" {
		return nil, errors.BadRequest("Message must carry text or an image", nil)
	}

	kind := entity.MessageKindText
	if input.ImageURL != "" {
		kind = entity.MessageKindImage
	}

	msg := entity.Message{
		ID:        uuid.New().String(),
		SenderID:  userID,
		Text:      input.Text,
		ImageURL:  input.ImageURL,
		Kind:      kind,
		CreatedAt: time.Now(),
	}

	conv, err := uc.convRepo.Mutate(ctx, input.ConversationID, func(c *entity.Conversation) error {
		if !c.HasParticipant(userID) {
			return errors.Forbidden("You are not a participant in this conversation", nil)
		}
		c.Append(msg)
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.notifyNewMessage(conv, &msg)

	return &msg, nil
}

// SendLiveMessage is the gateway entry point for send_message events. Same
// path as the request/response surface: persist, then fan out.
func (uc *ChatUseCase) SendLiveMessage(ctx context.Context, senderID, conversationID, text, imageURL string) (*entity.Message, error) {
	return uc.AppendMessage(ctx, senderID, AppendMessageInput{
		ConversationID: conversationID,
		Text:           text,
		ImageURL:       imageURL,
	})
}

// MarkConversationRead marks every unread message from the other participant
// as read and, when anything changed, tells the room about it.
func (uc *ChatUseCase) MarkConversationRead(ctx context.Context, userID, conversationID string) error {
	changed := 0
	conv, err := uc.convRepo.Mutate(ctx, conversationID, func(c *entity.Conversation) error {
		if !c.HasParticipant(userID) {
			return errors.Forbidden("You are not a participant in this conversation", nil)
		}
		changed = c.MarkReadFor(userID, time.Now())
		if changed == 0 {
			return repository.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return err
	}

	if changed > 0 {
		uc.notifyMessagesRead(conv.ID, userID)
	}
	return nil
}

// SetInactive soft-deletes the conversation for its participants. The message
// log is retained.
func (uc *ChatUseCase) SetInactive(ctx context.Context, userID, conversationID string) error {
	_, err := uc.convRepo.Mutate(ctx, conversationID, func(c *entity.Conversation) error {
		if !c.HasParticipant(userID) {
			return errors.Forbidden("You are not a participant in this conversation", nil)
		}
		if !c.IsActive {
			return repository.ErrNoChange
		}
		c.IsActive = false
		c.UpdatedAt = time.Now()
		return nil
	})
	return err
}

// notifyNewMessage performs the double fan-out for a committed message:
// new_message to the conversation room (sender's other devices included) and
// notification to each other participant's personal room, so users who have
// not joined the room still see a badge.
func (uc *ChatUseCase) notifyNewMessage(conv *entity.Conversation, msg *entity.Message) {
	if uc.gateway == nil {
		return
	}

	roomEvent, err := ws.Encode(ws.EventNewMessage, ws.NewMessagePayload{
		ConversationID: conv.ID,
		Message:        msg,
	})
	if err != nil {
		logger.Error("Failed to encode new_message event for conversation %s: %v", conv.ID, err)
		return
	}
	uc.gateway.BroadcastToConversation(conv.ID, roomEvent)

	notification, err := ws.Encode(ws.EventNotification, ws.NotificationPayload{
		Kind:           "new_message",
		ConversationID: conv.ID,
		Message:        msg,
	})
	if err != nil {
		return
	}
	for _, participantID := range conv.Participants {
		if participantID != msg.SenderID {
			uc.gateway.SendToUser(participantID, notification)
		}
	}
}

func (uc *ChatUseCase) notifyMessagesRead(conversationID, readerID string) {
	if uc.gateway == nil {
		return
	}

	event, err := ws.Encode(ws.EventMessagesRead, ws.MessagesReadPayload{
		ConversationID: conversationID,
		UserID:         readerID,
	})
	if err != nil {
		return
	}
	uc.gateway.BroadcastToConversationExcept(conversationID, readerID, event)
}
