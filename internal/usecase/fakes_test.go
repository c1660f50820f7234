package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"basera/internal/domain/entity"
	"basera/internal/domain/repository"
	"basera/pkg/errors"
)

// memConversationRepo mirrors the Firestore repository's contract in memory:
// idempotent GetOrCreate on the deterministic ID and serialized Mutate.
type memConversationRepo struct {
	mu    sync.Mutex
	convs map[string]*entity.Conversation
}

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{
		convs: make(map[string]*entity.Conversation),
	}
}

func cloneConversation(c *entity.Conversation) *entity.Conversation {
	out := *c
	out.Participants = append([]string(nil), c.Participants...)
	out.Messages = append([]entity.Message(nil), c.Messages...)
	if len(out.Messages) > 0 {
		last := out.Messages[len(out.Messages)-1]
		out.LastMessage = &last
	} else if c.LastMessage != nil {
		last := *c.LastMessage
		out.LastMessage = &last
	}
	return &out
}

func (r *memConversationRepo) GetOrCreate(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.convs[conv.ID]; ok {
		return cloneConversation(existing), false, nil
	}

	now := time.Now()
	stored := cloneConversation(conv)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.convs[conv.ID] = stored
	return cloneConversation(stored), true, nil
}

func (r *memConversationRepo) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.convs[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return cloneConversation(conv), nil
}

func (r *memConversationRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*entity.Conversation
	for _, conv := range r.convs {
		if conv.HasParticipant(userID) {
			matched = append(matched, cloneConversation(conv))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	total := int64(len(matched))
	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *memConversationRepo) Mutate(ctx context.Context, id string, fn func(*entity.Conversation) error) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.convs[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}

	working := cloneConversation(conv)
	if err := fn(working); err != nil {
		if err == repository.ErrNoChange {
			return working, nil
		}
		if _, isApp := err.(*errors.AppError); isApp {
			return nil, err
		}
		return nil, errors.Internal("Failed to update conversation", err)
	}

	r.convs[id] = working
	return cloneConversation(working), nil
}

// memListingRepo is a map-backed listing store with injectable failures for
// the compensation paths.
type memListingRepo struct {
	mu       sync.Mutex
	listings map[string]*entity.Listing
	nextID   int

	// When set, UpdateStatus fails with this error once and then clears it.
	failUpdateStatusOnce error
}

func newMemListingRepo() *memListingRepo {
	return &memListingRepo{
		listings: make(map[string]*entity.Listing),
	}
}

func (r *memListingRepo) put(listing *entity.Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *listing
	r.listings[listing.ID] = &stored
}

func (r *memListingRepo) Create(ctx context.Context, listing *entity.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	if listing.ID == "" {
		listing.ID = "listing-" + time.Now().Format("150405") + "-" + string(rune('a'+r.nextID%26))
	}
	now := time.Now()
	listing.CreatedAt = now
	listing.UpdatedAt = now
	stored := *listing
	r.listings[listing.ID] = &stored
	return nil
}

func (r *memListingRepo) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	listing, ok := r.listings[id]
	if !ok {
		return nil, errors.NotFound("Listing", nil)
	}
	out := *listing
	return &out, nil
}

func (r *memListingRepo) Update(ctx context.Context, listing *entity.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.listings[listing.ID]; !ok {
		return errors.NotFound("Listing", nil)
	}
	listing.UpdatedAt = time.Now()
	stored := *listing
	r.listings[listing.ID] = &stored
	return nil
}

func (r *memListingRepo) UpdateStatus(ctx context.Context, id string, status entity.ListingStatus, dealCompletedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failUpdateStatusOnce != nil {
		err := r.failUpdateStatusOnce
		r.failUpdateStatusOnce = nil
		return err
	}

	listing, ok := r.listings[id]
	if !ok {
		return errors.NotFound("Listing", nil)
	}
	listing.Status = status
	listing.DealCompletedAt = dealCompletedAt
	listing.UpdatedAt = time.Now()
	return nil
}

func (r *memListingRepo) List(ctx context.Context, filter repository.ListingFilter) ([]*entity.Listing, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*entity.Listing
	for _, listing := range r.listings {
		if listing.Status != entity.ListingStatusActive {
			continue
		}
		if filter.City != "" && listing.Location.City != filter.City {
			continue
		}
		if filter.Type != "" && listing.Type != filter.Type {
			continue
		}
		if filter.MinPrice > 0 && listing.Price < filter.MinPrice {
			continue
		}
		if filter.MaxPrice > 0 && listing.Price > filter.MaxPrice {
			continue
		}
		out := *listing
		matched = append(matched, &out)
	}
	return matched, int64(len(matched)), nil
}

func (r *memListingRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Listing, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*entity.Listing
	for _, listing := range r.listings {
		if listing.OwnerID == ownerID && listing.Status != entity.ListingStatusDeleted {
			out := *listing
			matched = append(matched, &out)
		}
	}
	return matched, int64(len(matched)), nil
}

func (r *memListingRepo) IncrementViews(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	listing, ok := r.listings[id]
	if !ok {
		return errors.NotFound("Listing", nil)
	}
	listing.Views++
	return nil
}

func (r *memListingRepo) ExpireOlderThan(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	expired := 0
	for _, listing := range r.listings {
		if listing.Status == entity.ListingStatusActive && listing.ExpiresAt.Before(now) {
			listing.Status = entity.ListingStatusExpired
			expired++
		}
	}
	return expired, nil
}

// recordingGateway captures every emission the usecases make.
type recordingGateway struct {
	mu sync.Mutex

	userSends  map[string][][]byte
	broadcasts map[string][][]byte
	excepts    map[string][]string
}

func newRecordingGateway() *recordingGateway {
	return &recordingGateway{
		userSends:  make(map[string][][]byte),
		broadcasts: make(map[string][][]byte),
		excepts:    make(map[string][]string),
	}
}

func (g *recordingGateway) SendToUser(userID string, payload []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.userSends[userID] = append(g.userSends[userID], payload)
}

func (g *recordingGateway) BroadcastToConversation(conversationID string, payload []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.broadcasts[conversationID] = append(g.broadcasts[conversationID], payload)
}

func (g *recordingGateway) BroadcastToConversationExcept(conversationID, exceptUserID string, payload []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.broadcasts[conversationID] = append(g.broadcasts[conversationID], payload)
	g.excepts[conversationID] = append(g.excepts[conversationID], exceptUserID)
}

func (g *recordingGateway) broadcastCount(conversationID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.broadcasts[conversationID])
}

func (g *recordingGateway) userSendCount(userID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.userSends[userID])
}
