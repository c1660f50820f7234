package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"basera/internal/domain/entity"
	"basera/pkg/errors"
	"basera/pkg/logger"
)

// TokenVerifier resolves a capability token to a verified user identity.
// The gateway rejects connections at handshake when verification fails.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// ChatService is the slice of the chat domain the gateway needs. The
// implementation persists first and fans out after commit, so the hub never
// broadcasts unconfirmed state.
type ChatService interface {
	SendLiveMessage(ctx context.Context, senderID, conversationID, text, imageURL string) (*entity.Message, error)
	MarkConversationRead(ctx context.Context, userID, conversationID string) error
}

// Hub tracks live connections and their room membership: one room per user
// identity, joined on connect, and one room per conversation, joined on
// request. Membership is lost on disconnect.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[*Client]struct{}
	rooms map[string]map[*Client]struct{}

	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}

	chat ChatService
}

func NewHub() *Hub {
	return &Hub{
		users:      make(map[string]map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Done closes when the registration loop has stopped. No registration traffic
// is accepted after that.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// AttachChatService wires the chat domain in after construction; main builds
// the hub first because the chat usecase emits through it. Events that need
// the service before it is attached get a scoped error back.
func (h *Hub) AttachChatService(chat ChatService) {
	h.chat = chat
}

// Start runs the registration loop until ctx is cancelled.
func (h *Hub) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-h.Register:
				h.mu.Lock()
				if h.users[client.UserID] == nil {
					h.users[client.UserID] = make(map[*Client]struct{})
				}
				h.users[client.UserID][client] = struct{}{}
				h.mu.Unlock()
				logger.Debug("WebSocket client registered: %s", client.UserID)

			case client := <-h.Unregister:
				h.remove(client)
				logger.Debug("WebSocket client unregistered: %s", client.UserID)

			case <-ctx.Done():
				close(h.done)
				return
			}
		}
	}()
}

// remove drops the client from its user and conversation rooms and closes its
// send channel, all under the write lock so no broadcast can push into the
// channel once it is closed. The membership check makes removal exactly-once.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.users[client.UserID]; ok {
		if _, ok := set[client]; ok {
			delete(set, client)
			if len(set) == 0 {
				delete(h.users, client.UserID)
			}
			close(client.send)
		}
	}
	for roomID, members := range h.rooms {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// detach hands a disconnected client back to the registration loop, or cleans
// it up directly when the hub has already shut down, so read pumps never block
// on a dead Unregister channel.
func (h *Hub) detach(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
		h.remove(client)
	}
}

func (h *Hub) joinRoom(roomID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][client] = struct{}{}
}

func (h *Hub) leaveRoom(roomID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[roomID]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// push delivers to one socket without blocking. A full send buffer means a
// slow or broken socket; the event is dropped for that socket only
// (at-most-once live delivery, history stays fetchable through the store).
// Callers must hold h.mu (read side suffices): the lock keeps the push from
// interleaving with the close in remove, which would panic.
func (h *Hub) push(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		logger.Warn("WebSocket send buffer full for user %s, dropping event", client.UserID)
	}
}

// SendToUser delivers to every socket in the user's personal room.
func (h *Hub) SendToUser(userID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.users[userID] {
		h.push(client, payload)
	}
}

// BroadcastToConversation delivers to every socket joined to the
// conversation's room, the sender's other devices included.
func (h *Hub) BroadcastToConversation(conversationID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[conversationID] {
		h.push(client, payload)
	}
}

// BroadcastToConversationExcept delivers to the conversation room, skipping
// every socket that belongs to exceptUserID.
func (h *Hub) BroadcastToConversationExcept(conversationID, exceptUserID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[conversationID] {
		if client.UserID != exceptUserID {
			h.push(client, payload)
		}
	}
}

// handlers is the single dispatch table for inbound events. The closed table
// replaces name-based dynamic dispatch: adding an event kind means adding a
// row here.
var handlers = map[EventKind]func(h *Hub, c *Client, data json.RawMessage){
	EventJoinChat:    (*Hub).handleJoinChat,
	EventLeaveChat:   (*Hub).handleLeaveChat,
	EventTyping:      (*Hub).handleTyping,
	EventStopTyping:  (*Hub).handleStopTyping,
	EventSendMessage: (*Hub).handleSendMessage,
	EventMarkRead:    (*Hub).handleMarkRead,
}

func (h *Hub) dispatch(c *Client, raw []byte) {
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		h.sendError(c, "Invalid event format")
		return
	}

	handler, ok := handlers[event.Type]
	if !ok {
		h.sendError(c, "Unknown event type")
		return
	}

	handler(h, c, event.Data)
}

func (h *Hub) handleJoinChat(c *Client, data json.RawMessage) {
	var payload RoomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		h.sendError(c, "Missing conversation_id")
		return
	}

	h.joinRoom(payload.ConversationID, c)
	logger.Debug("User %s joined conversation room %s", c.UserID, payload.ConversationID)
}

func (h *Hub) handleLeaveChat(c *Client, data json.RawMessage) {
	var payload RoomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		h.sendError(c, "Missing conversation_id")
		return
	}

	h.leaveRoom(payload.ConversationID, c)
	logger.Debug("User %s left conversation room %s", c.UserID, payload.ConversationID)
}

// typing and stop_typing are pure relays: nothing is persisted.
func (h *Hub) handleTyping(c *Client, data json.RawMessage) {
	h.relayTyping(c, data, EventTyping)
}

func (h *Hub) handleStopTyping(c *Client, data json.RawMessage) {
	h.relayTyping(c, data, EventStopTyping)
}

func (h *Hub) relayTyping(c *Client, data json.RawMessage, kind EventKind) {
	var payload RoomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		h.sendError(c, "Missing conversation_id")
		return
	}

	out, err := Encode(kind, TypingPayload{
		ConversationID: payload.ConversationID,
		UserID:         c.UserID,
	})
	if err != nil {
		return
	}

	h.BroadcastToConversationExcept(payload.ConversationID, c.UserID, out)
}

func (h *Hub) handleSendMessage(c *Client, data json.RawMessage) {
	var payload SendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		h.sendError(c, "Missing conversation_id")
		return
	}
	if payload.Text == "" && payload.ImageURL == "" {
		h.sendError(c, "Message must carry text or an image")
		return
	}

	if h.chat == nil {
		h.sendError(c, "Chat service unavailable")
		return
	}

	// Persistence happens inside the chat service; the new_message and
	// notification fan-out is triggered there only after the write commits.
	if _, err := h.chat.SendLiveMessage(context.Background(), c.UserID, payload.ConversationID, payload.Text, payload.ImageURL); err != nil {
		h.sendError(c, errorMessage(err))
	}
}

func (h *Hub) handleMarkRead(c *Client, data json.RawMessage) {
	var payload RoomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		h.sendError(c, "Missing conversation_id")
		return
	}

	if h.chat == nil {
		h.sendError(c, "Chat service unavailable")
		return
	}

	if err := h.chat.MarkConversationRead(context.Background(), c.UserID, payload.ConversationID); err != nil {
		h.sendError(c, errorMessage(err))
	}
}

// sendError emits a scoped error event to the originating connection only,
// never a broadcast, and never disconnects the socket.
func (h *Hub) sendError(c *Client, message string) {
	out, err := Encode(EventError, ErrorPayload{Message: message})
	if err != nil {
		return
	}

	h.mu.RLock()
	h.push(c, out)
	h.mu.RUnlock()
}

func errorMessage(err error) string {
	if appErr, ok := err.(*errors.AppError); ok {
		return appErr.Message
	}
	return "Operation failed"
}
