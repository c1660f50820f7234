package websocket

import (
	"encoding/json"
	"time"

	"basera/internal/domain/entity"
)

// EventKind is the closed set of live-transport event names. Inbound events
// are dispatched through the handlers table in hub.go; anything outside the
// set is answered with a scoped error event.
type EventKind string

const (
	// client -> server
	EventJoinChat    EventKind = "join_chat"
	EventLeaveChat   EventKind = "leave_chat"
	EventTyping      EventKind = "typing"
	EventStopTyping  EventKind = "stop_typing"
	EventSendMessage EventKind = "send_message"
	EventMarkRead    EventKind = "mark_read"

	// server -> client
	EventNewMessage   EventKind = "new_message"
	EventNotification EventKind = "notification"
	EventMessagesRead EventKind = "messages_read"
	EventError        EventKind = "error"
)

// Event is the wire envelope in both directions.
type Event struct {
	Type      EventKind       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp"`
}

type RoomPayload struct {
	ConversationID string `json:"conversation_id"`
}

type SendMessagePayload struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
}

type TypingPayload struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

type NewMessagePayload struct {
	ConversationID string          `json:"conversation_id"`
	Message        *entity.Message `json:"message"`
}

type NotificationPayload struct {
	Kind           string          `json:"kind"` // "new_message"
	ConversationID string          `json:"conversation_id"`
	Message        *entity.Message `json:"message"`
}

type MessagesReadPayload struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Encode marshals a complete outbound event. Marshal failures are programmer
// errors (payload types are all plain structs), so the error is surfaced to
// the caller rather than swallowed.
func Encode(kind EventKind, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Event{
		Type:      kind,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
