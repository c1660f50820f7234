package websocket

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basera/internal/domain/entity"
	"basera/pkg/errors"
)

type fakeChatService struct {
	sendCalls []string
	readCalls []string
	sendErr   error
	readErr   error
}

func (f *fakeChatService) SendLiveMessage(ctx context.Context, senderID, conversationID, text, imageURL string) (*entity.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sendCalls = append(f.sendCalls, senderID+":"+conversationID+":"+text)
	return &entity.Message{ID: "m1", SenderID: senderID, Text: text}, nil
}

func (f *fakeChatService) MarkConversationRead(ctx context.Context, userID, conversationID string) error {
	if f.readErr != nil {
		return f.readErr
	}
	f.readCalls = append(f.readCalls, userID+":"+conversationID)
	return nil
}

func testClient(userID string, buffer int) *Client {
	return &Client{
		UserID: userID,
		send:   make(chan []byte, buffer),
	}
}

func register(h *Hub, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[c.UserID] == nil {
		h.users[c.UserID] = make(map[*Client]struct{})
	}
	h.users[c.UserID][c] = struct{}{}
}

func event(t *testing.T, kind EventKind, payload interface{}) []byte {
	t.Helper()
	raw, err := Encode(kind, payload)
	require.NoError(t, err)
	return raw
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case raw := <-c.send:
		var ev Event
		require.NoError(t, json.Unmarshal(raw, &ev))
		return ev
	default:
		t.Fatal("expected an event on the send channel")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected event: %s", raw)
	default:
	}
}

func TestDispatchRejectsUnknownEventKind(t *testing.T) {
	h := NewHub()
	c := testClient("user-a", 8)

	h.dispatch(c, event(t, EventKind("shutdown"), nil))

	ev := receive(t, c)
	assert.Equal(t, EventError, ev.Type)
}

func TestDispatchRejectsMalformedJSON(t *testing.T) {
	h := NewHub()
	c := testClient("user-a", 8)

	h.dispatch(c, []byte("{not json"))

	ev := receive(t, c)
	assert.Equal(t, EventError, ev.Type)
}

func TestJoinAndLeaveRooms(t *testing.T) {
	h := NewHub()
	a := testClient("user-a", 8)
	b := testClient("user-b", 8)

	h.dispatch(a, event(t, EventJoinChat, RoomPayload{ConversationID: "conv-1"}))
	h.dispatch(b, event(t, EventJoinChat, RoomPayload{ConversationID: "conv-1"}))

	h.BroadcastToConversation("conv-1", []byte("hello"))
	assert.Equal(t, []byte("hello"), <-a.send)
	assert.Equal(t, []byte("hello"), <-b.send)

	h.dispatch(b, event(t, EventLeaveChat, RoomPayload{ConversationID: "conv-1"}))

	h.BroadcastToConversation("conv-1", []byte("again"))
	assert.Equal(t, []byte("again"), <-a.send)
	assertNoEvent(t, b)
}

func TestJoinChatRequiresConversationID(t *testing.T) {
	h := NewHub()
	c := testClient("user-a", 8)

	h.dispatch(c, event(t, EventJoinChat, RoomPayload{}))

	ev := receive(t, c)
	assert.Equal(t, EventError, ev.Type)
}

func TestBroadcastToConversationExceptSkipsAllUserSockets(t *testing.T) {
	h := NewHub()
	phone := testClient("user-a", 8)
	laptop := testClient("user-a", 8)
	other := testClient("user-b", 8)

	h.joinRoom("conv-1", phone)
	h.joinRoom("conv-1", laptop)
	h.joinRoom("conv-1", other)

	h.BroadcastToConversationExcept("conv-1", "user-a", []byte("read"))

	assertNoEvent(t, phone)
	assertNoEvent(t, laptop)
	assert.Equal(t, []byte("read"), <-other.send)
}

func TestSendToUserReachesEveryDevice(t *testing.T) {
	h := NewHub()
	phone := testClient("user-a", 8)
	laptop := testClient("user-a", 8)

	register(h, phone)
	register(h, laptop)

	h.SendToUser("user-a", []byte("ping"))

	assert.Equal(t, []byte("ping"), <-phone.send)
	assert.Equal(t, []byte("ping"), <-laptop.send)
}

func TestTypingRelaysToOthersOnly(t *testing.T) {
	h := NewHub()
	typer := testClient("user-a", 8)
	other := testClient("user-b", 8)

	h.joinRoom("conv-1", typer)
	h.joinRoom("conv-1", other)

	h.dispatch(typer, event(t, EventTyping, RoomPayload{ConversationID: "conv-1"}))

	assertNoEvent(t, typer)
	ev := receive(t, other)
	assert.Equal(t, EventTyping, ev.Type)

	var payload TypingPayload
	require.NoError(t, json.Unmarshal(ev.Data, &payload))
	assert.Equal(t, "user-a", payload.UserID)
	assert.Equal(t, "conv-1", payload.ConversationID)
}

func TestSendMessageDelegatesToChatService(t *testing.T) {
	h := NewHub()
	chat := &fakeChatService{}
	h.AttachChatService(chat)

	c := testClient("user-a", 8)
	h.dispatch(c, event(t, EventSendMessage, SendMessagePayload{
		ConversationID: "conv-1",
		Text:           "hello",
	}))

	require.Len(t, chat.sendCalls, 1)
	assert.Equal(t, "user-a:conv-1:hello", chat.sendCalls[0])
	assertNoEvent(t, c)
}

func TestSendMessageFailureIsScopedToSender(t *testing.T) {
	h := NewHub()
	chat := &fakeChatService{sendErr: errors.Forbidden("You are not a participant in this conversation", nil)}
	h.AttachChatService(chat)

	sender := testClient("stranger", 8)
	member := testClient("user-b", 8)
	h.joinRoom("conv-1", sender)
	h.joinRoom("conv-1", member)

	h.dispatch(sender, event(t, EventSendMessage, SendMessagePayload{
		ConversationID: "conv-1",
		Text:           "let me in",
	}))

	ev := receive(t, sender)
	assert.Equal(t, EventError, ev.Type)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(ev.Data, &payload))
	assert.Equal(t, "You are not a participant in this conversation", payload.Message)

	assertNoEvent(t, member)
	assert.Empty(t, chat.sendCalls)
}

func TestSendMessageRequiresBody(t *testing.T) {
	h := NewHub()
	chat := &fakeChatService{}
	h.AttachChatService(chat)

	c := testClient("user-a", 8)
	h.dispatch(c, event(t, EventSendMessage, SendMessagePayload{ConversationID: "conv-1"}))

	ev := receive(t, c)
	assert.Equal(t, EventError, ev.Type)
	assert.Empty(t, chat.sendCalls)
}

func TestSendMessageWithoutChatService(t *testing.T) {
	h := NewHub()
	c := testClient("user-a", 8)

	h.dispatch(c, event(t, EventSendMessage, SendMessagePayload{
		ConversationID: "conv-1",
		Text:           "hello",
	}))

	ev := receive(t, c)
	assert.Equal(t, EventError, ev.Type)
}

func TestMarkReadDelegatesToChatService(t *testing.T) {
	h := NewHub()
	chat := &fakeChatService{}
	h.AttachChatService(chat)

	c := testClient("user-a", 8)
	h.dispatch(c, event(t, EventMarkRead, RoomPayload{ConversationID: "conv-1"}))

	require.Len(t, chat.readCalls, 1)
	assert.Equal(t, "user-a:conv-1", chat.readCalls[0])
}

func TestBroadcastDuringUnregisterDoesNotPanic(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx)

	const connections = 200
	members := make([]*Client, 0, connections)
	for i := 0; i < connections; i++ {
		c := testClient("user-"+strconv.Itoa(i), 1)
		h.Register <- c
		h.joinRoom("conv-1", c)
		members = append(members, c)
	}

	// Fan out concurrently with the disconnects. A push landing after a
	// client's send channel is closed would panic and fail the test.
	broadcasting := make(chan struct{})
	go func() {
		defer close(broadcasting)
		for i := 0; i < connections; i++ {
			h.BroadcastToConversation("conv-1", []byte("update"))
			h.SendToUser(members[i].UserID, []byte("ping"))
		}
	}()

	for _, c := range members {
		h.Unregister <- c
	}
	<-broadcasting

	// The loop is sequential, so once this handoff is accepted every earlier
	// unregister has been fully applied.
	h.Unregister <- testClient("drain", 1)

	h.mu.RLock()
	defer h.mu.RUnlock()
	assert.Empty(t, h.users)
	assert.Empty(t, h.rooms)
}

func TestDetachAfterShutdownReleasesClient(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	h.Start(ctx)

	c := testClient("user-a", 1)
	h.Register <- c
	h.joinRoom("conv-1", c)

	cancel()
	<-h.Done()

	finished := make(chan struct{})
	go func() {
		h.detach(c)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("detach blocked after hub shutdown")
	}

	// The client is fully cleaned up: gone from its rooms, send closed.
	h.BroadcastToConversation("conv-1", []byte("late"))
	_, open := <-c.send
	assert.False(t, open)
}

func TestFullSendBufferDropsEventForThatSocketOnly(t *testing.T) {
	h := NewHub()
	stuck := testClient("user-a", 1)
	healthy := testClient("user-b", 8)

	h.joinRoom("conv-1", stuck)
	h.joinRoom("conv-1", healthy)

	stuck.send <- []byte("backlog")

	h.BroadcastToConversation("conv-1", []byte("update"))

	// The stuck socket keeps only its backlog; the healthy one gets the event.
	assert.Equal(t, []byte("backlog"), <-stuck.send)
	assertNoEvent(t, stuck)
	assert.Equal(t, []byte("update"), <-healthy.send)
}
