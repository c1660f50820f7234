package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationIDIsOrderIndependent(t *testing.T) {
	a := ConversationID("listing-1", "user-a", "user-b")
	b := ConversationID("listing-1", "user-b", "user-a")

	assert.Equal(t, a, b)
	assert.Equal(t, "listing-1:user-a:user-b", a)
}

func TestConversationIDVariesByListingAndPair(t *testing.T) {
	base := ConversationID("listing-1", "user-a", "user-b")

	assert.NotEqual(t, base, ConversationID("listing-2", "user-a", "user-b"))
	assert.NotEqual(t, base, ConversationID("listing-1", "user-a", "user-c"))
}

func TestAppendKeepsLastMessageInSync(t *testing.T) {
	conv := &Conversation{}
	now := time.Now()

	conv.Append(Message{ID: "m1", SenderID: "user-a", Text: "hello", Kind: MessageKindText, CreatedAt: now})
	conv.Append(Message{ID: "m2", SenderID: "user-b", Text: "hi", Kind: MessageKindText, CreatedAt: now.Add(time.Second)})

	require.Len(t, conv.Messages, 2)
	require.NotNil(t, conv.LastMessage)
	assert.Equal(t, "m2", conv.LastMessage.ID)
	assert.Equal(t, now.Add(time.Second), conv.UpdatedAt)
}

func TestUnreadCountForCountsOnlyOtherSide(t *testing.T) {
	conv := &Conversation{}
	conv.Append(Message{ID: "m1", SenderID: "user-a", Text: "one"})
	conv.Append(Message{ID: "m2", SenderID: "user-a", Text: "two"})
	conv.Append(Message{ID: "m3", SenderID: "user-b", Text: "reply"})

	assert.Equal(t, 2, conv.UnreadCountFor("user-b"))
	assert.Equal(t, 1, conv.UnreadCountFor("user-a"))
}

func TestMarkReadForIsIdempotent(t *testing.T) {
	conv := &Conversation{}
	conv.Append(Message{ID: "m1", SenderID: "user-a", Text: "one"})
	conv.Append(Message{ID: "m2", SenderID: "user-a", Text: "two"})

	now := time.Now()
	changed := conv.MarkReadFor("user-b", now)
	assert.Equal(t, 2, changed)
	assert.Equal(t, 0, conv.UnreadCountFor("user-b"))
	require.NotNil(t, conv.Messages[0].ReadAt)
	assert.Equal(t, now, *conv.Messages[0].ReadAt)

	// Second pass finds nothing to change.
	assert.Equal(t, 0, conv.MarkReadFor("user-b", now.Add(time.Minute)))
	assert.Equal(t, now, *conv.Messages[0].ReadAt)
}

func TestMarkReadForLeavesOwnMessagesAlone(t *testing.T) {
	conv := &Conversation{}
	conv.Append(Message{ID: "m1", SenderID: "user-a", Text: "one"})

	assert.Equal(t, 0, conv.MarkReadFor("user-a", time.Now()))
	assert.False(t, conv.Messages[0].IsRead)
}

func TestMarkReadForRefreshesLastMessage(t *testing.T) {
	conv := &Conversation{}
	conv.Append(Message{ID: "m1", SenderID: "user-a", Text: "one"})

	conv.MarkReadFor("user-b", time.Now())

	require.NotNil(t, conv.LastMessage)
	assert.True(t, conv.LastMessage.IsRead)
}

func TestHasParticipantAndOtherParticipant(t *testing.T) {
	conv := &Conversation{Participants: []string{"user-a", "user-b"}}

	assert.True(t, conv.HasParticipant("user-a"))
	assert.False(t, conv.HasParticipant("user-c"))
	assert.Equal(t, "user-b", conv.OtherParticipant("user-a"))
	assert.Equal(t, "user-a", conv.OtherParticipant("user-b"))
}
