package entity

import (
	"sort"
	"strings"
	"time"
)

type DealStatus string

const (
	DealStatusNone     DealStatus = "none"
	DealStatusPending  DealStatus = "pending"
	DealStatusAccepted DealStatus = "accepted"
	DealStatusRejected DealStatus = "rejected"
)

type MessageKind string

const (
	MessageKindText         MessageKind = "text"
	MessageKindImage        MessageKind = "image"
	MessageKindDealProposal MessageKind = "deal_proposal"
	MessageKindDealAccepted MessageKind = "deal_accepted"
	MessageKindDealRejected MessageKind = "deal_rejected"
)

// Message is embedded in its conversation document. Once appended it is
// immutable except for IsRead/ReadAt.
type Message struct {
	ID        string      `json:"id" firestore:"id"`
	SenderID  string      `json:"sender_id" firestore:"senderId"`
	Text      string      `json:"text,omitempty" firestore:"text,omitempty"`
	ImageURL  string      `json:"image_url,omitempty" firestore:"imageUrl,omitempty"`
	Kind      MessageKind `json:"kind" firestore:"kind"`
	IsRead    bool        `json:"is_read" firestore:"isRead"`
	ReadAt    *time.Time  `json:"read_at,omitempty" firestore:"readAt,omitempty"`
	CreatedAt time.Time   `json:"created_at" firestore:"createdAt"`
}

// Conversation is a chat thread between a listing's owner and one counterparty.
// Participants and ListingID are fixed at creation; LastMessage always mirrors
// the tail of Messages.
type Conversation struct {
	ID           string     `json:"id" firestore:"id"`
	ListingID    string     `json:"listing_id" firestore:"listingId"`
	Participants []string   `json:"participants" firestore:"participants"`
	Messages     []Message  `json:"messages" firestore:"messages"`
	LastMessage  *Message   `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	DealStatus   DealStatus `json:"deal_status" firestore:"dealStatus"`
	IsActive     bool       `json:"is_active" firestore:"isActive"`
	CreatedAt    time.Time  `json:"created_at" firestore:"createdAt"`
	UpdatedAt    time.Time  `json:"updated_at" firestore:"updatedAt"`
}

// ConversationID derives the deterministic identifier for the conversation
// between two users about one listing. The same (listing, pair) always maps
// to the same ID regardless of who initiates, which is what makes
// get-or-create idempotent under concurrent duplicate calls.
func ConversationID(listingID, userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join([]string{listingID, pair[0], pair[1]}, ":")
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

func (c *Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// Append adds a message to the log and keeps LastMessage and UpdatedAt in
// sync. Callers persist the whole conversation in one write afterwards.
func (c *Conversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
	last := c.Messages[len(c.Messages)-1]
	c.LastMessage = &last
	c.UpdatedAt = msg.CreatedAt
}

// UnreadCountFor counts messages sent by the other participant that userID
// has not read yet.
func (c *Conversation) UnreadCountFor(userID string) int {
	count := 0
	for _, msg := range c.Messages {
		if msg.SenderID != userID && !msg.IsRead {
			count++
		}
	}
	return count
}

// MarkReadFor flags every unread message not sent by userID as read at the
// given time. Returns how many messages changed; zero means nothing to
// persist.
func (c *Conversation) MarkReadFor(userID string, now time.Time) int {
	changed := 0
	for i := range c.Messages {
		msg := &c.Messages[i]
		if msg.SenderID != userID && !msg.IsRead {
			msg.IsRead = true
			readAt := now
			msg.ReadAt = &readAt
			changed++
		}
	}
	if changed > 0 && c.LastMessage != nil {
		last := c.Messages[len(c.Messages)-1]
		c.LastMessage = &last
	}
	return changed
}
