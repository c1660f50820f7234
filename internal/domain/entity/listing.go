package entity

import "time"

type ListingStatus string

const (
	ListingStatusActive  ListingStatus = "active"
	ListingStatusPending ListingStatus = "pending"
	ListingStatusDealed  ListingStatus = "dealed"
	ListingStatusExpired ListingStatus = "expired"
	ListingStatusDeleted ListingStatus = "deleted"
)

type Location struct {
	Lat      float64 `json:"lat" firestore:"lat"`
	Lng      float64 `json:"lng" firestore:"lng"`
	Address  string  `json:"address" firestore:"address"`
	City     string  `json:"city,omitempty" firestore:"city,omitempty"`
	District string  `json:"district,omitempty" firestore:"district,omitempty"`
}

type Listing struct {
	ID              string        `json:"id" firestore:"id"`
	OwnerID         string        `json:"owner_id" firestore:"ownerId"`
	Title           string        `json:"title" firestore:"title"`
	Description     string        `json:"description" firestore:"description"`
	Price           float64       `json:"price" firestore:"price"`
	Currency        string        `json:"currency" firestore:"currency"` // "NPR"
	Type            string        `json:"type" firestore:"type"`         // "room", "apartment", "house", "flat", "studio"
	Location        Location      `json:"location" firestore:"location"`
	Images          []string      `json:"images,omitempty" firestore:"images,omitempty"`
	Amenities       []string      `json:"amenities,omitempty" firestore:"amenities,omitempty"`
	Status          ListingStatus `json:"status" firestore:"status"`
	Views           int64         `json:"views" firestore:"views"`
	CreatedAt       time.Time     `json:"created_at" firestore:"createdAt"`
	UpdatedAt       time.Time     `json:"updated_at" firestore:"updatedAt"`
	ExpiresAt       time.Time     `json:"expires_at" firestore:"expiresAt"`
	DealCompletedAt *time.Time    `json:"deal_completed_at,omitempty" firestore:"dealCompletedAt,omitempty"`
}

// Open reports whether the listing can still receive conversations.
func (l *Listing) Open() bool {
	return l.Status != ListingStatusDeleted && l.Status != ListingStatusExpired
}
