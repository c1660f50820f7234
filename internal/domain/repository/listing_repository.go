package repository

import (
	"context"
	"time"

	"basera/internal/domain/entity"
)

type ListingFilter struct {
	City     string
	Type     string
	MinPrice float64
	MaxPrice float64
	Limit    int
	Offset   int
}

type ListingRepository interface {
	Create(ctx context.Context, listing *entity.Listing) error
	GetByID(ctx context.Context, id string) (*entity.Listing, error)
	Update(ctx context.Context, listing *entity.Listing) error

	// UpdateStatus changes only the status field (and the deal completion
	// timestamp when provided). Idempotent: setting an already-set status
	// is not an error.
	UpdateStatus(ctx context.Context, id string, status entity.ListingStatus, dealCompletedAt *time.Time) error

	List(ctx context.Context, filter ListingFilter) ([]*entity.Listing, int64, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Listing, int64, error)

	IncrementViews(ctx context.Context, id string) error

	// ExpireOlderThan marks active listings whose expiresAt is before now
	// as expired and returns how many were updated.
	ExpireOlderThan(ctx context.Context, now time.Time) (int, error)
}
