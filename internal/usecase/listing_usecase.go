package usecase

import (
	"context"
	"time"

	"basera/internal/domain/entity"
	"basera/internal/domain/repository"
	"basera/pkg/errors"
	"basera/pkg/logger"
)

type ListingUseCase struct {
	listingRepo repository.ListingRepository
	ttl         time.Duration
}

func NewListingUseCase(listingRepo repository.ListingRepository, ttlDays int) *ListingUseCase {
	if ttlDays <= 0 {
		ttlDays = 15
	}
	return &ListingUseCase{
		listingRepo: listingRepo,
		ttl:         time.Duration(ttlDays) * 24 * time.Hour,
	}
}

type CreateListingInput struct {
	Title       string
	Description string
	Price       float64
	Currency    string
	Type        string
	Location    entity.Location
	Images      []string
	Amenities   []string
}

type UpdateListingInput struct {
	Title       string
	Description string
	Price       float64
	Location    *entity.Location
	Images      []string
	Amenities   []string
}

func (uc *ListingUseCase) Create(ctx context.Context, ownerID string, input CreateListingInput) (*entity.Listing, error) {
	currency := input.Currency
	if currency == "" {
		currency = "NPR"
	}

	listing := &entity.Listing{
		OwnerID:     ownerID,
		Title:       input.Title,
		Description: input.Description,
		Price:       input.Price,
		Currency:    currency,
		Type:        input.Type,
		Location:    input.Location,
		Images:      input.Images,
		Amenities:   input.Amenities,
		Status:      entity.ListingStatusActive,
		ExpiresAt:   time.Now().Add(uc.ttl),
	}

	if err := uc.listingRepo.Create(ctx, listing); err != nil {
		logger.Error("Failed to create listing for owner %s: %v", ownerID, err)
		return nil, err
	}

	return listing, nil
}

func (uc *ListingUseCase) Get(ctx context.Context, id string) (*entity.Listing, error) {
	listing, err := uc.listingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.Status == entity.ListingStatusDeleted {
		return nil, errors.NotFound("Listing", nil)
	}

	// View counting is best effort and never fails the read.
	if err := uc.listingRepo.IncrementViews(ctx, id); err != nil {
		logger.Warn("Failed to increment views for listing %s: %v", id, err)
	}

	return listing, nil
}

func (uc *ListingUseCase) List(ctx context.Context, filter repository.ListingFilter) ([]*entity.Listing, int64, error) {
	return uc.listingRepo.List(ctx, filter)
}

func (uc *ListingUseCase) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Listing, int64, error) {
	return uc.listingRepo.ListByOwner(ctx, ownerID, limit, offset)
}

func (uc *ListingUseCase) Update(ctx context.Context, ownerID, id string, input UpdateListingInput) (*entity.Listing, error) {
	listing, err := uc.listingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != ownerID {
		return nil, errors.Forbidden("You can only update your own listings", nil)
	}
	if listing.Status == entity.ListingStatusDeleted {
		return nil, errors.NotFound("Listing", nil)
	}

	if input.Title != "" {
		listing.Title = input.Title
	}
	if input.Description != "" {
		listing.Description = input.Description
	}
	if input.Price > 0 {
		listing.Price = input.Price
	}
	if input.Location != nil {
		listing.Location = *input.Location
	}
	if input.Images != nil {
		listing.Images = input.Images
	}
	if input.Amenities != nil {
		listing.Amenities = input.Amenities
	}

	if err := uc.listingRepo.Update(ctx, listing); err != nil {
		return nil, err
	}

	return listing, nil
}

func (uc *ListingUseCase) Delete(ctx context.Context, ownerID, id string) error {
	listing, err := uc.listingRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if listing.OwnerID != ownerID {
		return errors.Forbidden("You can only delete your own listings", nil)
	}

	return uc.listingRepo.UpdateStatus(ctx, id, entity.ListingStatusDeleted, nil)
}

// Renew reactivates an active or expired listing for another TTL window.
func (uc *ListingUseCase) Renew(ctx context.Context, ownerID, id string) (*entity.Listing, error) {
	listing, err := uc.listingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != ownerID {
		return nil, errors.Forbidden("You can only renew your own listings", nil)
	}
	if listing.Status != entity.ListingStatusActive && listing.Status != entity.ListingStatusExpired {
		return nil, errors.InvalidOperation("Only active or expired listings can be renewed")
	}

	listing.Status = entity.ListingStatusActive
	listing.ExpiresAt = time.Now().Add(uc.ttl)

	if err := uc.listingRepo.Update(ctx, listing); err != nil {
		return nil, err
	}

	return listing, nil
}

// StartExpirySweep runs the cleanup loop that expires listings past their
// expiresAt. Runs until ctx is cancelled.
func (uc *ListingUseCase) StartExpirySweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				expired, err := uc.listingRepo.ExpireOlderThan(ctx, time.Now())
				if err != nil {
					logger.Error("Listing expiry sweep failed: %v", err)
					continue
				}
				if expired > 0 {
					logger.Info("Listing expiry sweep: %d listings expired", expired)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
