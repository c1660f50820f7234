package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"basera/internal/domain/entity"
	"basera/internal/domain/repository"
	"basera/pkg/errors"
	"basera/pkg/logger"
)

type firestoreListingRepository struct {
	client *firestore.Client
}

func NewFirestoreListingRepository(client *firestore.Client) repository.ListingRepository {
	return &firestoreListingRepository{
		client: client,
	}
}

func (r *firestoreListingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.New().String()
	}

	now := time.Now()
	listing.CreatedAt = now
	listing.UpdatedAt = now

	_, err := r.client.Collection("listings").Doc(listing.ID).Set(ctx, listing)
	if err != nil {
		return errors.Internal("Failed to create listing", err)
	}

	return nil
}

func (r *firestoreListingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	doc, err := r.client.Collection("listings").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Listing", nil)
		}
		return nil, errors.Internal("Failed to get listing", err)
	}

	var listing entity.Listing
	if err := doc.DataTo(&listing); err != nil {
		return nil, errors.Internal("Failed to parse listing data", err)
	}

	return &listing, nil
}

func (r *firestoreListingRepository) Update(ctx context.Context, listing *entity.Listing) error {
	listing.UpdatedAt = time.Now()

	_, err := r.client.Collection("listings").Doc(listing.ID).Set(ctx, listing)
	if err != nil {
		return errors.Internal("Failed to update listing", err)
	}

	return nil
}

func (r *firestoreListingRepository) UpdateStatus(ctx context.Context, id string, listingStatus entity.ListingStatus, dealCompletedAt *time.Time) error {
	updates := []firestore.Update{
		{Path: "status", Value: listingStatus},
		{Path: "updatedAt", Value: time.Now()},
	}
	if dealCompletedAt != nil {
		updates = append(updates, firestore.Update{Path: "dealCompletedAt", Value: *dealCompletedAt})
	}

	_, err := r.client.Collection("listings").Doc(id).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Listing", nil)
		}
		return errors.Internal("Failed to update listing status", err)
	}

	return nil
}

func (r *firestoreListingRepository) List(ctx context.Context, filter repository.ListingFilter) ([]*entity.Listing, int64, error) {
	query := r.client.Collection("listings").Where("status", "==", entity.ListingStatusActive)

	if filter.City != "" {
		query = query.Where("location.city", "==", filter.City)
	}
	if filter.Type != "" {
		query = query.Where("type", "==", filter.Type)
	}
	if filter.MinPrice > 0 {
		query = query.Where("price", ">=", filter.MinPrice)
	}
	if filter.MaxPrice > 0 {
		query = query.Where("price", "<=", filter.MaxPrice)
	}

	allDocs, err := query.OrderBy("createdAt", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while listing listings: %v", err)
		return nil, 0, errors.Internal("Failed to fetch listings", err)
	}

	total := int64(len(allDocs))

	start := filter.Offset
	if start > len(allDocs) {
		start = len(allDocs)
	}
	end := len(allDocs)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}

	var listings []*entity.Listing
	for i := start; i < end; i++ {
		var listing entity.Listing
		if err := allDocs[i].DataTo(&listing); err != nil {
			logger.Warn("Skipping malformed listing document %s: %v", allDocs[i].Ref.ID, err)
			continue
		}
		listings = append(listings, &listing)
	}

	return listings, total, nil
}

func (r *firestoreListingRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Listing, int64, error) {
	query := r.client.Collection("listings").
		Where("ownerId", "==", ownerID).
		OrderBy("createdAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Internal("Failed to fetch owner listings", err)
	}

	total := int64(len(allDocs))

	start := offset
	if start > len(allDocs) {
		start = len(allDocs)
	}
	end := len(allDocs)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var listings []*entity.Listing
	for i := start; i < end; i++ {
		var listing entity.Listing
		if err := allDocs[i].DataTo(&listing); err != nil {
			continue
		}
		listings = append(listings, &listing)
	}

	return listings, total, nil
}

func (r *firestoreListingRepository) IncrementViews(ctx context.Context, id string) error {
	_, err := r.client.Collection("listings").Doc(id).Update(ctx, []firestore.Update{
		{Path: "views", Value: firestore.Increment(1)},
	})
	if err != nil {
		return errors.Internal("Failed to increment listing views", err)
	}
	return nil
}

func (r *firestoreListingRepository) ExpireOlderThan(ctx context.Context, now time.Time) (int, error) {
	iter := r.client.Collection("listings").
		Where("status", "==", entity.ListingStatusActive).
		Where("expiresAt", "<", now).
		Documents(ctx)

	expired := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return expired, errors.Internal("Failed to iterate expiring listings", err)
		}

		_, err = doc.Ref.Update(ctx, []firestore.Update{
			{Path: "status", Value: entity.ListingStatusExpired},
			{Path: "updatedAt", Value: now},
		})
		if err != nil {
			logger.Warn("Failed to expire listing %s: %v", doc.Ref.ID, err)
			continue
		}
		expired++
	}

	return expired, nil
}
