package repositories

import (
	"context"

	"golang-storefront-backend/internal/models"

	"github.com/google/uuid"
)

// CartRepository interface for PostgreSQL cart persistence. Save replaces the
// owner's full line set; every cart mutation writes through here before it is
// acknowledged.
type CartRepository interface {
	Get(ctx context.Context, ownerKey string) (*models.CartRecord, error)
	Save(ctx context.Context, ownerKey string, lines []models.CartLine) error
	Delete(ctx context.Context, ownerKey string) error
}

// GuestWishlistRepository interface for the locally persisted guest wishlist set.
type GuestWishlistRepository interface {
	Get(ctx context.Context, ownerKey string) (*models.GuestWishlist, error)
	Save(ctx context.Context, ownerKey string, productIDs []string) error
	Delete(ctx context.Context, ownerKey string) error
}

// AddressRepository interface for PostgreSQL address operations
type AddressRepository interface {
	Create(ctx context.Context, address *models.Address) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Address, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UnsetDefaultAddresses(ctx context.Context, userID uuid.UUID) error
}

// OrderSnapshotRepository interface for the MongoDB order mirror.
type OrderSnapshotRepository interface {
	Upsert(ctx context.Context, snapshot *models.OrderSnapshot) error
	GetByID(ctx context.Context, orderID string) (*models.OrderSnapshot, error)
	GetByUserID(ctx context.Context, userID string) ([]models.OrderSnapshot, error)
	UpdateStatus(ctx context.Context, orderID string, status string) error
}
