package repositories

import (
	"context"
	"errors"
	"time"

	"golang-storefront-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) Get(ctx context.Context, ownerKey string) (*models.CartRecord, error) {
	var record models.CartRecord
	err := r.db.WithContext(ctx).Where("owner_key = ?", ownerKey).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *cartRepository) Save(ctx context.Context, ownerKey string, lines []models.CartLine) error {
	record := models.CartRecord{
		OwnerKey:  ownerKey,
		Lines:     models.CartLineArray(lines),
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"lines", "updated_at"}),
	}).Create(&record).Error
}

func (r *cartRepository) Delete(ctx context.Context, ownerKey string) error {
	err := r.db.WithContext(ctx).Where("owner_key = ?", ownerKey).Delete(&models.CartRecord{}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

type guestWishlistRepository struct {
	db *gorm.DB
}

func NewGuestWishlistRepository(db *gorm.DB) GuestWishlistRepository {
	return &guestWishlistRepository{db: db}
}

func (r *guestWishlistRepository) Get(ctx context.Context, ownerKey string) (*models.GuestWishlist, error) {
	var record models.GuestWishlist
	err := r.db.WithContext(ctx).Where("owner_key = ?", ownerKey).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *guestWishlistRepository) Save(ctx context.Context, ownerKey string, productIDs []string) error {
	record := models.GuestWishlist{
		OwnerKey:   ownerKey,
		ProductIDs: models.StringArray(productIDs),
		UpdatedAt:  time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"product_ids", "updated_at"}),
	}).Create(&record).Error
}

func (r *guestWishlistRepository) Delete(ctx context.Context, ownerKey string) error {
	err := r.db.WithContext(ctx).Where("owner_key = ?", ownerKey).Delete(&models.GuestWishlist{}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

type addressRepository struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) AddressRepository {
	return &addressRepository{db: db}
}

func (r *addressRepository) Create(ctx context.Context, address *models.Address) error {
	return r.db.WithContext(ctx).Create(address).Error
}

func (r *addressRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	var address models.Address
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&address).Error
	if err != nil {
		return nil, err
	}
	return &address, nil
}

func (r *addressRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var addresses []models.Address
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&addresses).Error
	if err != nil {
		return nil, err
	}
	return addresses, nil
}

func (r *addressRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Address{}, id).Error
}

func (r *addressRepository) UnsetDefaultAddresses(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Address{}).
		Where("user_id = ?", userID).
		Update("is_default", false).Error
}
