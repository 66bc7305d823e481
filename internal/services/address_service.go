package services

import (
	"context"

	"golang-storefront-backend/internal/faults"
	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/internal/repositories"

	"github.com/google/uuid"
)

// AddressService manages the user's address book. Checkout references
// addresses by id, so deletion and creation go through here.
type AddressService struct {
	addressRepo repositories.AddressRepository
}

func NewAddressService(addressRepo repositories.AddressRepository) *AddressService {
	return &AddressService{addressRepo: addressRepo}
}

func (s *AddressService) List(ctx context.Context, userID string) ([]models.Address, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, faults.New(faults.Validation, "invalid user id")
	}
	return s.addressRepo.GetByUserID(ctx, userUUID)
}

func (s *AddressService) Create(ctx context.Context, userID string, address *models.Address) (*models.Address, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, faults.New(faults.Validation, "invalid user id")
	}
	if address.AddressLine1 == "" || address.City == "" || address.State == "" || address.PinCode == "" {
		return nil, faults.New(faults.Validation, "address line, city, state and pin code are required")
	}
	if address.Type == "" {
		address.Type = "home"
	}
	if address.Country == "" {
		address.Country = "India"
	}

	address.ID = uuid.New()
	address.UserID = userUUID

	if address.IsDefault {
		if err := s.addressRepo.UnsetDefaultAddresses(ctx, userUUID); err != nil {
			return nil, err
		}
	}

	if err := s.addressRepo.Create(ctx, address); err != nil {
		return nil, err
	}
	return address, nil
}

func (s *AddressService) Delete(ctx context.Context, userID, addressID string) error {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return faults.New(faults.Validation, "invalid user id")
	}
	addrUUID, err := uuid.Parse(addressID)
	if err != nil {
		return faults.New(faults.Validation, "invalid address id")
	}

	address, err := s.addressRepo.GetByID(ctx, addrUUID)
	if err != nil {
		return faults.New(faults.NotFound, "address not found")
	}
	if address.UserID != userUUID {
		return faults.New(faults.Validation, "address does not belong to user")
	}

	return s.addressRepo.Delete(ctx, addrUUID)
}
