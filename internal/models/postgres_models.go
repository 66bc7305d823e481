package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, j)
}

// StringArray type for PostgreSQL arrays
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, s)
}

// CartLineArray stores ordered cart lines as a JSONB column.
type CartLineArray []CartLine

func (l CartLineArray) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]CartLine{})
	}
	return json.Marshal([]CartLine(l))
}

func (l *CartLineArray) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, l)
}

// CartRecord is the persisted cart, one row per owner key. The owner key is a
// user id for authenticated sessions or a device key for guests. The record is
// the sole source of truth across restarts.
type CartRecord struct {
	ID        uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerKey  string        `gorm:"uniqueIndex;not null" json:"owner_key"`
	Lines     CartLineArray `gorm:"type:jsonb" json:"lines"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// GuestWishlist is the locally persisted wishlist set for an unauthenticated
// owner. Once the owner logs in the server set is authoritative and this row
// is residue until explicitly migrated.
type GuestWishlist struct {
	ID         uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerKey   string      `gorm:"uniqueIndex;not null" json:"owner_key"`
	ProductIDs StringArray `gorm:"type:jsonb" json:"product_ids"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Address model - PostgreSQL (user addresses). Checkout selects addresses by
// id, never by reconstructed display string.
type Address struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	Type         string    `gorm:"not null" json:"type"` // home, office, other
	AddressLine1 string    `gorm:"not null" json:"address_line1"`
	AddressLine2 string    `json:"address_line2"`
	City         string    `gorm:"not null" json:"city"`
	State        string    `gorm:"not null" json:"state"`
	Country      string    `gorm:"not null" json:"country"`
	PinCode      string    `gorm:"not null" json:"pin_code"`
	IsDefault    bool      `gorm:"default:false" json:"is_default"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Shipping converts a stored address into the order payload shape.
func (a *Address) Shipping() ShippingAddress {
	line := a.AddressLine1
	if a.AddressLine2 != "" {
		line += ", " + a.AddressLine2
	}
	country := a.Country
	if country == "" {
		country = "India"
	}
	return ShippingAddress{
		Address: line,
		City:    a.City,
		State:   a.State,
		PinCode: a.PinCode,
		Country: country,
	}
}
