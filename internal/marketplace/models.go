package marketplace

import (
	"time"

	"github.com/google/uuid"
)

// ListingStatus of a fixed-price marketplace listing.
type ListingStatus string

const (
	ListingStatusActive    ListingStatus = "active"
	ListingStatusSold      ListingStatus = "sold"
	ListingStatusCancelled ListingStatus = "cancelled"
)

// Listing is a fixed-price sale offer for one item instance.
type Listing struct {
	ID        uuid.UUID
	SellerID  uuid.UUID
	ItemID    uuid.UUID
	Price     int64
	Status    ListingStatus
	CreatedAt time.Time
}
