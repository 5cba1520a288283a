package user

import (
	"context"

	"github.com/google/uuid"

	"emi-device-manager/internal/domain/shop"
)

// Repository defines the interface for user persistence.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID uuid.UUID) (*User, error)
	// GetByIdentifier resolves a login identifier, phone number or email.
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdateDeviceMirror(ctx context.Context, userID uuid.UUID, mirror DeviceMirror) error
	// UpdateDeviceRef keeps the denormalized device reference on the user in
	// step with the registered device.
	UpdateDeviceRef(ctx context.Context, userID uuid.UUID, deviceID, imei string) error
	Delete(ctx context.Context, userID uuid.UUID) error
	List(ctx context.Context, filter *Filter) ([]*User, int64, error)
	// AggregateShopStatistics derives the shop statistics snapshot from the
	// shop's current user set.
	AggregateShopStatistics(ctx context.Context, shopID uuid.UUID) (*shop.Statistics, error)
	Count(ctx context.Context) (int64, error)
}

// Filter represents filtering options for listing users. A non-nil ShopID
// scopes the result to one tenant; ExcludeSuperAdmin hides superadmin rows
// from shop-owner listings.
type Filter struct {
	ShopID            *uuid.UUID
	Role              *Role
	EMIStatus         *EMIStatus
	IsActive          *bool
	ExcludeSuperAdmin bool
	Search            string
	Page              int
	PageSize          int
	SortBy            string
	SortOrder         string
}
