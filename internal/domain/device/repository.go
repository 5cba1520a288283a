package device

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for device persistence.
type Repository interface {
	Create(ctx context.Context, device *Device) error
	// GetByID fetches a device, optionally scoped to one shop. A non-nil
	// shopID turns cross-tenant access into a not-found, so existence is
	// never leaked across shops.
	GetByID(ctx context.Context, id uuid.UUID, shopID *uuid.UUID) (*Device, error)
	GetByDeviceID(ctx context.Context, deviceID string) (*Device, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Device, error)
	// ExistsByDeviceIDOrIMEI is the combined duplicate check used at
	// registration time.
	ExistsByDeviceIDOrIMEI(ctx context.Context, deviceID, imei string) (bool, error)
	// ListByIDs returns the caller-scoped subset of the requested id set.
	// Ids outside the scope are simply absent from the result.
	ListByIDs(ctx context.Context, ids []uuid.UUID, shopID *uuid.UUID) ([]*Device, error)
	UpdateLockStatus(ctx context.Context, id uuid.UUID, lock LockStatus) error
	UpdateConnectionStatus(ctx context.Context, deviceID string, conn ConnectionStatus) error
	UpdateSecurity(ctx context.Context, deviceID string, sec Security) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter *Filter) ([]*Device, int64, error)
	Count(ctx context.Context) (int64, error)
	CountLocked(ctx context.Context, shopID *uuid.UUID) (int64, error)
}

// Filter represents filtering options for listing devices.
type Filter struct {
	ShopID    *uuid.UUID
	UserID    *uuid.UUID
	IsLocked  *bool
	IsOnline  *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
