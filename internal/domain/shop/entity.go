package shop

import (
	"time"

	"github.com/google/uuid"
)

// Shop is a tenant. It owns its customers and their devices and is run by
// exactly one shop owner.
type Shop struct {
	ID           uuid.UUID
	Slug         string // unique human-readable shop identifier
	Name         string
	OwnerID      *uuid.UUID
	Phone        string
	Email        *string
	Address      *string
	BusinessType *string
	Settings     Settings
	Statistics   Statistics
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Settings control per-shop behavior of the lock engine.
type Settings struct {
	AutoLockOnDefault   bool
	GracePeriodDays     int
	NotificationEnabled bool
	AllowBulkOperations bool
}

// Statistics is a denormalized snapshot recomputed from the shop's user
// set. It is a point-in-time materialized view, never incremented in place.
type Statistics struct {
	TotalUsers    int64   `json:"total_users"`
	ActiveUsers   int64   `json:"active_users"`
	LockedDevices int64   `json:"locked_devices"`
	TotalRevenue  float64 `json:"total_revenue"`
}

func DefaultSettings() Settings {
	return Settings{
		AutoLockOnDefault:   true,
		GracePeriodDays:     3,
		NotificationEnabled: true,
		AllowBulkOperations: true,
	}
}
