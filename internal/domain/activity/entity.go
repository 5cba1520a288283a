package activity

import (
	"time"

	"github.com/google/uuid"
)

// Action is the closed set of auditable operations.
type Action string

const (
	ActionLogin            Action = "login"
	ActionShopCreated      Action = "shop_created"
	ActionShopUpdated      Action = "shop_updated"
	ActionShopDeleted      Action = "shop_deleted"
	ActionUserCreated      Action = "user_created"
	ActionUserUpdated      Action = "user_updated"
	ActionUserDeleted      Action = "user_deleted"
	ActionPaymentRecorded  Action = "payment_recorded"
	ActionDeviceRegistered Action = "device_registered"
	ActionDeviceLocked     Action = "device_locked"
	ActionDeviceUnlocked   Action = "device_unlocked"
	ActionBulkLock         Action = "bulk_lock"
	ActionBulkUnlock       Action = "bulk_unlock"
	ActionSensitiveView    Action = "sensitive_view"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Log is an immutable append-only audit record. Logs are never updated and
// only removed when their shop is cascade-deleted.
type Log struct {
	ID          uuid.UUID
	UserID      *uuid.UUID
	ShopID      *uuid.UUID
	DeviceID    *uuid.UUID
	Action      Action
	Description string
	Category    string
	PerformedBy uuid.UUID
	IPAddress   *string
	UserAgent   *string
	Severity    Severity
	Metadata    map[string]interface{}
	CreatedAt   time.Time
}
