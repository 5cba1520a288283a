package device

import (
	"time"

	"github.com/google/uuid"
)

// LockReason is the closed set of reasons a device may be locked.
type LockReason string

const (
	ReasonEMIDefault         LockReason = "emi_default"
	ReasonManualLock         LockReason = "manual_lock"
	ReasonSuspiciousActivity LockReason = "suspicious_activity"
	ReasonMaintenance        LockReason = "maintenance"
)

func (r LockReason) IsValid() bool {
	switch r {
	case ReasonEMIDefault, ReasonManualLock, ReasonSuspiciousActivity, ReasonMaintenance:
		return true
	}
	return false
}

// LockStatus is the lock state machine payload. A device is either locked
// or unlocked; the transition timestamps and actor are kept for audit.
type LockStatus struct {
	IsLocked   bool
	LockedAt   *time.Time
	UnlockedAt *time.Time
	LockReason *LockReason
	LockedBy   *uuid.UUID
}

// ConnectionStatus reflects the last contact from the device agent.
type ConnectionStatus struct {
	IsOnline       bool
	LastSeen       *time.Time
	LastHeartbeat  *time.Time
	ConnectionType *string
}

// Security reports the on-device agent integrity checks.
type Security struct {
	AppInstalled      bool
	AppTampered       bool
	RootDetected      bool
	LastSecurityCheck *time.Time
}

// Device belongs to exactly one user and one shop. DeviceID and IMEINumber
// are unique across the whole system.
type Device struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	ShopID     uuid.UUID
	DeviceID   string
	IMEINumber string
	Brand      *string
	Model      *string
	OSVersion  *string
	Lock       LockStatus
	Connection ConnectionStatus
	Security   Security
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName is the human-readable label used in bulk operation results.
func (d *Device) DisplayName() string {
	switch {
	case d.Brand != nil && d.Model != nil:
		return *d.Brand + " " + *d.Model
	case d.Model != nil:
		return *d.Model
	case d.Brand != nil:
		return *d.Brand
	}
	return d.DeviceID
}

// OnlineWindow is how recent a heartbeat must be for a device to count as
// online. Repository filters and the entity use the same cutoff.
const OnlineWindow = 5 * time.Minute

// IsOnline checks whether the device reported a heartbeat recently.
func (d *Device) IsOnline() bool {
	if d.Connection.LastHeartbeat == nil {
		return false
	}
	return time.Since(*d.Connection.LastHeartbeat) < OnlineWindow
}
