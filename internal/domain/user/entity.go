package user

import (
	"time"

	"github.com/google/uuid"
)

// Role is a closed set. Policy decisions switch over it exhaustively so a
// new role is a compile-time exercise, not a string comparison.
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleShopOwner  Role = "shopowner"
	RoleUser       Role = "user"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleShopOwner, RoleUser:
		return true
	}
	return false
}

// EMIStatus tracks the installment plan of a customer.
type EMIStatus string

const (
	EMIActive    EMIStatus = "active"
	EMICompleted EMIStatus = "completed"
	EMIDefaulted EMIStatus = "defaulted"
	EMISuspended EMIStatus = "suspended"
)

// EMIDetails is the installment bookkeeping attached to a customer.
// RemainingAmount is always TotalAmount-PaidAmount; Normalize recomputes it
// before every save.
type EMIDetails struct {
	TotalAmount     float64
	PaidAmount      float64
	RemainingAmount float64
	MonthlyEMI      float64
	DueDate         *time.Time
	NextDueDate     *time.Time
	Status          EMIStatus
}

// DeviceMirror mirrors the lock state of the user's device. The Device
// record is the source of truth; the lock engine keeps this copy in sync
// and ReconcileMirrors repairs any drift.
type DeviceMirror struct {
	IsLocked       bool
	LastLockedAt   *time.Time
	LastUnlockedAt *time.Time
	LockReason     *string
}

// User is a superadmin, a shop owner or a shop customer. ShopID is nil only
// for the super administrator.
type User struct {
	ID             uuid.UUID
	ShopID         *uuid.UUID
	Role           Role
	FullName       string
	Phone          string
	Email          *string
	PasswordHashed string
	Address        *string
	EMI            EMIDetails
	DeviceMirror   DeviceMirror
	// Denormalized reference to the registered device.
	DeviceID   *string
	IMEINumber *string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Normalize recomputes derived EMI fields. Called before persistence.
func (u *User) Normalize() {
	u.EMI.RemainingAmount = u.EMI.TotalAmount - u.EMI.PaidAmount
	if u.EMI.Status == "" {
		u.EMI.Status = EMIActive
	}
	if u.EMI.RemainingAmount <= 0 && u.EMI.TotalAmount > 0 {
		u.EMI.Status = EMICompleted
	}
}
