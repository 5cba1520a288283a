package policy

import (
	"github.com/google/uuid"

	"emi-device-manager/internal/domain/user"
	appErrors "emi-device-manager/pkg/errors"
)

// Caller is the resolved identity of the requester.
type Caller struct {
	ID       uuid.UUID
	Role     user.Role
	ShopID   *uuid.UUID
	IsActive bool
}

// Action enumerates every operation gated by the policy.
type Action string

const (
	ShopList   Action = "shop:list"
	ShopView   Action = "shop:view"
	ShopUpdate Action = "shop:update"
	ShopCreate Action = "shop:create"
	ShopDelete Action = "shop:delete"

	UserList   Action = "user:list"
	UserView   Action = "user:view"
	UserUpdate Action = "user:update"
	UserCreate Action = "user:create"
	UserDelete Action = "user:delete"

	DeviceList     Action = "device:list"
	DeviceView     Action = "device:view"
	DeviceRegister Action = "device:register"
	DeviceLock     Action = "device:lock"
	DeviceUnlock   Action = "device:unlock"

	DashboardView    Action = "admin:dashboard"
	SystemHealthView Action = "admin:health"
	MirrorReconcile  Action = "admin:reconcile"
	ActivityView     Action = "activity:view"
)

// Target describes the entity an action is applied to. A nil Target means
// the action is gated on role alone; this is how lock/unlock rejects
// user-role callers before any existence check.
type Target struct {
	// ShopID is the owning shop of the target entity, or the shop itself
	// for shop actions.
	ShopID *uuid.UUID
	// UserID is the target user, or the owning user for device actions.
	UserID *uuid.UUID
	// Role of the target user, for user delete checks.
	Role *user.Role
	// NewRole being granted, for user create checks.
	NewRole *user.Role
}

func deny(reason string) error {
	return appErrors.NewAppError(appErrors.CodeForbidden, reason, nil)
}

func sameShop(caller Caller, target *Target) bool {
	if caller.ShopID == nil || target == nil || target.ShopID == nil {
		return false
	}
	return *caller.ShopID == *target.ShopID
}

func self(caller Caller, target *Target) bool {
	return target != nil && target.UserID != nil && *target.UserID == caller.ID
}

// Decide is a pure function: given the caller and the action's target, it
// returns nil for ALLOW and a FORBIDDEN error for DENY. An inactive caller
// is rejected before any resource rule.
func Decide(caller Caller, action Action, target *Target) error {
	if !caller.IsActive {
		return appErrors.NewAppError(appErrors.CodeAuthInactive, "Account is deactivated", nil)
	}

	switch action {
	case ShopList, ShopCreate, ShopDelete, SystemHealthView, MirrorReconcile:
		return superAdminOnly(caller)
	case ShopView, ShopUpdate:
		return decideShopAccess(caller, target)
	case UserList, UserView, UserUpdate:
		return decideUserAccess(caller, target)
	case UserCreate:
		return decideUserCreate(caller, target)
	case UserDelete:
		return decideUserDelete(caller, target)
	case DeviceList, DeviceView:
		return decideDeviceView(caller, target)
	case DeviceRegister:
		return decideDeviceRegister(caller, target)
	case DeviceLock, DeviceUnlock:
		return decideDeviceLock(caller)
	case DashboardView, ActivityView:
		return decideDashboard(caller)
	}

	return deny("Unknown action")
}

func superAdminOnly(caller Caller) error {
	switch caller.Role {
	case user.RoleSuperAdmin:
		return nil
	case user.RoleShopOwner, user.RoleUser:
		return deny("Super administrator access required")
	}
	return deny("Unknown role")
}

func decideShopAccess(caller Caller, target *Target) error {
	switch caller.Role {
	case user.RoleSuperAdmin:
		return nil
	case user.RoleShopOwner:
		if sameShop(caller, target) {
			return nil
		}
		return deny("Shop owners may only access their own shop")
	case user.RoleUser:
		return deny("Users may not access shop records")
	}
	return deny("Unknown role")
}

func decideUserAccess(caller Caller, target *Target) error {
	switch caller.Role {
	case user.RoleSuperAdmin:
		return nil
	case user.RoleShopOwner:
		// List is scoped by the repository filter; direct access requires
		// the target to live in the caller's shop.
		if target == nil || sameShop(caller, target) {
			return nil
		}
		return deny("User belongs to another shop")
	case user.RoleUser:
		if target == nil || self(caller, target) {
			return nil
		}
		return deny("Users may only access their own record")
	}
	return deny("Unknown role")
}

func decideUserCreate(caller Caller, target *Target) error {
	switch caller.Role {
	case user.RoleSuperAdmin:
		return nil
	case user.RoleShopOwner:
		if target != nil && target.ShopID != nil && !sameShop(caller, target) {
			return deny("Shop owners may only create users in their own shop")
		}
		if target != nil && target.NewRole != nil && *target.NewRole != user.RoleUser {
			return deny("Shop owners may only create user accounts")
		}
		return nil
	case user.RoleUser:
		return deny("Users may not create accounts")
	}
	return deny("Unknown role")
}

func decideUserDelete(caller Caller, target *Target) error {
	switch caller.Role {
	case user.RoleSuperAdmin:
		return nil
	case user.RoleShopOwner:
		if target != nil && target.Role != nil && *target.Role == user.RoleSuperAdmin {
			return deny("Super administrator accounts cannot be deleted")
		}
		if sameShop(caller, target) {
			return nil
		}
		return deny("User belongs to another shop")
	case user.RoleUser:
		return deny("Users may not delete accounts")
	}
	return deny("Unknown role")
}

func decideDeviceView(caller Caller, target *Target) error {
	switch caller.Role {
	case user.RoleSuperAdmin:
		return nil
	case user.RoleShopOwner:
		if target == nil || sameShop(caller, target) {
			return nil
		}
		return deny("Device belongs to another shop")
	case user.RoleUser:
		if target == nil || self(caller, target) {
			return nil
		}
		return deny("Users may only view their own device")
	}
	return deny("Unknown role")
}

func decideDeviceRegister(caller Caller, target *Target) error {
	switch caller.Role {
	case user.RoleSuperAdmin:
		return nil
	case user.RoleShopOwner:
		if target == nil || sameShop(caller, target) {
			return nil
		}
		return deny("Shop owners may only register devices in their own shop")
	case user.RoleUser:
		if self(caller, target) {
			return nil
		}
		return deny("Users may only register their own device")
	}
	return deny("Unknown role")
}

// decideDeviceLock rejects user-role callers unconditionally, before any
// device lookup happens.
func decideDeviceLock(caller Caller) error {
	switch caller.Role {
	case user.RoleSuperAdmin, user.RoleShopOwner:
		return nil
	case user.RoleUser:
		return deny("Users may not lock or unlock devices")
	}
	return deny("Unknown role")
}

func decideDashboard(caller Caller) error {
	switch caller.Role {
	case user.RoleSuperAdmin, user.RoleShopOwner:
		return nil
	case user.RoleUser:
		return deny("Dashboard access requires shop owner or administrator role")
	}
	return deny("Unknown role")
}
