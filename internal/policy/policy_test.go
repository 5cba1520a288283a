package policy

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"emi-device-manager/internal/domain/user"
	appErrors "emi-device-manager/pkg/errors"
)

var (
	shopA = uuid.New()
	shopB = uuid.New()
)

func superadmin() Caller {
	return Caller{ID: uuid.New(), Role: user.RoleSuperAdmin, IsActive: true}
}

func shopowner(shopID uuid.UUID) Caller {
	return Caller{ID: uuid.New(), Role: user.RoleShopOwner, ShopID: &shopID, IsActive: true}
}

func customer(shopID uuid.UUID) Caller {
	return Caller{ID: uuid.New(), Role: user.RoleUser, ShopID: &shopID, IsActive: true}
}

func code(err error) string {
	var appErr *appErrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func TestDecide_InactiveCallerRejectedFirst(t *testing.T) {
	caller := superadmin()
	caller.IsActive = false

	err := Decide(caller, ShopList, nil)
	if err == nil {
		t.Fatal("Decide() expected error for inactive caller, got nil")
	}
	if got := code(err); got != appErrors.CodeAuthInactive {
		t.Errorf("Decide() code = %q, want %q", got, appErrors.CodeAuthInactive)
	}
}

func TestDecide_Matrix(t *testing.T) {
	ownerRole := user.RoleShopOwner
	userRole := user.RoleUser
	superRole := user.RoleSuperAdmin

	tests := []struct {
		name   string
		caller Caller
		action Action
		target *Target
		allow  bool
	}{
		{"superadmin lists shops", superadmin(), ShopList, nil, true},
		{"shopowner lists shops", shopowner(shopA), ShopList, nil, false},
		{"user lists shops", customer(shopA), ShopList, nil, false},

		{"shopowner views own shop", shopowner(shopA), ShopView, &Target{ShopID: &shopA}, true},
		{"shopowner views other shop", shopowner(shopA), ShopView, &Target{ShopID: &shopB}, false},
		{"user views shop", customer(shopA), ShopView, &Target{ShopID: &shopA}, false},
		{"shopowner updates own shop", shopowner(shopA), ShopUpdate, &Target{ShopID: &shopA}, true},

		{"shopowner creates shop", shopowner(shopA), ShopCreate, nil, false},
		{"shopowner deletes shop", shopowner(shopA), ShopDelete, &Target{ShopID: &shopA}, false},
		{"superadmin deletes shop", superadmin(), ShopDelete, &Target{ShopID: &shopA}, true},

		{"superadmin views any user", superadmin(), UserView, &Target{ShopID: &shopB}, true},
		{"shopowner views user in own shop", shopowner(shopA), UserView, &Target{ShopID: &shopA}, true},
		{"shopowner views user in other shop", shopowner(shopA), UserView, &Target{ShopID: &shopB}, false},
		{"user lists self", customer(shopA), UserList, nil, true},

		{"shopowner creates user in own shop", shopowner(shopA), UserCreate, &Target{ShopID: &shopA, NewRole: &userRole}, true},
		{"shopowner creates shopowner", shopowner(shopA), UserCreate, &Target{ShopID: &shopA, NewRole: &ownerRole}, false},
		{"shopowner creates superadmin", shopowner(shopA), UserCreate, &Target{ShopID: &shopA, NewRole: &superRole}, false},
		{"shopowner creates user in other shop", shopowner(shopA), UserCreate, &Target{ShopID: &shopB, NewRole: &userRole}, false},
		{"user creates user", customer(shopA), UserCreate, &Target{ShopID: &shopA, NewRole: &userRole}, false},
		{"superadmin creates shopowner anywhere", superadmin(), UserCreate, &Target{ShopID: &shopB, NewRole: &ownerRole}, true},

		{"shopowner deletes superadmin", shopowner(shopA), UserDelete, &Target{ShopID: &shopA, Role: &superRole}, false},
		{"shopowner deletes user in own shop", shopowner(shopA), UserDelete, &Target{ShopID: &shopA, Role: &userRole}, true},

		{"shopowner locks device", shopowner(shopA), DeviceLock, nil, true},
		{"user locks device", customer(shopA), DeviceLock, nil, false},
		{"user unlocks device", customer(shopA), DeviceUnlock, nil, false},
		{"superadmin locks device", superadmin(), DeviceLock, nil, true},

		{"shopowner registers device in own shop", shopowner(shopA), DeviceRegister, &Target{ShopID: &shopA}, true},
		{"shopowner registers device in other shop", shopowner(shopA), DeviceRegister, &Target{ShopID: &shopB}, false},

		{"user views dashboard", customer(shopA), DashboardView, nil, false},
		{"shopowner views dashboard", shopowner(shopA), DashboardView, nil, true},
		{"shopowner views system health", shopowner(shopA), SystemHealthView, nil, false},
		{"superadmin views system health", superadmin(), SystemHealthView, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Decide(tt.caller, tt.action, tt.target)
			if tt.allow && err != nil {
				t.Errorf("Decide() = %v, want ALLOW", err)
			}
			if !tt.allow {
				if err == nil {
					t.Fatal("Decide() = nil, want DENY")
				}
				if got := code(err); got != appErrors.CodeForbidden {
					t.Errorf("Decide() code = %q, want %q", got, appErrors.CodeForbidden)
				}
			}
		})
	}
}

func TestDecide_UserSelfAccess(t *testing.T) {
	caller := customer(shopA)

	if err := Decide(caller, UserView, &Target{UserID: &caller.ID, ShopID: &shopA}); err != nil {
		t.Errorf("Decide() self view = %v, want ALLOW", err)
	}

	otherID := uuid.New()
	if err := Decide(caller, UserView, &Target{UserID: &otherID, ShopID: &shopA}); err == nil {
		t.Error("Decide() other user view = nil, want DENY")
	}

	if err := Decide(caller, DeviceView, &Target{UserID: &caller.ID, ShopID: &shopA}); err != nil {
		t.Errorf("Decide() own device view = %v, want ALLOW", err)
	}
	if err := Decide(caller, DeviceView, &Target{UserID: &otherID, ShopID: &shopA}); err == nil {
		t.Error("Decide() other device view = nil, want DENY")
	}
}
