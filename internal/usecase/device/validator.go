package device

import (
	domainUser "emi-device-manager/internal/domain/user"
	appErrors "emi-device-manager/pkg/errors"
)

// ValidateOwner checks that a device can be registered against this user.
// Devices belong to customers; owner accounts and the super administrator
// do not carry managed devices.
func ValidateOwner(owner *domainUser.User) error {
	if owner.Role != domainUser.RoleUser {
		return appErrors.NewAppError(appErrors.CodeValidation,
			"Devices can only be registered for customer accounts", nil)
	}
	if !owner.IsActive {
		return appErrors.ErrUserInactive
	}
	return nil
}
