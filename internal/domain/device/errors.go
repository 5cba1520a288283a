package device

import "errors"

var (
	ErrDeviceNotFound      = errors.New("device not found")
	ErrDeviceAlreadyExists = errors.New("device with this ID or IMEI already exists")
	ErrAlreadyLocked       = errors.New("device is already locked")
	ErrNotLocked           = errors.New("device is not locked")
	ErrInvalidLockReason   = errors.New("invalid lock reason")
)
