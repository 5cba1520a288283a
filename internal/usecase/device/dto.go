package device

import (
	"time"

	"github.com/google/uuid"

	domainDevice "emi-device-manager/internal/domain/device"
	"emi-device-manager/pkg/utils"
)

type RegisterRequest struct {
	UserID         uuid.UUID `json:"user_id" validate:"required"`
	DeviceID       string    `json:"device_id" validate:"required,min=3,max=100"`
	IMEINumber     string    `json:"imei_number" validate:"required,imei"`
	Brand          *string   `json:"brand" validate:"omitempty,max=100"`
	Model          *string   `json:"model" validate:"omitempty,max=100"`
	OSVersion      *string   `json:"os_version" validate:"omitempty,max=50"`
	ConnectionType *string   `json:"connection_type" validate:"omitempty,oneof=wifi mobile"`
}

type LockRequest struct {
	Reason *domainDevice.LockReason `json:"reason" validate:"omitempty,oneof=emi_default manual_lock suspicious_activity maintenance"`
}

type BulkLockRequest struct {
	DeviceIDs []uuid.UUID              `json:"deviceIds" validate:"required,min=1"`
	Reason    *domainDevice.LockReason `json:"reason" validate:"omitempty,oneof=emi_default manual_lock suspicious_activity maintenance"`
}

type BulkUnlockRequest struct {
	DeviceIDs []uuid.UUID `json:"deviceIds" validate:"required,min=1"`
}

type HeartbeatRequest struct {
	ConnectionType *string `json:"connection_type"`
	AppInstalled   *bool   `json:"app_installed"`
	AppTampered    *bool   `json:"app_tampered"`
	RootDetected   *bool   `json:"root_detected"`
}

type FilterRequest struct {
	IsLocked  *bool  `form:"is_locked"`
	IsOnline  *bool  `form:"is_online"`
	Search    string `form:"search"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	Limit     int    `form:"limit" validate:"omitempty,min=1,max=100"`
	SortBy    string `form:"sort_by" validate:"omitempty,oneof=created_at updated_at device_id"`
	SortOrder string `form:"sort_order" validate:"omitempty,oneof=asc desc"`
}

type LockStatusResponse struct {
	IsLocked   bool                     `json:"is_locked"`
	LockedAt   *time.Time               `json:"locked_at"`
	UnlockedAt *time.Time               `json:"unlocked_at"`
	LockReason *domainDevice.LockReason `json:"lock_reason"`
	LockedBy   *uuid.UUID               `json:"locked_by"`
}

type ConnectionStatusResponse struct {
	IsOnline       bool       `json:"is_online"`
	LastSeen       *time.Time `json:"last_seen"`
	LastHeartbeat  *time.Time `json:"last_heartbeat"`
	ConnectionType *string    `json:"connection_type"`
}

type SecurityResponse struct {
	AppInstalled      bool       `json:"app_installed"`
	AppTampered       bool       `json:"app_tampered"`
	RootDetected      bool       `json:"root_detected"`
	LastSecurityCheck *time.Time `json:"last_security_check"`
}

type DeviceResponse struct {
	ID         uuid.UUID                `json:"id"`
	UserID     uuid.UUID                `json:"user_id"`
	ShopID     uuid.UUID                `json:"shop_id"`
	DeviceID   string                   `json:"device_id"`
	IMEINumber string                   `json:"imei_number"`
	Brand      *string                  `json:"brand"`
	Model      *string                  `json:"model"`
	OSVersion  *string                  `json:"os_version"`
	Lock       LockStatusResponse       `json:"lock_status"`
	Connection ConnectionStatusResponse `json:"connection_status"`
	Security   SecurityResponse         `json:"security"`
	CreatedAt  time.Time                `json:"created_at"`
	UpdatedAt  time.Time                `json:"updated_at"`
}

type ListResponse struct {
	Devices    []DeviceResponse `json:"devices"`
	Pagination utils.Pagination `json:"pagination"`
}

// BulkSuccess and BulkFailure are the per-device outcomes of a bulk
// operation. A bulk call always succeeds as a whole; individual failures
// are data, not errors.
type BulkSuccess struct {
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
	UserName   string `json:"userName"`
}

type BulkFailure struct {
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
	Reason     string `json:"reason"`
}

type BulkResponse struct {
	Successful []BulkSuccess `json:"successful"`
	Failed     []BulkFailure `json:"failed"`
}

type ReconcileResponse struct {
	Checked  int `json:"checked"`
	Repaired int `json:"repaired"`
}

func ToDeviceResponse(d *domainDevice.Device) *DeviceResponse {
	if d == nil {
		return nil
	}
	return &DeviceResponse{
		ID:         d.ID,
		UserID:     d.UserID,
		ShopID:     d.ShopID,
		DeviceID:   d.DeviceID,
		IMEINumber: d.IMEINumber,
		Brand:      d.Brand,
		Model:      d.Model,
		OSVersion:  d.OSVersion,
		Lock: LockStatusResponse{
			IsLocked:   d.Lock.IsLocked,
			LockedAt:   d.Lock.LockedAt,
			UnlockedAt: d.Lock.UnlockedAt,
			LockReason: d.Lock.LockReason,
			LockedBy:   d.Lock.LockedBy,
		},
		Connection: ConnectionStatusResponse{
			IsOnline:       d.IsOnline(),
			LastSeen:       d.Connection.LastSeen,
			LastHeartbeat:  d.Connection.LastHeartbeat,
			ConnectionType: d.Connection.ConnectionType,
		},
		Security: SecurityResponse{
			AppInstalled:      d.Security.AppInstalled,
			AppTampered:       d.Security.AppTampered,
			RootDetected:      d.Security.RootDetected,
			LastSecurityCheck: d.Security.LastSecurityCheck,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
