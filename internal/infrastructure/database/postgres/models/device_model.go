package models

import (
	"time"

	"github.com/google/uuid"
)

// DeviceModel represents the database model for Device. The unique index
// on user_id enforces one registered device per customer.
type DeviceModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	ShopID     uuid.UUID `gorm:"type:uuid;not null;index"`
	DeviceID   string    `gorm:"type:varchar(100);not null;uniqueIndex"`
	IMEINumber string    `gorm:"column:imei_number;type:varchar(15);not null;uniqueIndex"`
	Brand      *string   `gorm:"type:varchar(100)"`
	Model      *string   `gorm:"type:varchar(100)"`
	OSVersion  *string   `gorm:"column:os_version;type:varchar(50)"`

	IsLocked   bool       `gorm:"default:false;not null;index"`
	LockedAt   *time.Time `gorm:"type:timestamp"`
	UnlockedAt *time.Time `gorm:"type:timestamp"`
	LockReason *string    `gorm:"type:varchar(50)"`
	LockedBy   *uuid.UUID `gorm:"type:uuid"`

	IsOnline       bool       `gorm:"default:false;not null;index"`
	LastSeen       *time.Time `gorm:"type:timestamp"`
	LastHeartbeat  *time.Time `gorm:"type:timestamp"`
	ConnectionType *string    `gorm:"type:varchar(20)"`

	AppInstalled      bool       `gorm:"default:true;not null"`
	AppTampered       bool       `gorm:"default:false;not null"`
	RootDetected      bool       `gorm:"default:false;not null"`
	LastSecurityCheck *time.Time `gorm:"type:timestamp"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (DeviceModel) TableName() string {
	return "devices"
}
