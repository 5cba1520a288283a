package models

import (
	"time"

	"github.com/google/uuid"
)

// ShopModel represents the database model for Shop. Settings and the
// statistics snapshot are flattened into columns.
type ShopModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Slug         string     `gorm:"type:varchar(100);not null;uniqueIndex"`
	Name         string     `gorm:"type:varchar(200);not null"`
	OwnerID      *uuid.UUID `gorm:"type:uuid;index"`
	Phone        string     `gorm:"type:varchar(20);not null"`
	Email        *string    `gorm:"type:varchar(255)"`
	Address      *string    `gorm:"type:text"`
	BusinessType *string    `gorm:"type:varchar(100)"`

	AutoLockOnDefault   bool `gorm:"default:true;not null"`
	GracePeriodDays     int  `gorm:"default:3;not null"`
	NotificationEnabled bool `gorm:"default:true;not null"`
	AllowBulkOperations bool `gorm:"default:true;not null"`

	TotalUsers    int64   `gorm:"default:0;not null"`
	ActiveUsers   int64   `gorm:"default:0;not null"`
	LockedDevices int64   `gorm:"default:0;not null"`
	TotalRevenue  float64 `gorm:"default:0;not null"`

	IsActive  bool      `gorm:"default:true;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (ShopModel) TableName() string {
	return "shops"
}
