package models

import (
	"time"

	"github.com/google/uuid"
)

// UserModel represents the database model for User. The EMI plan and the
// device lock mirror are flattened into columns; emi_remaining_amount is a
// stored copy of total minus paid, recomputed by the domain layer.
type UserModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ShopID         *uuid.UUID `gorm:"type:uuid;index"`
	Role           string     `gorm:"type:varchar(50);not null;default:'user';index"`
	FullName       string     `gorm:"type:varchar(200);not null"`
	Phone          string     `gorm:"type:varchar(20);not null;uniqueIndex"`
	Email          *string    `gorm:"type:varchar(255);uniqueIndex"`
	PasswordHashed string     `gorm:"type:varchar(255);not null"`
	Address        *string    `gorm:"type:text"`

	EMITotalAmount     float64    `gorm:"column:emi_total_amount;default:0;not null"`
	EMIPaidAmount      float64    `gorm:"column:emi_paid_amount;default:0;not null"`
	EMIRemainingAmount float64    `gorm:"column:emi_remaining_amount;default:0;not null"`
	EMIMonthly         float64    `gorm:"column:emi_monthly;default:0;not null"`
	EMIDueDate         *time.Time `gorm:"column:emi_due_date"`
	EMINextDueDate     *time.Time `gorm:"column:emi_next_due_date"`
	EMIStatus          string     `gorm:"column:emi_status;type:varchar(20);not null;default:'active';index"`

	DeviceLocked     bool       `gorm:"default:false;not null"`
	LastLockedAt     *time.Time `gorm:"type:timestamp"`
	LastUnlockedAt   *time.Time `gorm:"type:timestamp"`
	DeviceLockReason *string    `gorm:"type:varchar(50)"`

	DeviceID   *string `gorm:"type:varchar(100)"`
	IMEINumber *string `gorm:"column:imei_number;type:varchar(15)"`

	IsActive  bool      `gorm:"default:true;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (UserModel) TableName() string {
	return "users"
}

// RefreshTokenModel represents the database model for RefreshToken.
type RefreshTokenModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	Token     string     `gorm:"type:varchar(500);not null;unique;index"`
	ExpiresAt time.Time  `gorm:"not null;index"`
	Revoked   bool       `gorm:"default:false;index"`
	RevokedAt *time.Time `gorm:"type:timestamp"`
	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt time.Time  `gorm:"not null"`
}

func (RefreshTokenModel) TableName() string {
	return "refresh_tokens"
}
