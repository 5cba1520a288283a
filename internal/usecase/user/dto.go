package user

import (
	"time"

	"github.com/google/uuid"

	domainUser "emi-device-manager/internal/domain/user"
	"emi-device-manager/pkg/utils"
)

type CreateRequest struct {
	ShopID   *uuid.UUID  `json:"shop_id"`
	Role     *string     `json:"role" validate:"omitempty,oneof=superadmin shopowner user"`
	FullName string      `json:"full_name" validate:"required,min=2,max=200"`
	Phone    string      `json:"phone" validate:"required,phone"`
	Email    *string     `json:"email" validate:"omitempty,email"`
	Password string      `json:"password" validate:"required"`
	Address  *string     `json:"address" validate:"omitempty,max=500"`
	EMI      *EMIRequest `json:"emi_details"`
}

// EMIRequest carries the installment plan set at customer creation or
// adjusted later.
type EMIRequest struct {
	TotalAmount float64    `json:"total_amount" validate:"gte=0"`
	PaidAmount  float64    `json:"paid_amount" validate:"gte=0"`
	MonthlyEMI  float64    `json:"monthly_emi" validate:"gte=0"`
	DueDate     *time.Time `json:"due_date"`
	NextDueDate *time.Time `json:"next_due_date"`
	Status      *string    `json:"status" validate:"omitempty,oneof=active completed defaulted suspended"`
}

type UpdateRequest struct {
	FullName *string     `json:"full_name" validate:"omitempty,min=2,max=200"`
	Email    *string     `json:"email" validate:"omitempty,email"`
	Address  *string     `json:"address" validate:"omitempty,max=500"`
	IsActive *bool       `json:"is_active"`
	Role     *string     `json:"role" validate:"omitempty,oneof=superadmin shopowner user"`
	EMI      *EMIRequest `json:"emi_details"`
}

type RecordPaymentRequest struct {
	Amount      float64    `json:"amount" validate:"required,gt=0"`
	NextDueDate *time.Time `json:"next_due_date"`
	Note        *string    `json:"note" validate:"omitempty,max=500"`
}

type FilterRequest struct {
	Role      *string `form:"role" validate:"omitempty,oneof=superadmin shopowner user"`
	EMIStatus *string `form:"emi_status" validate:"omitempty,oneof=active completed defaulted suspended"`
	IsActive  *bool   `form:"is_active"`
	Search    string  `form:"search" validate:"omitempty,max=200"`
	Page      int     `form:"page"`
	Limit     int     `form:"limit"`
	SortBy    string  `form:"sort_by" validate:"omitempty,oneof=created_at full_name phone"`
	SortOrder string  `form:"sort_order" validate:"omitempty,oneof=asc desc"`
}

type EMIResponse struct {
	TotalAmount     float64    `json:"total_amount"`
	PaidAmount      float64    `json:"paid_amount"`
	RemainingAmount float64    `json:"remaining_amount"`
	MonthlyEMI      float64    `json:"monthly_emi"`
	DueDate         *time.Time `json:"due_date"`
	NextDueDate     *time.Time `json:"next_due_date"`
	Status          string     `json:"status"`
}

type DeviceMirrorResponse struct {
	IsLocked       bool       `json:"is_locked"`
	LastLockedAt   *time.Time `json:"last_locked_at"`
	LastUnlockedAt *time.Time `json:"last_unlocked_at"`
	LockReason     *string    `json:"lock_reason"`
}

type UserResponse struct {
	ID           uuid.UUID            `json:"id"`
	ShopID       *uuid.UUID           `json:"shop_id"`
	Role         string               `json:"role"`
	FullName     string               `json:"full_name"`
	Phone        string               `json:"phone"`
	Email        *string              `json:"email"`
	Address      *string              `json:"address"`
	EMI          EMIResponse          `json:"emi_details"`
	DeviceStatus DeviceMirrorResponse `json:"device_status"`
	DeviceID     *string              `json:"device_id"`
	IMEINumber   *string              `json:"imei_number"`
	IsActive     bool                 `json:"is_active"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

type ListResponse struct {
	Users      []UserResponse   `json:"users"`
	Pagination utils.Pagination `json:"pagination"`
}

func ToUserResponse(u *domainUser.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:       u.ID,
		ShopID:   u.ShopID,
		Role:     string(u.Role),
		FullName: u.FullName,
		Phone:    u.Phone,
		Email:    u.Email,
		Address:  u.Address,
		EMI: EMIResponse{
			TotalAmount:     u.EMI.TotalAmount,
			PaidAmount:      u.EMI.PaidAmount,
			RemainingAmount: u.EMI.RemainingAmount,
			MonthlyEMI:      u.EMI.MonthlyEMI,
			DueDate:         u.EMI.DueDate,
			NextDueDate:     u.EMI.NextDueDate,
			Status:          string(u.EMI.Status),
		},
		DeviceStatus: DeviceMirrorResponse{
			IsLocked:       u.DeviceMirror.IsLocked,
			LastLockedAt:   u.DeviceMirror.LastLockedAt,
			LastUnlockedAt: u.DeviceMirror.LastUnlockedAt,
			LockReason:     u.DeviceMirror.LockReason,
		},
		DeviceID:   u.DeviceID,
		IMEINumber: u.IMEINumber,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}
