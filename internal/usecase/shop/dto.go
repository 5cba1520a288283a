package shop

import (
	"time"

	"github.com/google/uuid"

	domainShop "emi-device-manager/internal/domain/shop"
	"emi-device-manager/pkg/utils"
)

type CreateRequest struct {
	Slug         string  `json:"slug" validate:"required,shop_slug"`
	Name         string  `json:"name" validate:"required,min=2,max=200"`
	Phone        string  `json:"phone" validate:"required,phone"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Address      *string `json:"address" validate:"omitempty,max=500"`
	BusinessType *string `json:"business_type" validate:"omitempty,max=100"`
}

type UpdateRequest struct {
	Name         *string          `json:"name" validate:"omitempty,min=2,max=200"`
	Phone        *string          `json:"phone" validate:"omitempty,phone"`
	Email        *string          `json:"email" validate:"omitempty,email"`
	Address      *string          `json:"address" validate:"omitempty,max=500"`
	BusinessType *string          `json:"business_type" validate:"omitempty,max=100"`
	IsActive     *bool            `json:"is_active"`
	Settings     *SettingsRequest `json:"settings"`
}

type SettingsRequest struct {
	AutoLockOnDefault   *bool `json:"auto_lock_on_default"`
	GracePeriodDays     *int  `json:"grace_period_days" validate:"omitempty,gte=0,lte=90"`
	NotificationEnabled *bool `json:"notification_enabled"`
	AllowBulkOperations *bool `json:"allow_bulk_operations"`
}

type FilterRequest struct {
	IsActive  *bool  `form:"is_active"`
	Search    string `form:"search" validate:"omitempty,max=200"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
	SortBy    string `form:"sort_by" validate:"omitempty,oneof=created_at name slug"`
	SortOrder string `form:"sort_order" validate:"omitempty,oneof=asc desc"`
}

type SettingsResponse struct {
	AutoLockOnDefault   bool `json:"auto_lock_on_default"`
	GracePeriodDays     int  `json:"grace_period_days"`
	NotificationEnabled bool `json:"notification_enabled"`
	AllowBulkOperations bool `json:"allow_bulk_operations"`
}

type ShopResponse struct {
	ID           uuid.UUID             `json:"id"`
	Slug         string                `json:"slug"`
	Name         string                `json:"name"`
	OwnerID      *uuid.UUID            `json:"owner_id"`
	Phone        string                `json:"phone"`
	Email        *string               `json:"email"`
	Address      *string               `json:"address"`
	BusinessType *string               `json:"business_type"`
	Settings     SettingsResponse      `json:"settings"`
	Statistics   domainShop.Statistics `json:"statistics"`
	IsActive     bool                  `json:"is_active"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

type ListResponse struct {
	Shops      []ShopResponse   `json:"shops"`
	Pagination utils.Pagination `json:"pagination"`
}

func ToShopResponse(s *domainShop.Shop) *ShopResponse {
	if s == nil {
		return nil
	}
	return &ShopResponse{
		ID:           s.ID,
		Slug:         s.Slug,
		Name:         s.Name,
		OwnerID:      s.OwnerID,
		Phone:        s.Phone,
		Email:        s.Email,
		Address:      s.Address,
		BusinessType: s.BusinessType,
		Settings: SettingsResponse{
			AutoLockOnDefault:   s.Settings.AutoLockOnDefault,
			GracePeriodDays:     s.Settings.GracePeriodDays,
			NotificationEnabled: s.Settings.NotificationEnabled,
			AllowBulkOperations: s.Settings.AllowBulkOperations,
		},
		Statistics: s.Statistics,
		IsActive:   s.IsActive,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}
