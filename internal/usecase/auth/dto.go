package auth

import (
	"time"

	"github.com/google/uuid"

	domainUser "emi-device-manager/internal/domain/user"
)

// LoginRequest accepts a phone number or an email address as the
// identifier.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,min=3,max=255"`
	Password   string `json:"password" validate:"required"`
}

// RegisterShopRequest is the self-service shop signup. It creates the shop
// and its owner account in one call.
type RegisterShopRequest struct {
	ShopName     string  `json:"shop_name" validate:"required,min=2,max=200"`
	Slug         string  `json:"slug" validate:"required,shop_slug"`
	OwnerName    string  `json:"owner_name" validate:"required,min=2,max=200"`
	Phone        string  `json:"phone" validate:"required,phone"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Password     string  `json:"password" validate:"required"`
	Address      *string `json:"address" validate:"omitempty,max=500"`
	BusinessType *string `json:"business_type" validate:"omitempty,max=100"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// AuthUser is the user projection returned with tokens. It never carries
// the password hash or installment details.
type AuthUser struct {
	ID       uuid.UUID  `json:"id"`
	ShopID   *uuid.UUID `json:"shop_id"`
	Role     string     `json:"role"`
	FullName string     `json:"full_name"`
	Phone    string     `json:"phone"`
	Email    *string    `json:"email"`
}

type AuthResponse struct {
	User         *AuthUser `json:"user"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type RefreshResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func toAuthUser(u *domainUser.User) *AuthUser {
	return &AuthUser{
		ID:       u.ID,
		ShopID:   u.ShopID,
		Role:     string(u.Role),
		FullName: u.FullName,
		Phone:    u.Phone,
		Email:    u.Email,
	}
}
