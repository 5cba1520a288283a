package activity

import (
	"time"

	"github.com/google/uuid"

	domainActivity "emi-device-manager/internal/domain/activity"
	"emi-device-manager/pkg/utils"
)

type ListRequest struct {
	ShopID    *uuid.UUID               `form:"shop_id"`
	UserID    *uuid.UUID               `form:"user_id"`
	DeviceID  *uuid.UUID               `form:"device_id"`
	Action    *domainActivity.Action   `form:"action"`
	Category  string                   `form:"category"`
	Severity  *domainActivity.Severity `form:"severity"`
	Page      int                      `form:"page" validate:"omitempty,min=1"`
	Limit     int                      `form:"limit" validate:"omitempty,min=1,max=100"`
	SortBy    string                   `form:"sort_by" validate:"omitempty,oneof=created_at severity action"`
	SortOrder string                   `form:"sort_order" validate:"omitempty,oneof=asc desc"`
}

type LogResponse struct {
	ID          uuid.UUID               `json:"id"`
	UserID      *uuid.UUID              `json:"user_id,omitempty"`
	ShopID      *uuid.UUID              `json:"shop_id,omitempty"`
	DeviceID    *uuid.UUID              `json:"device_id,omitempty"`
	Action      domainActivity.Action   `json:"action"`
	Description string                  `json:"description"`
	Category    string                  `json:"category"`
	PerformedBy uuid.UUID               `json:"performed_by"`
	IPAddress   *string                 `json:"ip_address,omitempty"`
	Severity    domainActivity.Severity `json:"severity"`
	Metadata    map[string]interface{}  `json:"metadata,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

type ListResponse struct {
	Logs       []LogResponse    `json:"logs"`
	Pagination utils.Pagination `json:"pagination"`
}

func ToLogResponse(l *domainActivity.Log) LogResponse {
	return LogResponse{
		ID:          l.ID,
		UserID:      l.UserID,
		ShopID:      l.ShopID,
		DeviceID:    l.DeviceID,
		Action:      l.Action,
		Description: l.Description,
		Category:    l.Category,
		PerformedBy: l.PerformedBy,
		IPAddress:   l.IPAddress,
		Severity:    l.Severity,
		Metadata:    l.Metadata,
		CreatedAt:   l.CreatedAt,
	}
}
