package admin

import (
	"time"

	"github.com/google/uuid"

	domainShop "emi-device-manager/internal/domain/shop"
)

// DashboardResponse is the aggregate view for the admin screens. Shop
// owners see their own tenant; the super administrator sees fleet totals.
type DashboardResponse struct {
	TotalShops     int64                  `json:"total_shops,omitempty"`
	TotalUsers     int64                  `json:"total_users"`
	TotalDevices   int64                  `json:"total_devices"`
	LockedDevices  int64                  `json:"locked_devices"`
	OnlineDevices  int64                  `json:"online_devices"`
	ShopStatistics *domainShop.Statistics `json:"shop_statistics,omitempty"`
	RecentActivity []ActivityEntry        `json:"recent_activity"`
	GeneratedAt    time.Time              `json:"generated_at"`
}

type ActivityEntry struct {
	ID          uuid.UUID `json:"id"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	CreatedAt   time.Time `json:"created_at"`
}

// SystemHealthResponse reports process and database health.
type SystemHealthResponse struct {
	Status    string         `json:"status"`
	Database  DatabaseHealth `json:"database"`
	Uptime    string         `json:"uptime"`
	Memory    MemoryStats    `json:"memory"`
	Timestamp time.Time      `json:"timestamp"`
}

type DatabaseHealth struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

type MemoryStats struct {
	AllocMB      uint64 `json:"alloc_mb"`
	TotalAllocMB uint64 `json:"total_alloc_mb"`
	SysMB        uint64 `json:"sys_mb"`
	NumGC        uint32 `json:"num_gc"`
}
