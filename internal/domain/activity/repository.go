package activity

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for the append-only activity log.
type Repository interface {
	Create(ctx context.Context, log *Log) error
	List(ctx context.Context, filter *Filter) ([]*Log, int64, error)
	ListRecent(ctx context.Context, shopID *uuid.UUID, limit int) ([]*Log, error)
}

// Filter represents filtering options for querying activity logs.
type Filter struct {
	ShopID    *uuid.UUID
	UserID    *uuid.UUID
	DeviceID  *uuid.UUID
	Action    *Action
	Category  string
	Severity  *Severity
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
