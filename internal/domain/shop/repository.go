package shop

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for shop persistence.
type Repository interface {
	Create(ctx context.Context, shop *Shop) error
	GetByID(ctx context.Context, shopID uuid.UUID) (*Shop, error)
	GetBySlug(ctx context.Context, slug string) (*Shop, error)
	Update(ctx context.Context, shop *Shop) error
	UpdateStatistics(ctx context.Context, shopID uuid.UUID, stats Statistics) error
	// Delete removes the shop and cascades to its users, devices and
	// activity logs.
	Delete(ctx context.Context, shopID uuid.UUID) error
	List(ctx context.Context, filter *Filter) ([]*Shop, int64, error)
	Count(ctx context.Context) (int64, error)
}

// Filter represents filtering options for listing shops.
type Filter struct {
	Search    string
	IsActive  *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
