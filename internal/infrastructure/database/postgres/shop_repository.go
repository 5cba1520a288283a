package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domainShop "emi-device-manager/internal/domain/shop"
	"emi-device-manager/internal/infrastructure/database/postgres/models"
)

// ShopRepository implements domain shop.Repository.
type ShopRepository struct {
	db *DB
}

func NewShopRepository(db *DB) domainShop.Repository {
	return &ShopRepository{db: db}
}

func (r *ShopRepository) Create(ctx context.Context, s *domainShop.Shop) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = time.Now()

	dbModel := toShopModel(s)
	if err := r.db.DB.WithContext(ctx).Create(dbModel).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key value") {
			return domainShop.ErrShopAlreadyExists
		}
		return fmt.Errorf("failed to create shop: %w", err)
	}

	s.ID = dbModel.ID
	s.CreatedAt = dbModel.CreatedAt
	s.UpdatedAt = dbModel.UpdatedAt

	return nil
}

func (r *ShopRepository) GetByID(ctx context.Context, shopID uuid.UUID) (*domainShop.Shop, error) {
	var dbModel models.ShopModel
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", shopID).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainShop.ErrShopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}

	return toShopEntity(&dbModel), nil
}

func (r *ShopRepository) GetBySlug(ctx context.Context, slug string) (*domainShop.Shop, error) {
	var dbModel models.ShopModel
	err := r.db.DB.WithContext(ctx).
		Where("slug = ?", slug).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainShop.ErrShopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}

	return toShopEntity(&dbModel), nil
}

func (r *ShopRepository) Update(ctx context.Context, s *domainShop.Shop) error {
	s.UpdatedAt = time.Now()

	result := r.db.DB.WithContext(ctx).
		Model(&models.ShopModel{}).
		Where("id = ?", s.ID).
		Updates(map[string]interface{}{
			"name":                  s.Name,
			"owner_id":              s.OwnerID,
			"phone":                 s.Phone,
			"email":                 s.Email,
			"address":               s.Address,
			"business_type":         s.BusinessType,
			"auto_lock_on_default":  s.Settings.AutoLockOnDefault,
			"grace_period_days":     s.Settings.GracePeriodDays,
			"notification_enabled":  s.Settings.NotificationEnabled,
			"allow_bulk_operations": s.Settings.AllowBulkOperations,
			"is_active":             s.IsActive,
			"updated_at":            s.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update shop: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainShop.ErrShopNotFound
	}

	return nil
}

func (r *ShopRepository) UpdateStatistics(ctx context.Context, shopID uuid.UUID, stats domainShop.Statistics) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.ShopModel{}).
		Where("id = ?", shopID).
		Updates(map[string]interface{}{
			"total_users":    stats.TotalUsers,
			"active_users":   stats.ActiveUsers,
			"locked_devices": stats.LockedDevices,
			"total_revenue":  stats.TotalRevenue,
			"updated_at":     time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update shop statistics: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainShop.ErrShopNotFound
	}

	return nil
}

// Delete removes the shop and everything scoped to it in one transaction.
func (r *ShopRepository) Delete(ctx context.Context, shopID uuid.UUID) error {
	return r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("shop_id = ?", shopID).Delete(&models.ActivityLogModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete shop activity logs: %w", err)
		}
		if err := tx.Where("shop_id = ?", shopID).Delete(&models.DeviceModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete shop devices: %w", err)
		}
		if err := tx.Where("user_id IN (?)",
			tx.Model(&models.UserModel{}).Select("id").Where("shop_id = ?", shopID),
		).Delete(&models.RefreshTokenModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete shop refresh tokens: %w", err)
		}
		if err := tx.Where("shop_id = ?", shopID).Delete(&models.UserModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete shop users: %w", err)
		}

		result := tx.Where("id = ?", shopID).Delete(&models.ShopModel{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete shop: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domainShop.ErrShopNotFound
		}
		return nil
	})
}

func (r *ShopRepository) List(ctx context.Context, filter *domainShop.Filter) ([]*domainShop.Shop, int64, error) {
	query := r.db.DB.WithContext(ctx).Model(&models.ShopModel{})

	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR slug ILIKE ? OR phone ILIKE ?", search, search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count shops: %w", err)
	}

	query = query.Order(orderClause(filter.SortBy, filter.SortOrder, map[string]bool{
		"created_at": true, "name": true, "slug": true,
	}))
	if filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var dbModels []models.ShopModel
	if err := query.Find(&dbModels).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list shops: %w", err)
	}

	shops := make([]*domainShop.Shop, 0, len(dbModels))
	for i := range dbModels {
		shops = append(shops, toShopEntity(&dbModels[i]))
	}

	return shops, total, nil
}

func (r *ShopRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.DB.WithContext(ctx).Model(&models.ShopModel{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count shops: %w", err)
	}
	return total, nil
}

// orderClause builds a safe ORDER BY from whitelisted columns.
func orderClause(sortBy, sortOrder string, allowed map[string]bool) string {
	if !allowed[sortBy] {
		sortBy = "created_at"
	}
	if sortOrder != "asc" {
		sortOrder = "desc"
	}
	return sortBy + " " + sortOrder
}

func toShopModel(s *domainShop.Shop) *models.ShopModel {
	return &models.ShopModel{
		ID:                  s.ID,
		Slug:                s.Slug,
		Name:                s.Name,
		OwnerID:             s.OwnerID,
		Phone:               s.Phone,
		Email:               s.Email,
		Address:             s.Address,
		BusinessType:        s.BusinessType,
		AutoLockOnDefault:   s.Settings.AutoLockOnDefault,
		GracePeriodDays:     s.Settings.GracePeriodDays,
		NotificationEnabled: s.Settings.NotificationEnabled,
		AllowBulkOperations: s.Settings.AllowBulkOperations,
		TotalUsers:          s.Statistics.TotalUsers,
		ActiveUsers:         s.Statistics.ActiveUsers,
		LockedDevices:       s.Statistics.LockedDevices,
		TotalRevenue:        s.Statistics.TotalRevenue,
		IsActive:            s.IsActive,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

func toShopEntity(m *models.ShopModel) *domainShop.Shop {
	return &domainShop.Shop{
		ID:           m.ID,
		Slug:         m.Slug,
		Name:         m.Name,
		OwnerID:      m.OwnerID,
		Phone:        m.Phone,
		Email:        m.Email,
		Address:      m.Address,
		BusinessType: m.BusinessType,
		Settings: domainShop.Settings{
			AutoLockOnDefault:   m.AutoLockOnDefault,
			GracePeriodDays:     m.GracePeriodDays,
			NotificationEnabled: m.NotificationEnabled,
			AllowBulkOperations: m.AllowBulkOperations,
		},
		Statistics: domainShop.Statistics{
			TotalUsers:    m.TotalUsers,
			ActiveUsers:   m.ActiveUsers,
			LockedDevices: m.LockedDevices,
			TotalRevenue:  m.TotalRevenue,
		},
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
