package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainActivity "emi-device-manager/internal/domain/activity"
	"emi-device-manager/internal/infrastructure/database/postgres/models"
)

// ActivityRepository implements domain activity.Repository. The table is
// append-only; there is no update path.
type ActivityRepository struct {
	db *DB
}

func NewActivityRepository(db *DB) domainActivity.Repository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, log *domainActivity.Log) error {
	log.ID = uuid.New()
	log.CreatedAt = time.Now()

	dbModel := toActivityModel(log)
	if err := r.db.DB.WithContext(ctx).Create(dbModel).Error; err != nil {
		return fmt.Errorf("failed to create activity log: %w", err)
	}

	log.ID = dbModel.ID
	log.CreatedAt = dbModel.CreatedAt

	return nil
}

func (r *ActivityRepository) List(ctx context.Context, filter *domainActivity.Filter) ([]*domainActivity.Log, int64, error) {
	query := r.db.DB.WithContext(ctx).Model(&models.ActivityLogModel{})

	if filter.ShopID != nil {
		query = query.Where("shop_id = ?", *filter.ShopID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.DeviceID != nil {
		query = query.Where("device_id = ?", *filter.DeviceID)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", string(*filter.Action))
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Severity != nil {
		query = query.Where("severity = ?", string(*filter.Severity))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count activity logs: %w", err)
	}

	query = query.Order(orderClause(filter.SortBy, filter.SortOrder, map[string]bool{
		"created_at": true, "severity": true, "action": true,
	}))
	if filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var dbModels []models.ActivityLogModel
	if err := query.Find(&dbModels).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list activity logs: %w", err)
	}

	logs := make([]*domainActivity.Log, 0, len(dbModels))
	for i := range dbModels {
		logs = append(logs, toActivityEntity(&dbModels[i]))
	}

	return logs, total, nil
}

func (r *ActivityRepository) ListRecent(ctx context.Context, shopID *uuid.UUID, limit int) ([]*domainActivity.Log, error) {
	query := r.db.DB.WithContext(ctx).Model(&models.ActivityLogModel{})
	if shopID != nil {
		query = query.Where("shop_id = ?", *shopID)
	}

	var dbModels []models.ActivityLogModel
	if err := query.Order("created_at desc").Limit(limit).Find(&dbModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list recent activity: %w", err)
	}

	logs := make([]*domainActivity.Log, 0, len(dbModels))
	for i := range dbModels {
		logs = append(logs, toActivityEntity(&dbModels[i]))
	}

	return logs, nil
}

func toActivityModel(l *domainActivity.Log) *models.ActivityLogModel {
	return &models.ActivityLogModel{
		ID:          l.ID,
		UserID:      l.UserID,
		ShopID:      l.ShopID,
		DeviceID:    l.DeviceID,
		Action:      string(l.Action),
		Description: l.Description,
		Category:    l.Category,
		PerformedBy: l.PerformedBy,
		IPAddress:   l.IPAddress,
		UserAgent:   l.UserAgent,
		Severity:    string(l.Severity),
		Metadata:    models.JSONB(l.Metadata),
		CreatedAt:   l.CreatedAt,
	}
}

func toActivityEntity(m *models.ActivityLogModel) *domainActivity.Log {
	return &domainActivity.Log{
		ID:          m.ID,
		UserID:      m.UserID,
		ShopID:      m.ShopID,
		DeviceID:    m.DeviceID,
		Action:      domainActivity.Action(m.Action),
		Description: m.Description,
		Category:    m.Category,
		PerformedBy: m.PerformedBy,
		IPAddress:   m.IPAddress,
		UserAgent:   m.UserAgent,
		Severity:    domainActivity.Severity(m.Severity),
		Metadata:    map[string]interface{}(m.Metadata),
		CreatedAt:   m.CreatedAt,
	}
}
